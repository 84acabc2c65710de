package main

import (
	"os"

	"github.com/fxdaemon/fxBench-sub005/cmd/fxbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
