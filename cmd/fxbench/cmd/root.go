package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxbench",
	Short: "A client-side FX trading desk with live server synchronization",
	Long: `fxBench keeps a local mirror of an FX trading account: offers, orders,
open and closed positions, per-symbol summaries and price bars, all
recomputed incrementally as quotes arrive.

It provides tools for:
  - Running a live desk against a trading server
  - Journaling closed trades and equity to sqlite or csv
  - Importing tick history from bi5 archives`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
