package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fxdaemon/fxBench-sub005/bars"
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import tick history from bi5 archives",
	Long: `Decode one or more bi5 tick archives into price bars and print them.

Each archive holds one hour of ticks; --start names the hour of the first
file and subsequent files are assumed to follow hourly.

Example:
  fxbench import --symbol EUR/USD --start 2024-05-01T10:00:00Z --interval 1m 10h_ticks.bi5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importSymbol   string
	importStart    string
	importInterval time.Duration
	importScale    float64
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importSymbol, "symbol", "", "instrument, e.g. EUR/USD (required)")
	importCmd.Flags().StringVar(&importStart, "start", "", "hour of the first archive, RFC3339 (required)")
	importCmd.Flags().DurationVar(&importInterval, "interval", time.Minute, "bar interval")
	importCmd.Flags().Float64Var(&importScale, "scale", 100000, "price divisor of the archive's integer rates")
	importCmd.MarkFlagRequired("symbol")
	importCmd.MarkFlagRequired("start")
}

func runImport(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.RFC3339, importStart)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}

	store := bars.NewStore()
	for i, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		hour := start.Add(time.Duration(i) * time.Hour)
		batch, err := bars.ImportBI5(f, importSymbol, hour, importInterval, importScale)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		store.AddBatch(batch)
	}

	n := store.Len(importSymbol, importInterval)
	out := store.Get(importSymbol, importInterval, start.Add(time.Duration(len(args))*time.Hour), n, 0)
	for _, b := range out {
		fmt.Printf("%s  O %.5f  H %.5f  L %.5f  C %.5f\n",
			b.Start.Format(time.RFC3339), b.BidOpen, b.BidHigh, b.BidLow, b.BidClose)
	}
	fmt.Printf("%d bars\n", len(out))
	return nil
}
