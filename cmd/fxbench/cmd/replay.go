package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fxdaemon/fxBench-sub005/bars"
	"github.com/fxdaemon/fxBench-sub005/desk"
	"github.com/fxdaemon/fxBench-sub005/market"
)

var replayCmd = &cobra.Command{
	Use:   "replay [files...]",
	Short: "Replay recorded ticks through an offline desk",
	Long: `Decode bi5 tick archives and feed every tick through a local desk, with an
optional paper position opened at the first tick so the run reports how pip
and gross P/L would have evolved.

Each archive holds one hour of ticks; --start names the hour of the first
file and subsequent files are assumed to follow hourly.

Example:
  fxbench replay --symbol EUR/USD --start 2024-05-01T10:00:00Z --side buy --amount 10000 10h_ticks.bi5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

var (
	replaySymbol   string
	replayStart    string
	replayInterval time.Duration
	replayScale    float64
	replayPoint    float64
	replaySide     string
	replayAmount   float64
	replayBalance  float64
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replaySymbol, "symbol", "", "instrument, e.g. EUR/USD (required)")
	replayCmd.Flags().StringVar(&replayStart, "start", "", "hour of the first archive, RFC3339 (required)")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", time.Minute, "bar interval built during the run")
	replayCmd.Flags().Float64Var(&replayScale, "scale", 100000, "price divisor of the archive's integer rates")
	replayCmd.Flags().Float64Var(&replayPoint, "point", 0.0001, "point size of the instrument")
	replayCmd.Flags().StringVar(&replaySide, "side", "", "paper position side: buy or sell (omit for quotes only)")
	replayCmd.Flags().Float64Var(&replayAmount, "amount", 10000, "paper position amount")
	replayCmd.Flags().Float64Var(&replayBalance, "balance", 10000, "paper account balance")
	replayCmd.MarkFlagRequired("symbol")
	replayCmd.MarkFlagRequired("start")
}

func runReplay(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.RFC3339, replayStart)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	var side market.Side
	switch replaySide {
	case "":
	case "buy":
		side = market.Buy
	case "sell":
		side = market.Sell
	default:
		return fmt.Errorf("--side must be buy or sell, got %q", replaySide)
	}

	// Settle P/L in the quote currency so the conversion leg is direct.
	currency := replaySymbol
	if i := strings.Index(replaySymbol, "/"); i >= 0 {
		currency = replaySymbol[i+1:]
	}

	d := desk.New(zap.NewNop(), currency, replayAmount, 0)
	defer d.Shutdown()
	d.EnableRecalc()
	d.AddAccount(&desk.Account{AccountID: "replay", Balance: replayBalance, BaseUnitSize: replayAmount})

	var ticks int
	for i, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		hour := start.Add(time.Duration(i) * time.Hour)
		batch, err := bars.ReadBI5(f, replaySymbol, hour, replayScale)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		for _, t := range batch {
			if !d.UpdateOffer(t.Symbol, t.Bid, t.Ask, t.Time) {
				d.AddOffer(&desk.Offer{
					OfferID:   1,
					Symbol:    t.Symbol,
					Bid:       t.Bid,
					Ask:       t.Ask,
					PointSize: replayPoint,
					Time:      t.Time,
				})
				if replaySide != "" {
					d.AddOpenPosition(&desk.Position{
						Ticket:    "replay-1",
						AccountID: "replay",
						Symbol:    t.Symbol,
						Side:      side,
						Amount:    replayAmount,
						Open:      openRate(side, t),
						OpenTime:  t.Time,
					})
				}
			}
			d.AppendBarTick(t, replayInterval)
			ticks++
		}
	}
	if ticks == 0 {
		return fmt.Errorf("no ticks decoded")
	}

	fmt.Printf("%d ticks, %d %s bars\n", ticks, d.Bars.Len(replaySymbol, replayInterval), replayInterval)
	if replaySide != "" {
		if p, ok := d.Open.Get("replay-1"); ok {
			fmt.Printf("%s %s %.0f @ %.5f -> %.5f  pip %.1f  gross %.2f\n",
				replaySide, p.Symbol, p.Amount, p.Open, p.Close, p.PipPL, p.GrossPL)
		}
		if a, ok := d.Accounts.Primary(); ok {
			fmt.Printf("balance %.2f  equity %.2f\n", a.Balance, a.Equity)
		}
	}
	return nil
}

// openRate is the entry price for a position opened on a fresh tick: buys
// lift the ask, sells hit the bid.
func openRate(side market.Side, t market.Tick) float64 {
	if side == market.Sell {
		return t.Bid
	}
	return t.Ask
}
