// Package bars is the time-series store for price bars: one ordered series
// per (symbol, interval), fed by tick appends and historical batch merges,
// read through windowed queries.
package bars

import (
	"time"

	"github.com/fxdaemon/fxBench-sub005/market"
)

// Key identifies one bar series.
type Key struct {
	Symbol   string
	Interval time.Duration
}

// Bar is one OHLC period carrying both sides of the quote.
type Bar struct {
	Symbol   string
	Interval time.Duration
	Start    time.Time

	BidOpen  float64
	BidHigh  float64
	BidLow   float64
	BidClose float64

	AskOpen  float64
	AskHigh  float64
	AskLow   float64
	AskClose float64
}

// NewBar opens a bar from a single tick.
func NewBar(t market.Tick, interval time.Duration) Bar {
	return Bar{
		Symbol:   t.Symbol,
		Interval: interval,
		Start:    t.Time.Truncate(interval),
		BidOpen:  t.Bid, BidHigh: t.Bid, BidLow: t.Bid, BidClose: t.Bid,
		AskOpen: t.Ask, AskHigh: t.Ask, AskLow: t.Ask, AskClose: t.Ask,
	}
}

// merge folds a tick that falls inside this bar's period.
func (b *Bar) merge(t market.Tick) {
	if t.Bid > b.BidHigh {
		b.BidHigh = t.Bid
	}
	if t.Bid < b.BidLow {
		b.BidLow = t.Bid
	}
	b.BidClose = t.Bid

	if t.Ask > b.AskHigh {
		b.AskHigh = t.Ask
	}
	if t.Ask < b.AskLow {
		b.AskLow = t.Ask
	}
	b.AskClose = t.Ask
}

func (b Bar) key() Key { return Key{Symbol: b.Symbol, Interval: b.Interval} }
