package desk

import (
	"sync"

	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

// Summary aggregates the open positions of one instrument: long and short
// exposure, amount-weighted average entry rates, and the per-side P/L.
type Summary struct {
	Symbol string

	BuyAmount   float64
	SellAmount  float64
	BuyAvgOpen  float64
	SellAvgOpen float64

	BuyGrossPL  float64
	SellGrossPL float64
	GrossPL     float64
	NetPL       float64

	Count int
}

func (s *Summary) Key() string { return s.Symbol }

// SummaryTotals is the desk-wide aggregate over all summaries.
type SummaryTotals struct {
	Amount  float64
	GrossPL float64
	NetPL   float64
}

// Summaries mirrors the open positions as one row per instrument. Rows
// appear with the first position on a symbol and vanish when the last one
// closes.
type Summaries struct {
	c         *signal.Collection[*Summary]
	positions *Positions

	mu     sync.RWMutex
	totals SummaryTotals
}

func NewSummaries(positions *Positions) *Summaries {
	return &Summaries{
		c:         signal.NewSorted[*Summary](func(a, b *Summary) bool { return a.Symbol < b.Symbol }),
		positions: positions,
	}
}

func (ss *Summaries) Get(symbol string) (*Summary, bool) { return ss.c.Get(symbol) }
func (ss *Summaries) At(i int) (*Summary, bool)          { return ss.c.At(i) }
func (ss *Summaries) Len() int                           { return ss.c.Len() }
func (ss *Summaries) Each(fn func(i int, s *Summary) bool) {
	ss.c.Each(fn)
}

func (ss *Summaries) Subscribe(t signal.EventType, fn signal.Listener[*Summary]) int {
	return ss.c.Subscribe(t, fn)
}

func (ss *Summaries) Unsubscribe(t signal.EventType, token int) { ss.c.Unsubscribe(t, token) }

// Totals returns the desk-wide aggregate.
func (ss *Summaries) Totals() SummaryTotals {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.totals
}

// onPositionsEvent rebuilds the summary rows touched by a positions event.
// One scan over the positions accumulates every affected symbol and the
// desk-wide totals; untouched rows are left alone.
func (ss *Summaries) onPositionsEvent(ev signal.Event[*Position]) {
	affected := make(map[string]bool)
	collect := func(p *Position) {
		if p != nil && p.Symbol != "" {
			affected[p.Symbol] = true
		}
	}
	collect(ev.Elem)
	collect(ev.Old)
	if len(ev.Batch) > 0 {
		for _, i := range ev.Batch {
			if p, ok := ss.positions.At(i); ok {
				collect(p)
			}
		}
	}
	if len(affected) == 0 {
		return
	}

	fresh := make(map[string]*Summary, len(affected))
	var totals SummaryTotals
	ss.positions.Each(func(_ int, p *Position) bool {
		totals.Amount += p.Amount
		totals.GrossPL += p.GrossPL
		totals.NetPL += p.NetPL
		if !affected[p.Symbol] {
			return true
		}
		row := fresh[p.Symbol]
		if row == nil {
			row = &Summary{Symbol: p.Symbol}
			fresh[p.Symbol] = row
		}
		row.Count++
		row.GrossPL += p.GrossPL
		row.NetPL += p.NetPL
		if p.Side == market.Buy {
			row.BuyAvgOpen = weightedAvg(row.BuyAvgOpen, row.BuyAmount, p.Open, p.Amount)
			row.BuyAmount += p.Amount
			row.BuyGrossPL += p.GrossPL
		} else {
			row.SellAvgOpen = weightedAvg(row.SellAvgOpen, row.SellAmount, p.Open, p.Amount)
			row.SellAmount += p.Amount
			row.SellGrossPL += p.GrossPL
		}
		return true
	})

	ss.mu.Lock()
	ss.totals = totals
	ss.mu.Unlock()

	for sym := range affected {
		if row := fresh[sym]; row != nil {
			ss.c.Add(row)
		} else {
			ss.c.Remove(sym)
		}
	}
}

// weightedAvg folds one more (rate, amount) pair into an amount-weighted
// average.
func weightedAvg(avg, total, rate, amount float64) float64 {
	if total+amount == 0 {
		return 0
	}
	return (avg*total + rate*amount) / (total + amount)
}
