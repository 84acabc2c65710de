package desk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

func summariesFixture(t *testing.T) (*Offers, *Positions, *Summaries) {
	t.Helper()

	of := usdOffers()
	of.Add(&Offer{OfferID: 1, Symbol: "EUR/USD", Bid: 1.1000, Ask: 1.1002, PointSize: 0.0001})
	of.Add(&Offer{OfferID: 2, Symbol: "GBP/USD", Bid: 1.2500, Ask: 1.2502, PointSize: 0.0001})

	ps := NewPositions(of, false)
	ss := NewSummaries(ps)
	ps.Subscribe(signal.EventAdd, ss.onPositionsEvent)
	ps.Subscribe(signal.EventChange, ss.onPositionsEvent)
	ps.Subscribe(signal.EventRemove, ss.onPositionsEvent)
	of.Subscribe(signal.EventChange, ps.onOfferChange)
	return of, ps, ss
}

func TestSummaryWeightedAverages(t *testing.T) {
	t.Parallel()

	_, ps, ss := summariesFixture(t)

	ps.Add(&Position{Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Open: 1.1000})
	ps.Add(&Position{Ticket: "T2", AccountID: "A1", Symbol: "EUR/USD", Side: market.Buy, Amount: 5000, Open: 1.1100})

	s, ok := ss.Get("EUR/USD")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 15000.0, s.BuyAmount)
	assert.InDelta(t, (1.1000*10000+1.1100*5000)/15000, s.BuyAvgOpen, 1e-9)
	assert.Equal(t, 0.0, s.SellAmount)
}

func TestSummarySplitsSides(t *testing.T) {
	t.Parallel()

	of, ps, ss := summariesFixture(t)

	ps.Add(&Position{Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Open: 1.1000})
	ps.Add(&Position{Ticket: "T2", AccountID: "A1", Symbol: "EUR/USD", Side: market.Sell, Amount: 5000, Open: 1.1010})

	of.UpdateQuote("EUR/USD", 1.1010, 1.1012, time.Now())

	s, _ := ss.Get("EUR/USD")
	assert.Equal(t, 10000.0, s.BuyAmount)
	assert.Equal(t, 5000.0, s.SellAmount)
	assert.InDelta(t, 100.0, s.BuyGrossPL, 1e-9)  // +10 pips on 10 lots
	assert.InDelta(t, -10.0, s.SellGrossPL, 1e-9) // -2 pips on 5 lots
	assert.InDelta(t, 90.0, s.GrossPL, 1e-9)
}

func TestSummaryRowLifecycle(t *testing.T) {
	t.Parallel()

	_, ps, ss := summariesFixture(t)

	assert.Equal(t, 0, ss.Len())
	ps.Add(&Position{Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Open: 1.1000})
	ps.Add(&Position{Ticket: "T2", AccountID: "A1", Symbol: "GBP/USD", Side: market.Buy, Amount: 5000, Open: 1.2500})
	assert.Equal(t, 2, ss.Len())

	ps.Remove("T2")
	assert.Equal(t, 1, ss.Len())
	_, ok := ss.Get("GBP/USD")
	assert.False(t, ok)

	ps.Remove("T1")
	assert.Equal(t, 0, ss.Len())
}

// Dropping every open position at once tears the summary table down the same
// way individual closes do.
func TestSummaryTeardownOnClear(t *testing.T) {
	t.Parallel()

	of, ps, ss := summariesFixture(t)

	ps.Add(&Position{Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Open: 1.1000})
	ps.Add(&Position{Ticket: "T2", AccountID: "A1", Symbol: "GBP/USD", Side: market.Buy, Amount: 5000, Open: 1.2500})
	of.UpdateQuote("EUR/USD", 1.1010, 1.1012, time.Now())
	assert.Equal(t, 2, ss.Len())

	ps.Clear()

	assert.Equal(t, 0, ss.Len())
	_, ok := ss.Get("EUR/USD")
	assert.False(t, ok)
	assert.Equal(t, SummaryTotals{}, ss.Totals())
	assert.Equal(t, ps.RescanTotals(), ps.Totals())
}

func TestSummaryTotals(t *testing.T) {
	t.Parallel()

	of, ps, ss := summariesFixture(t)

	ps.Add(&Position{Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Open: 1.1000})
	ps.Add(&Position{Ticket: "T2", AccountID: "A1", Symbol: "GBP/USD", Side: market.Buy, Amount: 5000, Open: 1.2500})

	of.UpdateQuote("EUR/USD", 1.1010, 1.1012, time.Now())

	tot := ss.Totals()
	assert.Equal(t, 15000.0, tot.Amount)
	assert.InDelta(t, 100.0, tot.GrossPL, 1e-9)
}
