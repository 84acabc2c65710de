package desk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

func ordersFixture(t *testing.T) (*Offers, *Orders) {
	t.Helper()

	of := usdOffers()
	of.Add(&Offer{OfferID: 1, Symbol: "EUR/USD", Bid: 1.1000, Ask: 1.1002, PointSize: 0.0001})
	ords := NewOrders(of)
	of.Subscribe(signal.EventChange, ords.onOfferChange)
	return of, ords
}

func TestOrderDefaultsRateFromOffer(t *testing.T) {
	t.Parallel()

	_, ords := ordersFixture(t)

	ords.Add(&Order{OrderID: "O1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000})
	o, ok := ords.Get("O1")
	assert.True(t, ok)
	assert.Equal(t, 1.1002, o.Rate) // buys enter at the ask

	ords.Add(&Order{OrderID: "O2", Symbol: "EUR/USD", Side: market.Sell, Amount: 10000})
	o, _ = ords.Get("O2")
	assert.Equal(t, 1.1000, o.Rate)

	ords.Add(&Order{OrderID: "O3", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Rate: 1.0950})
	o, _ = ords.Get("O3")
	assert.Equal(t, 1.0950, o.Rate)
}

func TestOrderTradeIndexCoherence(t *testing.T) {
	t.Parallel()

	_, ords := ordersFixture(t)

	ords.Add(&Order{OrderID: "O1", TradeID: "T1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000})
	got, ok := ords.GetByTrade("T1")
	assert.True(t, ok)
	assert.Equal(t, "O1", got.OrderID)

	// re-pointing the order at another trade moves the index entry
	assert.True(t, ords.Update(&Order{OrderID: "O1", TradeID: "T2", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000, Rate: 1.1002}))
	_, ok = ords.GetByTrade("T1")
	assert.False(t, ok)
	got, ok = ords.GetByTrade("T2")
	assert.True(t, ok)
	assert.Equal(t, "O1", got.OrderID)

	ords.Remove("O1")
	_, ok = ords.GetByTrade("T2")
	assert.False(t, ok)
	assert.Equal(t, 0, ords.Len())
}

func TestOrderRateTracksQuotes(t *testing.T) {
	t.Parallel()

	of, ords := ordersFixture(t)

	ords.Add(&Order{OrderID: "O1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000})
	ords.Add(&Order{OrderID: "O2", Symbol: "EUR/USD", Side: market.Sell, Amount: 10000})
	ords.Add(&Order{OrderID: "O3", Symbol: "GBP/USD", Side: market.Buy, Amount: 10000, Rate: 1.2500})

	var events []signal.Event[*Order]
	ords.Subscribe(signal.EventChange, func(ev signal.Event[*Order]) {
		events = append(events, ev)
	})

	of.UpdateQuote("EUR/USD", 1.1010, 1.1012, time.Now())

	o, _ := ords.Get("O1")
	assert.Equal(t, 1.1012, o.Rate)
	o, _ = ords.Get("O2")
	assert.Equal(t, 1.1010, o.Rate)
	o, _ = ords.Get("O3")
	assert.Equal(t, 1.2500, o.Rate) // other symbol untouched

	assert.Len(t, events, 1)
	assert.Len(t, events[0].Batch, 2)
}

// The repaint swaps in a fresh copy, so an order pointer fetched before the
// tick keeps its old rate and the trade index still resolves to the current
// row.
func TestOrderRepaintLeavesHeldPointerUntouched(t *testing.T) {
	t.Parallel()

	of, ords := ordersFixture(t)

	ords.Add(&Order{OrderID: "O1", TradeID: "T1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000})
	held, _ := ords.Get("O1")
	assert.Equal(t, 1.1002, held.Rate)

	of.UpdateQuote("EUR/USD", 1.1010, 1.1012, time.Now())

	assert.Equal(t, 1.1002, held.Rate)

	fresh, _ := ords.Get("O1")
	assert.NotSame(t, held, fresh)
	assert.Equal(t, 1.1012, fresh.Rate)

	byTrade, ok := ords.GetByTrade("T1")
	assert.True(t, ok)
	assert.Equal(t, 1.1012, byTrade.Rate)
}

func TestOrderUpdateMissing(t *testing.T) {
	t.Parallel()

	_, ords := ordersFixture(t)
	assert.False(t, ords.Update(&Order{OrderID: "nope"}))
}

func TestOrdersClearResetsIndex(t *testing.T) {
	t.Parallel()

	_, ords := ordersFixture(t)
	ords.Add(&Order{OrderID: "O1", TradeID: "T1", Symbol: "EUR/USD", Side: market.Buy, Amount: 10000})
	ords.Clear()

	assert.Equal(t, 0, ords.Len())
	_, ok := ords.GetByTrade("T1")
	assert.False(t, ok)
}
