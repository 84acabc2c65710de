package desk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fxdaemon/fxBench-sub005/market"
)

func usdOffers() *Offers {
	return NewOffers(func() string { return "USD" }, func() float64 { return 10000 })
}

func TestPipCostDirect(t *testing.T) {
	t.Parallel()

	of := usdOffers()
	of.Add(&Offer{OfferID: 1, Symbol: "EUR/USD", Bid: 1.1000, Ask: 1.1002, PointSize: 0.0001})

	o, _ := of.Get("EUR/USD")
	assert.Equal(t, 1.0, o.PipCost) // 0.0001 * 10000 * 1
}

func TestPipCostInverse(t *testing.T) {
	t.Parallel()

	of := usdOffers()
	of.Add(&Offer{OfferID: 1, Symbol: "USD/JPY", Bid: 110.00, Ask: 110.02, PointSize: 0.01})

	o, _ := of.Get("USD/JPY")
	assert.InDelta(t, 0.01*10000/110.01, o.PipCost, 1e-9)
}

func TestPipCostCrossThroughIntermediate(t *testing.T) {
	t.Parallel()

	of := usdOffers()
	of.Add(&Offer{OfferID: 1, Symbol: "AUD/CAD", Bid: 0.9000, Ask: 0.9002, PointSize: 0.0001})
	of.Add(&Offer{OfferID: 2, Symbol: "USD/CAD", Bid: 1.3500, Ask: 1.3502, PointSize: 0.0001})
	of.Add(&Offer{OfferID: 3, Symbol: "EUR/AUD", Bid: 1.6500, Ask: 1.6502, PointSize: 0.0001})

	// AUD -> USD resolves as mid(AUD/CAD) / mid(USD/CAD)
	o, _ := of.Get("EUR/AUD")
	want := 0.0001 * 10000 * (0.9001 / 1.3501)
	assert.InDelta(t, want, o.PipCost, 1e-9)
}

func TestPipCostUnresolvedThenCorrected(t *testing.T) {
	t.Parallel()

	of := usdOffers()
	of.Add(&Offer{OfferID: 1, Symbol: "EUR/AUD", Bid: 1.6500, Ask: 1.6502, PointSize: 0.0001})

	o, _ := of.Get("EUR/AUD")
	assert.Equal(t, 0.0, o.PipCost)

	// the resolving pair arriving later corrects the degraded value
	of.Add(&Offer{OfferID: 2, Symbol: "AUD/USD", Bid: 0.6600, Ask: 0.6602, PointSize: 0.0001})
	o, _ = of.Get("EUR/AUD")
	assert.InDelta(t, 0.0001*10000*0.6601, o.PipCost, 1e-9)
}

func TestUpdateQuoteMovesRangeAndPipCost(t *testing.T) {
	t.Parallel()

	of := usdOffers()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	of.Add(&Offer{OfferID: 1, Symbol: "USD/JPY", Bid: 110.00, Ask: 110.02, PointSize: 0.01, Time: at})

	assert.True(t, of.UpdateQuote("USD/JPY", 111.00, 111.02, at.Add(time.Second)))
	o, _ := of.Get("USD/JPY")
	assert.Equal(t, 111.0, o.Bid)
	assert.Equal(t, 111.0, o.High)
	assert.InDelta(t, 0.01*10000/111.01, o.PipCost, 1e-9)

	assert.False(t, of.UpdateQuote("GBP/USD", 1.25, 1.2502, at))
}

func TestOffersOrderedByID(t *testing.T) {
	t.Parallel()

	of := usdOffers()
	of.Add(&Offer{OfferID: 3, Symbol: "GBP/USD", Bid: 1.25, Ask: 1.2502, PointSize: 0.0001})
	of.Add(&Offer{OfferID: 1, Symbol: "EUR/USD", Bid: 1.10, Ask: 1.1002, PointSize: 0.0001})

	first, _ := of.At(0)
	assert.Equal(t, "EUR/USD", first.Symbol)
	assert.Equal(t, []string{"EUR/USD", "GBP/USD"}, of.Symbols())
}

func TestOfferPrices(t *testing.T) {
	t.Parallel()

	o := &Offer{Bid: 1.1000, Ask: 1.1002}
	assert.Equal(t, 1.1002, o.OpenPrice(market.Buy))
	assert.Equal(t, 1.1000, o.ClosePrice(market.Buy))
	assert.Equal(t, 1.1000, o.OpenPrice(market.Sell))
	assert.Equal(t, 1.1002, o.ClosePrice(market.Sell))
	assert.InDelta(t, 1.1001, o.Mid(), 1e-9)
}
