package desk

import (
	"time"

	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

// Offer is the live quote of one tradable instrument.
type Offer struct {
	OfferID      int // numeric instrument id, the collection order
	Symbol       string
	Bid          float64
	Ask          float64
	High         float64
	Low          float64
	PointSize    float64
	PipCost      float64
	BuyTradable  bool
	SellTradable bool
	Subscribed   bool
	Time         time.Time
}

func (o *Offer) Key() string { return o.Symbol }

func (o *Offer) Mid() float64 {
	if o.Bid == 0 && o.Ask == 0 {
		return 0
	}
	return (o.Bid + o.Ask) / 2
}

// OpenPrice is the side a new position or order fills at: ask for buys, bid
// for sells.
func (o *Offer) OpenPrice(side market.Side) float64 {
	if side == market.Buy {
		return o.Ask
	}
	return o.Bid
}

// ClosePrice is the side an existing position marks against: bid for buys,
// ask for sells.
func (o *Offer) ClosePrice(side market.Side) float64 {
	if side == market.Buy {
		return o.Bid
	}
	return o.Ask
}

func (o *Offer) clone() *Offer {
	c := *o
	return &c
}

// Offers holds every instrument quote, ordered by instrument id. Every quote
// change recomputes the offer's pip cost before downstream listeners see the
// event.
type Offers struct {
	c        *signal.Collection[*Offer]
	currency func() string
	baseUnit func() float64
}

// NewOffers builds the offer table. currency supplies the account currency,
// baseUnit the primary account's base unit size; both are read lazily so the
// accounts-before-offers arrival order resolves itself.
func NewOffers(currency func() string, baseUnit func() float64) *Offers {
	return &Offers{
		c: signal.NewSorted[*Offer](func(a, b *Offer) bool {
			return a.OfferID < b.OfferID
		}),
		currency: currency,
		baseUnit: baseUnit,
	}
}

func (of *Offers) Add(o *Offer) {
	o.PipCost = of.pipCost(o)
	of.c.Add(o)
	of.resolvePending()
}

// UpdateQuote applies a tick to an existing offer: price and range move, pip
// cost recomputes, then one CHANGE event fans out to positions and orders.
func (of *Offers) UpdateQuote(symbol string, bid, ask float64, at time.Time) bool {
	cur, ok := of.c.Get(symbol)
	if !ok {
		return false
	}
	next := cur.clone()
	next.Bid, next.Ask = bid, ask
	next.Time = at
	if next.High == 0 || bid > next.High {
		next.High = bid
	}
	if next.Low == 0 || ask < next.Low {
		next.Low = ask
	}
	next.PipCost = of.pipCost(next)
	of.c.Update(next)
	of.resolvePending()
	return true
}

// Update replaces a full offer row (tradable flags, subscription and so on).
func (of *Offers) Update(o *Offer) bool {
	o.PipCost = of.pipCost(o)
	ok := of.c.Update(o)
	if ok {
		of.resolvePending()
	}
	return ok
}

func (of *Offers) Remove(symbol string) (*Offer, bool) { return of.c.Remove(symbol) }
func (of *Offers) Clear()                              { of.c.Clear() }

func (of *Offers) Get(symbol string) (*Offer, bool) { return of.c.Get(symbol) }
func (of *Offers) At(i int) (*Offer, bool)          { return of.c.At(i) }
func (of *Offers) Len() int                         { return of.c.Len() }

// Symbols returns a stable snapshot of the instrument keys in id order, safe
// to iterate without holding the collection lock.
func (of *Offers) Symbols() []string { return of.c.Keys() }

func (of *Offers) Each(fn func(i int, o *Offer) bool) { of.c.Each(fn) }

func (of *Offers) Subscribe(t signal.EventType, fn signal.Listener[*Offer]) int {
	return of.c.Subscribe(t, fn)
}

func (of *Offers) Unsubscribe(t signal.EventType, token int) { of.c.Unsubscribe(t, token) }

// resolvePending retries the pip cost of offers that had no cross-rate path.
// The moment a resolving offer arrives, the degraded 0 is corrected and a
// CHANGE re-propagates downstream.
func (of *Offers) resolvePending() {
	var pending []*Offer
	of.c.Each(func(_ int, o *Offer) bool {
		if o.PipCost == 0 {
			pending = append(pending, o)
		}
		return true
	})
	for _, o := range pending {
		if pc := of.pipCost(o); pc != 0 {
			next := o.clone()
			next.PipCost = pc
			of.c.Update(next)
		}
	}
}

// rateBook is a point-in-time view of the offer table used for cross-rate
// resolution. Working on a snapshot keeps the resolution free of nested
// collection locks and deterministic (offers considered in id order).
type rateBook struct {
	ordered []*Offer
	bySym   map[string]*Offer
}

func (of *Offers) book(overlay *Offer) rateBook {
	b := rateBook{bySym: make(map[string]*Offer, of.c.Len())}
	of.c.Each(func(_ int, o *Offer) bool {
		if overlay != nil && o.Symbol == overlay.Symbol {
			o = overlay
		}
		b.ordered = append(b.ordered, o)
		b.bySym[o.Symbol] = o
		return true
	})
	if overlay != nil {
		if _, ok := b.bySym[overlay.Symbol]; !ok {
			b.ordered = append(b.ordered, overlay)
			b.bySym[overlay.Symbol] = overlay
		}
	}
	return b
}

// pipCost computes the monetary value of one point move for one base-unit
// lot of the instrument, in account currency. Unresolvable cross rates yield
// 0; downstream P/L math tolerates that until a path exists.
func (of *Offers) pipCost(o *Offer) float64 {
	_, quote, ok := market.SplitSymbol(o.Symbol)
	if !ok || o.PointSize <= 0 {
		return 0
	}
	return o.PointSize * of.baseUnit() * of.book(o).conversionRate(quote, of.currency())
}

// conversionRate resolves how many units of account currency one unit of ccy
// is worth, looking through at most two intermediate offers: direct pair,
// inverse pair, then a simple or inverse cross through a shared currency.
func (b rateBook) conversionRate(ccy, account string) float64 {
	if ccy == account {
		return 1
	}
	if r := b.directRate(ccy, account); r > 0 {
		return r
	}
	// Cross through one intermediate currency X: a ccy/X or X/ccy leg
	// combined with a direct or inverse X/account leg.
	for _, o := range b.ordered {
		base, quote, ok := market.SplitSymbol(o.Symbol)
		if !ok || o.Mid() <= 0 {
			continue
		}
		switch {
		case base == ccy && quote != account:
			if leg := b.directRate(quote, account); leg > 0 {
				return o.Mid() * leg
			}
		case quote == ccy && base != account:
			if leg := b.directRate(base, account); leg > 0 {
				return leg / o.Mid()
			}
		}
	}
	return 0
}

// directRate resolves ccy→account through the pair itself or its inverse.
func (b rateBook) directRate(ccy, account string) float64 {
	if ccy == account {
		return 1
	}
	if o, ok := b.bySym[market.Pair(ccy, account)]; ok && o.Mid() > 0 {
		return o.Mid()
	}
	if o, ok := b.bySym[market.Pair(account, ccy)]; ok && o.Mid() > 0 {
		return 1 / o.Mid()
	}
	return 0
}
