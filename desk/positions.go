package desk

import (
	"sync"
	"time"

	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

// lotUnit is the thousand-unit lot P/L math works in: gross P/L is
// amount/lotUnit × pip P/L × pip cost.
const lotUnit = 1000.0

// Position is one trade, open or closed. Closed positions are immutable once
// created except for the one-time late-interest correction.
type Position struct {
	Ticket    string
	AccountID string
	Symbol    string
	Side      market.Side
	Amount    float64

	Open  float64
	Close float64
	Stop  float64
	Limit float64

	// TrailStop is the trailing distance in points; 0 disables trailing.
	// TrailRate is the current trigger rate, re-anchored on every quote.
	TrailStop float64
	TrailRate float64

	Commission float64
	Interest   float64

	PipPL      float64 // derived
	GrossPL    float64 // derived
	NetPL      float64 // derived
	UsedMargin float64

	OpenTime  time.Time
	CloseTime time.Time

	interestFixed bool
}

func (p *Position) Key() string { return p.Ticket }

func (p *Position) clone() *Position {
	c := *p
	return &c
}

// refresh recomputes the derived P/L fields from the close price and the
// instrument's current pip cost.
func (p *Position) refresh(o *Offer) {
	diff := p.Close - p.Open
	if p.Side == market.Sell {
		diff = -diff
	}
	if o.PointSize > 0 {
		p.PipPL = market.RoundToPoint(diff, o.PointSize) / o.PointSize
	} else {
		p.PipPL = 0
	}
	p.GrossPL = p.Amount / lotUnit * p.PipPL * o.PipCost
	p.NetPL = p.GrossPL - p.Commission + p.Interest
}

// trail re-anchors the trailing trigger from the current close-side price.
// The trigger only ever advances in the position's favor.
func (p *Position) trail(o *Offer) {
	if p.TrailStop <= 0 || o.PointSize <= 0 {
		return
	}
	dist := p.TrailStop * o.PointSize
	if p.Side == market.Buy {
		if cand := p.Close - dist; p.TrailRate == 0 || cand > p.TrailRate {
			p.TrailRate = cand
		}
	} else {
		if cand := p.Close + dist; p.TrailRate == 0 || cand < p.TrailRate {
			p.TrailRate = cand
		}
	}
}

// PositionTotals is the running total row over a positions collection.
type PositionTotals struct {
	Amount     float64
	PipPL      float64
	GrossPL    float64
	NetPL      float64
	Commission float64
	Interest   float64
	UsedMargin float64
}

// Positions holds the open (or closed) trades and their running totals. The
// totals are refreshed by a full rescan on every structural change and on
// every price-driven batch change; they must equal RescanTotals at all
// times.
type Positions struct {
	c      *signal.Collection[*Position]
	offers *Offers
	closed bool

	mu     sync.RWMutex
	totals PositionTotals
}

func NewPositions(offers *Offers, closed bool) *Positions {
	return &Positions{
		c:      signal.New[*Position](),
		offers: offers,
		closed: closed,
	}
}

// Add inserts a trade. An open position arriving without a close price is
// marked against the current offer and fully derived before the ADD event
// fans out.
func (ps *Positions) Add(p *Position) {
	if o, ok := ps.offers.Get(p.Symbol); ok {
		if !ps.closed && p.Close == 0 {
			p.Close = o.ClosePrice(p.Side)
		}
		p.trail(o)
		p.refresh(o)
	}
	ps.c.Add(p)
	ps.recomputeTotals()
}

func (ps *Positions) Remove(ticket string) (*Position, bool) {
	p, ok := ps.c.Remove(ticket)
	if ok {
		ps.recomputeTotals()
	}
	return p, ok
}

func (ps *Positions) Clear() {
	ps.c.Clear()
	ps.recomputeTotals()
}

func (ps *Positions) Get(ticket string) (*Position, bool) { return ps.c.Get(ticket) }
func (ps *Positions) At(i int) (*Position, bool)          { return ps.c.At(i) }
func (ps *Positions) Len() int                            { return ps.c.Len() }
func (ps *Positions) Keys() []string                      { return ps.c.Keys() }
func (ps *Positions) Each(fn func(i int, p *Position) bool) {
	ps.c.Each(fn)
}
func (ps *Positions) Sum(fn func(p *Position) float64) float64 { return ps.c.Sum(fn) }

func (ps *Positions) Subscribe(t signal.EventType, fn signal.Listener[*Position]) int {
	return ps.c.Subscribe(t, fn)
}

func (ps *Positions) Unsubscribe(t signal.EventType, token int) { ps.c.Unsubscribe(t, token) }

// CorrectInterest applies the one-time interest correction a late interest
// report makes to an already-closed ticket. Repeated reports are ignored.
func (ps *Positions) CorrectInterest(ticket string, interest float64) bool {
	cur, ok := ps.c.Get(ticket)
	if !ok || cur.interestFixed {
		return false
	}
	next := cur.clone()
	next.Interest = interest
	next.NetPL = next.GrossPL - next.Commission + next.Interest
	next.interestFixed = true
	if !ps.c.Update(next) {
		return false
	}
	ps.recomputeTotals()
	return true
}

// onOfferChange remarks every position on the ticked symbol. Each touched
// position is cloned and the clone swapped into the collection, so pointers
// handed out before the tick stay frozen snapshots. Positions whose close
// price (or resolved pip cost) actually changes are batched into one CHANGE
// notification; the totals are re-summed over the whole collection, not per
// symbol.
func (ps *Positions) onOfferChange(ev signal.Event[*Offer]) {
	o := ev.Elem
	if o == nil {
		return
	}
	ps.c.Mutate(func(elems []*Position) []int {
		var changed []int
		for i, p := range elems {
			if p.Symbol != o.Symbol {
				continue
			}
			next := p.clone()
			if !ps.closed {
				next.Close = o.ClosePrice(p.Side)
			}
			next.trail(o)
			next.refresh(o)
			if next.Close != p.Close || next.GrossPL != p.GrossPL || next.TrailRate != p.TrailRate {
				elems[i] = next
				changed = append(changed, i)
			}
		}
		return changed
	})
	ps.recomputeTotals()
}

func (ps *Positions) recomputeTotals() {
	var t PositionTotals
	ps.c.Each(func(_ int, p *Position) bool {
		t.Amount += p.Amount
		t.PipPL += p.PipPL
		t.GrossPL += p.GrossPL
		t.NetPL += p.NetPL
		t.Commission += p.Commission
		t.Interest += p.Interest
		t.UsedMargin += p.UsedMargin
		return true
	})
	ps.mu.Lock()
	ps.totals = t
	ps.mu.Unlock()
}

// Totals returns the running totals.
func (ps *Positions) Totals() PositionTotals {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.totals
}

// RescanTotals recomputes the totals on demand; it must always equal Totals.
func (ps *Positions) RescanTotals() PositionTotals {
	var t PositionTotals
	ps.c.Each(func(_ int, p *Position) bool {
		t.Amount += p.Amount
		t.PipPL += p.PipPL
		t.GrossPL += p.GrossPL
		t.NetPL += p.NetPL
		t.Commission += p.Commission
		t.Interest += p.Interest
		t.UsedMargin += p.UsedMargin
		return true
	})
	return t
}
