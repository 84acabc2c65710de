package desk

import (
	"sync"
	"time"

	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

// Order is a pending entry order waiting at the server.
type Order struct {
	OrderID   string
	TradeID   string
	AccountID string
	Symbol    string
	Side      market.Side
	Rate      float64
	Amount    float64
	Status    string
	Stop      float64
	Limit     float64
	Time      time.Time
}

func (o *Order) Key() string { return o.OrderID }

func (o *Order) clone() *Order {
	c := *o
	return &c
}

// Orders holds the pending orders, keyed by order id with a secondary lookup
// by trade id. The trade index stores order ids, not pointers, so it stays
// valid when a quote repaint swaps an order for a fresh copy.
type Orders struct {
	c      *signal.Collection[*Order]
	offers *Offers

	mu      sync.RWMutex
	byTrade map[string]string // trade id -> order id
}

func NewOrders(offers *Offers) *Orders {
	return &Orders{
		c:       signal.New[*Order](),
		offers:  offers,
		byTrade: make(map[string]string),
	}
}

// Add inserts or replaces an order. An order arriving with no rate is marked
// at the instrument's current entry price for its side.
func (ords *Orders) Add(o *Order) {
	if o.Rate == 0 {
		if off, ok := ords.offers.Get(o.Symbol); ok {
			o.Rate = off.OpenPrice(o.Side)
		}
	}
	prev, _ := ords.c.Get(o.OrderID)
	ords.c.Add(o)
	ords.mu.Lock()
	if prev != nil && prev.TradeID != "" && prev.TradeID != o.TradeID {
		delete(ords.byTrade, prev.TradeID)
	}
	if o.TradeID != "" {
		ords.byTrade[o.TradeID] = o.OrderID
	}
	ords.mu.Unlock()
}

// Update replaces an existing order by id.
func (ords *Orders) Update(o *Order) bool {
	prev, ok := ords.c.Get(o.OrderID)
	if !ok {
		return false
	}
	if !ords.c.Update(o) {
		return false
	}
	ords.mu.Lock()
	if prev.TradeID != "" && prev.TradeID != o.TradeID {
		delete(ords.byTrade, prev.TradeID)
	}
	if o.TradeID != "" {
		ords.byTrade[o.TradeID] = o.OrderID
	}
	ords.mu.Unlock()
	return true
}

func (ords *Orders) Remove(orderID string) (*Order, bool) {
	o, ok := ords.c.Remove(orderID)
	if ok && o.TradeID != "" {
		ords.mu.Lock()
		if cur, hit := ords.byTrade[o.TradeID]; hit && cur == orderID {
			delete(ords.byTrade, o.TradeID)
		}
		ords.mu.Unlock()
	}
	return o, ok
}

func (ords *Orders) Clear() {
	ords.c.Clear()
	ords.mu.Lock()
	ords.byTrade = make(map[string]string)
	ords.mu.Unlock()
}

func (ords *Orders) Get(orderID string) (*Order, bool) { return ords.c.Get(orderID) }

// GetByTrade resolves an order through the trade-id index.
func (ords *Orders) GetByTrade(tradeID string) (*Order, bool) {
	ords.mu.RLock()
	orderID, ok := ords.byTrade[tradeID]
	ords.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ords.c.Get(orderID)
}

func (ords *Orders) At(i int) (*Order, bool) { return ords.c.At(i) }
func (ords *Orders) Len() int                { return ords.c.Len() }
func (ords *Orders) Keys() []string          { return ords.c.Keys() }
func (ords *Orders) Each(fn func(i int, o *Order) bool) {
	ords.c.Each(fn)
}

func (ords *Orders) Subscribe(t signal.EventType, fn signal.Listener[*Order]) int {
	return ords.c.Subscribe(t, fn)
}

func (ords *Orders) Unsubscribe(t signal.EventType, token int) { ords.c.Unsubscribe(t, token) }

// onOfferChange remarks market-rate orders on the ticked symbol at the fresh
// entry price for their side, batching the touched indices into one CHANGE.
// Repainted orders are cloned and swapped in so previously returned pointers
// keep their old rate.
func (ords *Orders) onOfferChange(ev signal.Event[*Offer]) {
	off := ev.Elem
	if off == nil {
		return
	}
	ords.c.Mutate(func(elems []*Order) []int {
		var changed []int
		for i, o := range elems {
			if o.Symbol != off.Symbol {
				continue
			}
			rate := off.OpenPrice(o.Side)
			if rate != o.Rate {
				next := o.clone()
				next.Rate = rate
				elems[i] = next
				changed = append(changed, i)
			}
		}
		return changed
	})
}
