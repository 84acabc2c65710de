// Package desk is the client-side trading ledger: the entity collections, the
// aggregate root that wires them together, and the server clock. Inbound
// protocol events mutate the collections; everything derived (P/L, margin,
// summaries, totals) recomputes synchronously from the notifications.
package desk

import (
	"sync"

	"github.com/fxdaemon/fxBench-sub005/signal"
)

// Account is one trading account row.
type Account struct {
	AccountID    string
	Balance      float64
	GrossPL      float64
	Equity       float64 // derived
	UsedMargin   float64
	UsableMargin float64 // derived
	BaseUnitSize float64
	MarginCall   bool
	Hedging      bool
	Visible      bool
	Locked       bool
}

func (a *Account) Key() string { return a.AccountID }

// derive recomputes the dependent fields. It runs inside every mutation so
// Equity and UsableMargin are never read stale.
func (a *Account) derive() {
	a.Equity = a.Balance + a.GrossPL
	a.UsableMargin = a.Equity - a.UsedMargin
}

func (a *Account) clone() *Account {
	c := *a
	return &c
}

// AccountTotals is the desk-wide total row over all accounts.
type AccountTotals struct {
	Balance      float64
	Equity       float64
	GrossPL      float64
	UsedMargin   float64
	UsableMargin float64
}

// Accounts holds every account and maintains the desk-wide running totals.
// The running totals must equal a full rescan at all times; RescanTotals is
// the reference the tests compare against.
type Accounts struct {
	c               *signal.Collection[*Account]
	defaultBaseUnit float64

	mu     sync.RWMutex
	totals AccountTotals
}

func NewAccounts(defaultBaseUnit float64) *Accounts {
	return &Accounts{
		c:               signal.New[*Account](),
		defaultBaseUnit: defaultBaseUnit,
	}
}

func (as *Accounts) Add(a *Account) {
	a.derive()
	as.c.Add(a)
	as.recomputeTotals()
}

// Update replaces the account stored under a's id, re-deriving first.
func (as *Accounts) Update(a *Account) bool {
	a.derive()
	ok := as.c.Update(a)
	if ok {
		as.recomputeTotals()
	}
	return ok
}

func (as *Accounts) Remove(accountID string) (*Account, bool) {
	a, ok := as.c.Remove(accountID)
	if ok {
		as.recomputeTotals()
	}
	return a, ok
}

func (as *Accounts) Clear() {
	as.c.Clear()
	as.recomputeTotals()
}

func (as *Accounts) Get(accountID string) (*Account, bool) { return as.c.Get(accountID) }
func (as *Accounts) At(i int) (*Account, bool)             { return as.c.At(i) }
func (as *Accounts) Len() int                              { return as.c.Len() }
func (as *Accounts) Keys() []string                        { return as.c.Keys() }
func (as *Accounts) Each(fn func(i int, a *Account) bool)  { as.c.Each(fn) }
func (as *Accounts) Sum(fn func(a *Account) float64) float64 {
	return as.c.Sum(fn)
}

func (as *Accounts) Subscribe(t signal.EventType, fn signal.Listener[*Account]) int {
	return as.c.Subscribe(t, fn)
}

func (as *Accounts) Unsubscribe(t signal.EventType, token int) { as.c.Unsubscribe(t, token) }

// Primary returns the first account; it supplies the trading base unit for
// pip-cost computation, which is why accounts must arrive before offers can
// resolve their pip costs.
func (as *Accounts) Primary() (*Account, bool) { return as.c.At(0) }

// BaseUnitSize returns the primary account's base unit, or the configured
// default while no account has arrived yet.
func (as *Accounts) BaseUnitSize() float64 {
	if p, ok := as.Primary(); ok && p.BaseUnitSize > 0 {
		return p.BaseUnitSize
	}
	return as.defaultBaseUnit
}

// onPositionsEvent recomputes the gross P/L of every account referenced by
// the triggering positions, re-derives, then refreshes the desk-wide totals
// by full rescan.
func (as *Accounts) onPositionsEvent(ps *Positions) signal.Listener[*Position] {
	return func(ev signal.Event[*Position]) {
		for accountID := range affectedAccounts(ps, ev) {
			acct, ok := as.c.Get(accountID)
			if !ok {
				continue
			}
			var gross float64
			ps.Each(func(_ int, p *Position) bool {
				if p.AccountID == accountID {
					gross += p.GrossPL
				}
				return true
			})
			next := acct.clone()
			next.GrossPL = gross
			next.derive()
			as.c.Update(next)
		}
		as.recomputeTotals()
	}
}

func affectedAccounts(ps *Positions, ev signal.Event[*Position]) map[string]struct{} {
	out := make(map[string]struct{})
	if len(ev.Batch) > 0 {
		for _, i := range ev.Batch {
			if p, ok := ps.At(i); ok {
				out[p.AccountID] = struct{}{}
			}
		}
		return out
	}
	if ev.Elem != nil {
		out[ev.Elem.AccountID] = struct{}{}
	}
	return out
}

func (as *Accounts) recomputeTotals() {
	var t AccountTotals
	as.c.Each(func(_ int, a *Account) bool {
		t.Balance += a.Balance
		t.Equity += a.Equity
		t.GrossPL += a.GrossPL
		t.UsedMargin += a.UsedMargin
		t.UsableMargin += a.UsableMargin
		return true
	})
	as.mu.Lock()
	as.totals = t
	as.mu.Unlock()
}

// Totals returns the running desk-wide totals.
func (as *Accounts) Totals() AccountTotals {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return as.totals
}

// RescanTotals recomputes the totals on demand; it must always equal Totals.
func (as *Accounts) RescanTotals() AccountTotals {
	var t AccountTotals
	as.c.Each(func(_ int, a *Account) bool {
		t.Balance += a.Balance
		t.Equity += a.Equity
		t.GrossPL += a.GrossPL
		t.UsedMargin += a.UsedMargin
		t.UsableMargin += a.UsableMargin
		return true
	})
	return t
}
