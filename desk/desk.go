// Package desk holds the client-side trading state: accounts, offers,
// orders, open and closed positions, per-symbol summaries, server messages,
// price bars and the server clock. Price updates flow in through the offer
// table and fan out into recomputed P/L, margin and aggregate rows.
package desk

import (
	"time"

	"go.uber.org/zap"

	"github.com/fxdaemon/fxBench-sub005/bars"
	"github.com/fxdaemon/fxBench-sub005/liaison"
	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/signal"
)

// Journal records closed trades for later reporting.
type Journal interface {
	RecordClose(p *Position) error
}

// RefillFunc is called with the bar series that have gone stale so the
// caller can request fresh history from the server.
type RefillFunc func(stale []bars.Key)

// TradeDesk is the aggregate root. All server traffic lands here and every
// view the application shows hangs off one of its collections.
type TradeDesk struct {
	log      *zap.Logger
	currency string

	Accounts  *Accounts
	Offers    *Offers
	Orders    *Orders
	Open      *Positions
	Closed    *Positions
	Summaries *Summaries
	Messages  *Messages
	Bars      *bars.Store
	Clock     *Clock

	barTail int
	refill  RefillFunc
	journal Journal

	recalc     bool
	offersToPs int
	offersToOr int
	psToAcct   int
	psToSum    int
	psAddAcct  int
	psAddSum   int
	psRemAcct  int
	psRemSum   int
	clockToken int
	statusTok  int
}

// Option configures a TradeDesk at construction.
type Option func(*TradeDesk)

// WithBarTail caps how many bars a series keeps when trimmed; zero keeps
// everything.
func WithBarTail(n int) Option { return func(d *TradeDesk) { d.barTail = n } }

func WithJournal(j Journal) Option { return func(d *TradeDesk) { d.journal = j } }

// New builds a desk for one account currency. baseUnit is the account's
// contract base unit size; clockIncrement drives the local server-time
// ticker.
func New(log *zap.Logger, currency string, baseUnit float64, clockIncrement time.Duration, opts ...Option) *TradeDesk {
	if log == nil {
		log = zap.NewNop()
	}
	d := &TradeDesk{log: log, currency: currency}
	d.Accounts = NewAccounts(baseUnit)
	d.Offers = NewOffers(func() string { return d.currency }, d.Accounts.BaseUnitSize)
	d.Orders = NewOrders(d.Offers)
	d.Open = NewPositions(d.Offers, false)
	d.Closed = NewPositions(d.Offers, true)
	d.Summaries = NewSummaries(d.Open)
	d.Messages = NewMessages()
	d.Bars = bars.NewStore()
	d.Clock = NewClock(clockIncrement)
	for _, o := range opts {
		o(d)
	}
	d.clockToken = d.Clock.OnTime(d.onTime)
	return d
}

// SetRefillFunc installs the stale-bar refill callback.
func (d *TradeDesk) SetRefillFunc(fn RefillFunc) { d.refill = fn }

// SetJournal installs the closed-trade journal.
func (d *TradeDesk) SetJournal(j Journal) { d.journal = j }

// AttachLiaison wires the desk's recalculation graph to the connection
// state: the derived views only track prices while the link is usable.
func (d *TradeDesk) AttachLiaison(l *liaison.Liaison) {
	d.statusTok = l.OnStatus(func(old, now liaison.Status) {
		switch {
		case liaison.EnablesRecalc(old, now):
			d.EnableRecalc()
		case liaison.DisablesRecalc(old, now):
			d.DisableRecalc()
		}
	})
}

// EnableRecalc connects the subscription graph: offers drive positions and
// orders, positions drive accounts and summaries. Positions subscribe
// before orders so P/L is current when order rows repaint.
func (d *TradeDesk) EnableRecalc() {
	if d.recalc {
		return
	}
	d.recalc = true
	d.offersToPs = d.Offers.Subscribe(signal.EventChange, d.Open.onOfferChange)
	d.offersToOr = d.Offers.Subscribe(signal.EventChange, d.Orders.onOfferChange)
	d.psToAcct = d.Open.Subscribe(signal.EventChange, d.Accounts.onPositionsEvent(d.Open))
	d.psToSum = d.Open.Subscribe(signal.EventChange, d.Summaries.onPositionsEvent)
	d.psAddAcct = d.Open.Subscribe(signal.EventAdd, d.Accounts.onPositionsEvent(d.Open))
	d.psAddSum = d.Open.Subscribe(signal.EventAdd, d.Summaries.onPositionsEvent)
	d.psRemAcct = d.Open.Subscribe(signal.EventRemove, d.Accounts.onPositionsEvent(d.Open))
	d.psRemSum = d.Open.Subscribe(signal.EventRemove, d.Summaries.onPositionsEvent)
}

// DisableRecalc tears the graph down and stops the clock.
func (d *TradeDesk) DisableRecalc() {
	if !d.recalc {
		return
	}
	d.recalc = false
	d.Offers.Unsubscribe(signal.EventChange, d.offersToPs)
	d.Offers.Unsubscribe(signal.EventChange, d.offersToOr)
	d.Open.Unsubscribe(signal.EventChange, d.psToAcct)
	d.Open.Unsubscribe(signal.EventChange, d.psToSum)
	d.Open.Unsubscribe(signal.EventAdd, d.psAddAcct)
	d.Open.Unsubscribe(signal.EventAdd, d.psAddSum)
	d.Open.Unsubscribe(signal.EventRemove, d.psRemAcct)
	d.Open.Unsubscribe(signal.EventRemove, d.psRemSum)
	d.Clock.Stop()
}

// Recalculating reports whether the subscription graph is live.
func (d *TradeDesk) Recalculating() bool { return d.recalc }

// onTime sweeps the bar store for series that stopped moving and asks for a
// refill.
func (d *TradeDesk) onTime(now time.Time) {
	if d.refill == nil {
		return
	}
	if stale := d.Bars.Stale(now); len(stale) > 0 {
		d.refill(stale)
	}
}

// --- protocol entry points -------------------------------------------------

func (d *TradeDesk) AddAccount(a *Account)    { d.Accounts.Add(a) }
func (d *TradeDesk) UpdateAccount(a *Account) { d.Accounts.Update(a) }
func (d *TradeDesk) RemoveAccount(id string)  { d.Accounts.Remove(id) }

func (d *TradeDesk) AddOffer(o *Offer) { d.Offers.Add(o) }

// UpdateOffer applies one quote. Everything downstream (positions, orders,
// accounts, summaries) recomputes before this returns.
func (d *TradeDesk) UpdateOffer(symbol string, bid, ask float64, at time.Time) bool {
	return d.Offers.UpdateQuote(symbol, bid, ask, at)
}

func (d *TradeDesk) AddOrder(o *Order)         { d.Orders.Add(o) }
func (d *TradeDesk) UpdateOrder(o *Order) bool { return d.Orders.Update(o) }
func (d *TradeDesk) RemoveOrder(id string)     { d.Orders.Remove(id) }

func (d *TradeDesk) AddOpenPosition(p *Position) { d.Open.Add(p) }

func (d *TradeDesk) RemoveOpenPosition(ticket string) (*Position, bool) {
	return d.Open.Remove(ticket)
}

// AddClosedPosition records a finished trade and hands it to the journal.
func (d *TradeDesk) AddClosedPosition(p *Position) {
	if o, ok := d.Offers.Get(p.Symbol); ok {
		p.refresh(o)
	} else {
		p.NetPL = p.GrossPL - p.Commission + p.Interest
	}
	d.Closed.Add(p)
	if d.journal != nil {
		if err := d.journal.RecordClose(p); err != nil {
			d.log.Warn("journal write failed", zap.String("ticket", p.Ticket), zap.Error(err))
		}
	}
}

// UpdateClosedInterest applies a late interest report to a closed ticket.
func (d *TradeDesk) UpdateClosedInterest(ticket string, interest float64) bool {
	return d.Closed.CorrectInterest(ticket, interest)
}

func (d *TradeDesk) AddMessage(m *Message) { d.Messages.Add(m) }

// SyncServerTime feeds a server timestamp into the clock.
func (d *TradeDesk) SyncServerTime(t time.Time, dispatch bool) bool {
	return d.Clock.Sync(t, dispatch)
}

// Currency returns the account currency pip costs convert into.
func (d *TradeDesk) Currency() string { return d.currency }

// AddBars merges a history batch, series by series, and trims each touched
// series to the configured tail.
func (d *TradeDesk) AddBars(bs []bars.Bar) {
	byKey := make(map[bars.Key][]bars.Bar)
	for _, b := range bs {
		k := bars.Key{Symbol: b.Symbol, Interval: b.Interval}
		byKey[k] = append(byKey[k], b)
	}
	for k, batch := range byKey {
		d.Bars.AddBatch(batch)
		if d.barTail > 0 {
			d.Bars.RemoveLeaveTail(k.Symbol, k.Interval, d.barTail)
		}
	}
}

// AppendBarTick extends or rolls the live bar of every tracked interval for
// the tick's symbol.
func (d *TradeDesk) AppendBarTick(t market.Tick, intervals ...time.Duration) {
	for _, iv := range intervals {
		d.Bars.Append(t, iv)
	}
}

func (d *TradeDesk) SetBar(b bars.Bar) bool { return d.Bars.Set(b) }

// Shutdown stops background work. Safe to call more than once.
func (d *TradeDesk) Shutdown() {
	d.DisableRecalc()
	d.Clock.Stop()
	d.Clock.RemoveListener(d.clockToken)
}
