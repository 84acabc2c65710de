package feed

import (
	"context"

	"github.com/fxdaemon/fxBench-sub005/liaison"
	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/session"
)

// Commands builds queueable requests against one client connection. Each
// request carries a session-scoped id so later server responses can be
// matched back to what asked for them.
type Commands struct {
	client  *Client
	session *session.Session
}

func NewCommands(c *Client, s *session.Session) *Commands {
	return &Commands{client: c, session: s}
}

func (cs *Commands) exec(cmd command) liaison.ExecFunc {
	return func(ctx context.Context) error {
		return cs.client.send(cmd)
	}
}

// OpenMarketOrder buys or sells at the current market rate.
func (cs *Commands) OpenMarketOrder(sender liaison.Sender, accountID, symbol string, side market.Side, amount float64) *liaison.Request {
	return liaison.NewRequest(sender, cs.exec(command{
		Op:        "open_market",
		RequestID: cs.session.NextRequestID("open_market"),
		AccountID: accountID,
		Symbol:    symbol,
		Side:      side.String(),
		Amount:    amount,
	}))
}

// OpenMarketOrderWithStopLimit opens at market and then attaches the stop
// and limit as sibling requests, so a rejected attach cancels the rest of
// the batch.
func (cs *Commands) OpenMarketOrderWithStopLimit(sender liaison.Sender, accountID, symbol string, side market.Side, amount, stop, limit float64) *liaison.Request {
	head := cs.OpenMarketOrder(sender, accountID, symbol, side, amount)
	if stop != 0 {
		head.Then(liaison.NewRequest(sender, cs.exec(command{
			Op:        "set_stop",
			RequestID: cs.session.NextRequestID("set_stop"),
			AccountID: accountID,
			Symbol:    symbol,
			Stop:      stop,
		})))
	}
	if limit != 0 {
		head.Then(liaison.NewRequest(sender, cs.exec(command{
			Op:        "set_limit",
			RequestID: cs.session.NextRequestID("set_limit"),
			AccountID: accountID,
			Symbol:    symbol,
			Limit:     limit,
		})))
	}
	return head
}

// CloseTrade closes an open ticket at market.
func (cs *Commands) CloseTrade(sender liaison.Sender, accountID, ticket string, amount float64) *liaison.Request {
	return liaison.NewRequest(sender, cs.exec(command{
		Op:        "close_trade",
		RequestID: cs.session.NextRequestID("close_trade"),
		AccountID: accountID,
		Ticket:    ticket,
		Amount:    amount,
	}))
}

// ChangeStopLimit rewrites the stop, limit or trailing distance on a ticket.
func (cs *Commands) ChangeStopLimit(sender liaison.Sender, accountID, ticket string, stop, limit, trailStop float64) *liaison.Request {
	return liaison.NewRequest(sender, cs.exec(command{
		Op:        "change_stop_limit",
		RequestID: cs.session.NextRequestID("change_stop_limit"),
		AccountID: accountID,
		Ticket:    ticket,
		Stop:      stop,
		Limit:     limit,
		TrailStop: trailStop,
	}))
}

// CancelOrder withdraws a pending entry order.
func (cs *Commands) CancelOrder(sender liaison.Sender, accountID, orderID string) *liaison.Request {
	return liaison.NewRequest(sender, cs.exec(command{
		Op:        "cancel_order",
		RequestID: cs.session.NextRequestID("cancel_order"),
		AccountID: accountID,
		OrderID:   orderID,
	}))
}

// SubscribeSymbol asks the server to start quoting an instrument.
func (cs *Commands) SubscribeSymbol(sender liaison.Sender, symbol string) *liaison.Request {
	return liaison.NewRequest(sender, cs.exec(command{
		Op:        "subscribe",
		RequestID: cs.session.NextRequestID("subscribe"),
		Symbol:    symbol,
	}))
}

// RequestBars asks for count bars of history on one series.
func (cs *Commands) RequestBars(sender liaison.Sender, symbol string, intervalSec, count int) *liaison.Request {
	return liaison.NewRequest(sender, cs.exec(command{
		Op:        "get_bars",
		RequestID: cs.session.NextRequestID("get_bars"),
		Symbol:    symbol,
		Interval:  intervalSec,
		Count:     count,
	}))
}
