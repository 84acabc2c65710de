// Package feed is the wire side of the desk: a websocket client that logs
// in, decodes server frames into desk updates, and carries outgoing
// commands for the request queue.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fxdaemon/fxBench-sub005/bars"
	"github.com/fxdaemon/fxBench-sub005/desk"
	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/session"
)

// ChannelStatus is the connection-state surface the read loop drives while
// inbound frames are being dispatched.
type ChannelStatus interface {
	BeginReceiving()
	EndReceiving()
}

// Client connects one desk to the price server.
type Client struct {
	log       *zap.Logger
	url       string
	user      string
	desk      *desk.TradeDesk
	sess      *session.Session
	status    ChannelStatus
	pingEvery time.Duration

	mu   sync.Mutex // guards conn and writes
	conn *websocket.Conn
	stop chan struct{}
	done chan struct{}
}

func NewClient(log *zap.Logger, url, user string, d *desk.TradeDesk, sess *session.Session, pingEvery time.Duration) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if pingEvery <= 0 {
		pingEvery = 20 * time.Second
	}
	return &Client{log: log, url: url, user: user, desk: d, sess: sess, pingEvery: pingEvery}
}

// SetChannelStatus installs the status surface the read loop marks while it
// dispatches inbound frames. Must be set before Login.
func (c *Client) SetChannelStatus(s ChannelStatus) { c.status = s }

// Login dials the server, announces the user and starts the read loop. It
// satisfies the transport contract of the request queue.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", c.url)
	}
	if err := conn.WriteJSON(command{Op: "login", User: c.user}); err != nil {
		conn.Close()
		return errors.Wrap(err, "login")
	}

	c.conn = conn
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)
	go c.keepalive(conn, c.stop)
	c.log.Info("logged in", zap.String("url", c.url), zap.String("user", c.user))
	return nil
}

// Logout closes the link and waits for the read loop to drain.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	conn, stop, done := c.conn, c.stop, c.done
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	close(stop)
	_ = conn.WriteJSON(command{Op: "logout"})
	_ = conn.Close()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.log.Info("logged out")
	return nil
}

// Refresh asks the server to replay the full table snapshot.
func (c *Client) Refresh(ctx context.Context) error {
	return c.send(command{Op: "refresh"})
}

// send writes one command frame. Writes are serialized; gorilla conns allow
// only one concurrent writer.
func (c *Client) send(cmd command) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return errors.New("not connected")
	}
	err := conn.WriteJSON(cmd)
	c.mu.Unlock()
	return errors.Wrapf(err, "send %s", cmd.Op)
}

func (c *Client) keepalive(conn *websocket.Conn, stop chan struct{}) {
	t := time.NewTicker(c.pingEvery)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			open := c.conn == conn
			c.mu.Unlock()
			if open {
				c.log.Warn("read loop ended", zap.Error(err))
			}
			return
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.log.Debug("bad frame", zap.Error(err))
			continue
		}
		if c.status != nil {
			c.status.BeginReceiving()
		}
		c.dispatch(f)
		if c.status != nil {
			c.status.EndReceiving()
		}
	}
}

// dispatch routes one server frame into the desk.
func (c *Client) dispatch(f frame) {
	switch f.Type {
	case frameAccount:
		var a accountFrame
		if json.Unmarshal(f.Data, &a) == nil {
			acct := &desk.Account{
				AccountID:    a.AccountID,
				Balance:      a.Balance,
				UsedMargin:   a.UsedMargin,
				BaseUnitSize: a.BaseUnitSize,
				MarginCall:   a.MarginCall,
				Hedging:      a.Hedging,
				Visible:      a.Visible,
				Locked:       a.Locked,
			}
			if _, ok := c.desk.Accounts.Get(a.AccountID); ok {
				c.desk.UpdateAccount(acct)
			} else {
				c.desk.AddAccount(acct)
			}
			if c.sess != nil && c.sess.AccountID() == "" {
				c.sess.SetAccount(a.AccountID)
			}
		}

	case frameAccountRemoved:
		var a accountFrame
		if json.Unmarshal(f.Data, &a) == nil {
			c.desk.RemoveAccount(a.AccountID)
		}

	case frameOffer:
		var o offerFrame
		if json.Unmarshal(f.Data, &o) == nil {
			if c.desk.UpdateOffer(o.Symbol, o.Bid, o.Ask, o.Time) {
				c.desk.AppendBarTick(market.Tick{
					Symbol: o.Symbol, Time: o.Time, Bid: o.Bid, Ask: o.Ask,
				}, c.desk.Bars.Intervals(o.Symbol)...)
			} else {
				c.desk.AddOffer(&desk.Offer{
					OfferID:      o.OfferID,
					Symbol:       o.Symbol,
					Bid:          o.Bid,
					Ask:          o.Ask,
					High:         o.High,
					Low:          o.Low,
					PointSize:    o.PointSize,
					BuyTradable:  o.BuyTradable,
					SellTradable: o.SellTradable,
					Subscribed:   true,
					Time:         o.Time,
				})
				if c.sess != nil {
					c.sess.SetPointSize(o.Symbol, o.PointSize)
				}
			}
			c.desk.SyncServerTime(o.Time, false)
		}

	case frameOrder:
		var o orderFrame
		if json.Unmarshal(f.Data, &o) == nil {
			ord := &desk.Order{
				OrderID:   o.OrderID,
				TradeID:   o.TradeID,
				AccountID: o.AccountID,
				Symbol:    o.Symbol,
				Side:      sideOf(o.Side),
				Rate:      o.Rate,
				Amount:    o.Amount,
				Status:    o.Status,
				Stop:      o.Stop,
				Limit:     o.Limit,
				Time:      o.Time,
			}
			// During replay the stop/limit rates can precede their order.
			if c.sess != nil {
				if sl, ok := c.sess.TakeStopLimit(ord.OrderID); ok {
					ord.Stop, ord.Limit = sl.Stop, sl.Limit
				}
			}
			if !c.desk.UpdateOrder(ord) {
				c.desk.AddOrder(ord)
			}
		}

	case frameStopLimit:
		var sl stopLimitFrame
		if json.Unmarshal(f.Data, &sl) == nil {
			if cur, ok := c.desk.Orders.Get(sl.OrderID); ok {
				next := *cur
				next.Stop, next.Limit = sl.Stop, sl.Limit
				c.desk.UpdateOrder(&next)
			} else if c.sess != nil {
				c.sess.PutStopLimit(session.StopLimit{OrderID: sl.OrderID, Stop: sl.Stop, Limit: sl.Limit})
			}
		}

	case frameOrderRemoved:
		var o orderFrame
		if json.Unmarshal(f.Data, &o) == nil {
			c.desk.RemoveOrder(o.OrderID)
		}

	case frameOpenPosition:
		var p positionFrame
		if json.Unmarshal(f.Data, &p) == nil {
			c.desk.AddOpenPosition(toPosition(p))
		}

	case framePositionClosed:
		var p positionFrame
		if json.Unmarshal(f.Data, &p) == nil {
			c.desk.RemoveOpenPosition(p.Ticket)
			c.desk.AddClosedPosition(toPosition(p))
		}

	case frameInterest:
		var in interestFrame
		if json.Unmarshal(f.Data, &in) == nil {
			c.desk.UpdateClosedInterest(in.Ticket, in.Interest)
		}

	case frameMessage:
		var m messageFrame
		if json.Unmarshal(f.Data, &m) == nil {
			c.desk.AddMessage(&desk.Message{
				MessageID: m.MessageID,
				Time:      m.Time,
				From:      m.From,
				Subject:   m.Subject,
				Text:      m.Text,
			})
		}

	case frameServerTime:
		var st serverTimeFrame
		if json.Unmarshal(f.Data, &st) == nil {
			c.desk.SyncServerTime(st.Time, true)
		}

	case frameBars:
		var bf barsFrame
		if json.Unmarshal(f.Data, &bf) == nil && len(bf.Bars) > 0 {
			batch := make([]bars.Bar, 0, len(bf.Bars))
			for _, b := range bf.Bars {
				batch = append(batch, toBar(b))
			}
			c.desk.AddBars(batch)
		}

	case frameBar:
		var b barFrame
		if json.Unmarshal(f.Data, &b) == nil {
			c.desk.SetBar(toBar(b))
		}

	default:
		c.log.Debug("unknown frame", zap.String("type", f.Type))
	}
}

func toPosition(p positionFrame) *desk.Position {
	return &desk.Position{
		Ticket:     p.Ticket,
		AccountID:  p.AccountID,
		Symbol:     p.Symbol,
		Side:       sideOf(p.Side),
		Amount:     p.Amount,
		Open:       p.Open,
		Close:      p.Close,
		Stop:       p.Stop,
		Limit:      p.Limit,
		TrailStop:  p.TrailStop,
		Commission: p.Commission,
		Interest:   p.Interest,
		UsedMargin: p.UsedMargin,
		OpenTime:   p.OpenTime,
		CloseTime:  p.CloseTime,
	}
}

func toBar(b barFrame) bars.Bar {
	return bars.Bar{
		Symbol:   b.Symbol,
		Interval: time.Duration(b.IntervalSec) * time.Second,
		Start:    b.Start,
		BidOpen:  b.BidOpen, BidHigh: b.BidHigh, BidLow: b.BidLow, BidClose: b.BidClose,
		AskOpen: b.AskOpen, AskHigh: b.AskHigh, AskLow: b.AskLow, AskClose: b.AskClose,
	}
}

func sideOf(s string) market.Side {
	if s == "S" {
		return market.Sell
	}
	return market.Buy
}
