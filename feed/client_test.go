package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fxdaemon/fxBench-sub005/desk"
	"github.com/fxdaemon/fxBench-sub005/market"
	"github.com/fxdaemon/fxBench-sub005/session"
)

func newTestDesk() *desk.TradeDesk {
	return desk.New(zap.NewNop(), "USD", 10000, 0)
}

func testClient(d *desk.TradeDesk) *Client {
	return &Client{log: zap.NewNop(), desk: d, sess: session.New("USD", 10000), pingEvery: 20 * time.Second}
}

func raw(t *testing.T, typ string, payload any) frame {
	t.Helper()
	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	return frame{Type: typ, Data: data}
}

func TestDispatchAccount(t *testing.T) {
	t.Parallel()

	d := newTestDesk()
	c := testClient(d)

	c.dispatch(raw(t, frameAccount, accountFrame{
		AccountID: "A1", Balance: 10000, BaseUnitSize: 10000, Visible: true,
	}))

	a, ok := d.Accounts.Get("A1")
	assert.True(t, ok)
	assert.Equal(t, 10000.0, a.Balance)
	assert.Equal(t, 10000.0, a.Equity)

	c.dispatch(raw(t, frameAccount, accountFrame{
		AccountID: "A1", Balance: 12000, BaseUnitSize: 10000, Visible: true,
	}))
	a, _ = d.Accounts.Get("A1")
	assert.Equal(t, 12000.0, a.Balance)
	assert.Equal(t, 1, d.Accounts.Len())
}

func TestDispatchOfferAddThenQuote(t *testing.T) {
	t.Parallel()

	d := newTestDesk()
	c := testClient(d)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c.dispatch(raw(t, frameOffer, offerFrame{
		OfferID: 1, Symbol: "EUR/USD", Bid: 1.1000, Ask: 1.1002,
		PointSize: 0.0001, Time: at,
	}))

	o, ok := d.Offers.Get("EUR/USD")
	assert.True(t, ok)
	assert.Equal(t, 1.1000, o.Bid)

	c.dispatch(raw(t, frameOffer, offerFrame{
		Symbol: "EUR/USD", Bid: 1.1010, Ask: 1.1012, Time: at.Add(time.Second),
	}))
	o, _ = d.Offers.Get("EUR/USD")
	assert.Equal(t, 1.1010, o.Bid)
	assert.True(t, d.Clock.Now().Equal(at.Add(time.Second)))
}

func TestDispatchPositionLifecycle(t *testing.T) {
	t.Parallel()

	d := newTestDesk()
	c := testClient(d)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c.dispatch(raw(t, frameOffer, offerFrame{
		OfferID: 1, Symbol: "EUR/USD", Bid: 1.1000, Ask: 1.1002,
		PointSize: 0.0001, Time: at,
	}))
	c.dispatch(raw(t, frameOpenPosition, positionFrame{
		Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: "B",
		Amount: 10000, Open: 1.1000, OpenTime: at,
	}))

	p, ok := d.Open.Get("T1")
	assert.True(t, ok)
	assert.Equal(t, market.Buy, p.Side)
	assert.Equal(t, 1.1000, p.Close) // marked at current bid

	c.dispatch(raw(t, framePositionClosed, positionFrame{
		Ticket: "T1", AccountID: "A1", Symbol: "EUR/USD", Side: "B",
		Amount: 10000, Open: 1.1000, Close: 1.1010,
		OpenTime: at, CloseTime: at.Add(time.Hour),
	}))
	_, ok = d.Open.Get("T1")
	assert.False(t, ok)
	cp, ok := d.Closed.Get("T1")
	assert.True(t, ok)
	assert.Equal(t, 10.0, cp.PipPL)

	c.dispatch(raw(t, frameInterest, interestFrame{Ticket: "T1", Interest: -0.5}))
	cp, _ = d.Closed.Get("T1")
	assert.Equal(t, -0.5, cp.Interest)
}

func TestDispatchBars(t *testing.T) {
	t.Parallel()

	d := newTestDesk()
	c := testClient(d)

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c.dispatch(raw(t, frameBars, barsFrame{Bars: []barFrame{
		{Symbol: "EUR/USD", IntervalSec: 60, Start: start, BidClose: 1.1, AskClose: 1.1002},
		{Symbol: "EUR/USD", IntervalSec: 60, Start: start.Add(time.Minute), BidClose: 1.2, AskClose: 1.2002},
	}}))
	assert.Equal(t, 2, d.Bars.Len("EUR/USD", time.Minute))

	c.dispatch(raw(t, frameBar, barFrame{
		Symbol: "EUR/USD", IntervalSec: 60, Start: start.Add(time.Minute), BidClose: 1.25,
	}))
	got := d.Bars.Get("EUR/USD", time.Minute, start.Add(time.Hour), 1, 0)
	assert.Len(t, got, 1)
	assert.Equal(t, 1.25, got[0].BidClose)
}

func TestDispatchStopLimitReplay(t *testing.T) {
	t.Parallel()

	d := newTestDesk()
	c := testClient(d)

	c.dispatch(raw(t, frameOffer, offerFrame{
		OfferID: 1, Symbol: "EUR/USD", Bid: 1.1000, Ask: 1.1002,
		PointSize: 0.0001, Time: time.Now(),
	}))

	// stop/limit rates arriving before their order are parked, then applied
	c.dispatch(raw(t, frameStopLimit, stopLimitFrame{OrderID: "O1", Stop: 1.0950, Limit: 1.1100}))
	_, ok := d.Orders.Get("O1")
	assert.False(t, ok)

	c.dispatch(raw(t, frameOrder, orderFrame{
		OrderID: "O1", Symbol: "EUR/USD", Side: "B", Amount: 10000, Rate: 1.1002,
	}))
	o, ok := d.Orders.Get("O1")
	assert.True(t, ok)
	assert.Equal(t, 1.0950, o.Stop)
	assert.Equal(t, 1.1100, o.Limit)

	// on a live order the rates apply directly
	c.dispatch(raw(t, frameStopLimit, stopLimitFrame{OrderID: "O1", Stop: 1.0960, Limit: 1.1090}))
	o, _ = d.Orders.Get("O1")
	assert.Equal(t, 1.0960, o.Stop)
}

func TestDispatchServerTimeAndMessage(t *testing.T) {
	t.Parallel()

	d := newTestDesk()
	c := testClient(d)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c.dispatch(raw(t, frameServerTime, serverTimeFrame{Time: at}))
	assert.True(t, d.Clock.Now().Equal(at))

	// stale timestamps are dropped
	c.dispatch(raw(t, frameServerTime, serverTimeFrame{Time: at.Add(-time.Hour)}))
	assert.True(t, d.Clock.Now().Equal(at))

	c.dispatch(raw(t, frameMessage, messageFrame{MessageID: "M1", Subject: "margin call"}))
	assert.Equal(t, 1, d.Messages.Len())
}

type recordingStatus struct {
	begins int
	ends   int
}

func (s *recordingStatus) BeginReceiving() { s.begins++ }
func (s *recordingStatus) EndReceiving()   { s.ends++ }

// The read loop brackets every dispatched frame with the channel's receiving
// marks.
func TestReadLoopMarksReceiving(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var login command
		if err := conn.ReadJSON(&login); err != nil {
			return
		}
		for i := 0; i < 3; i++ {
			data, _ := json.Marshal(messageFrame{MessageID: "M1", Subject: "hello"})
			_ = conn.WriteJSON(frame{Type: frameMessage, Data: data})
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	d := newTestDesk()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(zap.NewNop(), url, "demo", d, session.New("USD", 10000), time.Minute)
	status := &recordingStatus{}
	c.SetChannelStatus(status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, c.Login(ctx))

	assert.Eventually(t, func() bool { return d.Messages.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, c.Logout(ctx))

	assert.GreaterOrEqual(t, status.begins, 3)
	assert.Equal(t, status.begins, status.ends)
}

func TestLoginReceivesFrames(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	got := make(chan command, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var login command
		if err := conn.ReadJSON(&login); err != nil {
			return
		}
		got <- login

		data, _ := json.Marshal(offerFrame{
			OfferID: 1, Symbol: "EUR/USD", Bid: 1.1, Ask: 1.1002,
			PointSize: 0.0001, Time: time.Now(),
		})
		_ = conn.WriteJSON(frame{Type: frameOffer, Data: data})

		// hold the conn open until the client logs out
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	d := newTestDesk()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(zap.NewNop(), url, "demo", d, session.New("USD", 10000), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, c.Login(ctx))

	login := <-got
	assert.Equal(t, "login", login.Op)
	assert.Equal(t, "demo", login.User)

	assert.Eventually(t, func() bool {
		_, ok := d.Offers.Get("EUR/USD")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, c.Logout(ctx))
}
