package feed

import (
	"encoding/json"
	"time"
)

// frame is the envelope every server message arrives in.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	frameAccount        = "account"
	frameAccountRemoved = "account_removed"
	frameOffer          = "offer"
	frameOrder          = "order"
	frameOrderRemoved   = "order_removed"
	frameOpenPosition   = "open_position"
	framePositionClosed = "position_closed"
	frameInterest       = "interest"
	frameStopLimit      = "stop_limit"
	frameMessage        = "message"
	frameServerTime     = "server_time"
	frameBars           = "bars"
	frameBar            = "bar"
)

type accountFrame struct {
	AccountID    string  `json:"account_id"`
	Balance      float64 `json:"balance"`
	UsedMargin   float64 `json:"used_margin"`
	BaseUnitSize float64 `json:"base_unit_size"`
	MarginCall   bool    `json:"margin_call"`
	Hedging      bool    `json:"hedging"`
	Visible      bool    `json:"visible"`
	Locked       bool    `json:"locked"`
}

type offerFrame struct {
	OfferID      int       `json:"offer_id"`
	Symbol       string    `json:"symbol"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	PointSize    float64   `json:"point_size"`
	BuyTradable  bool      `json:"buy_tradable"`
	SellTradable bool      `json:"sell_tradable"`
	Time         time.Time `json:"time"`
}

type orderFrame struct {
	OrderID   string    `json:"order_id"`
	TradeID   string    `json:"trade_id"`
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Rate      float64   `json:"rate"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Stop      float64   `json:"stop"`
	Limit     float64   `json:"limit"`
	Time      time.Time `json:"time"`
	Removed   bool      `json:"removed"`
}

type positionFrame struct {
	Ticket     string    `json:"ticket"`
	AccountID  string    `json:"account_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Amount     float64   `json:"amount"`
	Open       float64   `json:"open"`
	Close      float64   `json:"close"`
	Stop       float64   `json:"stop"`
	Limit      float64   `json:"limit"`
	TrailStop  float64   `json:"trail_stop"`
	Commission float64   `json:"commission"`
	Interest   float64   `json:"interest"`
	UsedMargin float64   `json:"used_margin"`
	OpenTime   time.Time `json:"open_time"`
	CloseTime  time.Time `json:"close_time"`
}

type stopLimitFrame struct {
	OrderID string  `json:"order_id"`
	Stop    float64 `json:"stop"`
	Limit   float64 `json:"limit"`
}

type interestFrame struct {
	Ticket   string  `json:"ticket"`
	Interest float64 `json:"interest"`
}

type messageFrame struct {
	MessageID string    `json:"message_id"`
	Time      time.Time `json:"time"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
}

type serverTimeFrame struct {
	Time time.Time `json:"time"`
}

type barFrame struct {
	Symbol      string    `json:"symbol"`
	IntervalSec int       `json:"interval_sec"`
	Start       time.Time `json:"start"`
	BidOpen     float64   `json:"bid_open"`
	BidHigh     float64   `json:"bid_high"`
	BidLow      float64   `json:"bid_low"`
	BidClose    float64   `json:"bid_close"`
	AskOpen     float64   `json:"ask_open"`
	AskHigh     float64   `json:"ask_high"`
	AskLow      float64   `json:"ask_low"`
	AskClose    float64   `json:"ask_close"`
}

type barsFrame struct {
	Bars []barFrame `json:"bars"`
}

// command is the envelope client requests go out in.
type command struct {
	Op        string  `json:"op"`
	RequestID string  `json:"request_id,omitempty"`
	User      string  `json:"user,omitempty"`
	AccountID string  `json:"account_id,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Side      string  `json:"side,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Rate      float64 `json:"rate,omitempty"`
	Stop      float64 `json:"stop,omitempty"`
	Limit     float64 `json:"limit,omitempty"`
	TrailStop float64 `json:"trail_stop,omitempty"`
	Ticket    string  `json:"ticket,omitempty"`
	OrderID   string  `json:"order_id,omitempty"`
	Interval  int     `json:"interval_sec,omitempty"`
	Count     int     `json:"count,omitempty"`
}
