// Package journal persists closed trades and account equity snapshots so
// sessions can be reconciled after the fact.
package journal

import (
	"time"

	"github.com/fxdaemon/fxBench-sub005/desk"
)

// CloseRecord is one finished trade as stored at rest.
type CloseRecord struct {
	Ticket     string
	AccountID  string
	Symbol     string
	Side       string
	Amount     float64
	Open       float64
	Close      float64
	Commission float64
	Interest   float64
	GrossPL    float64
	NetPL      float64
	OpenTime   time.Time
	CloseTime  time.Time
}

// EquitySnapshot is the account state at one instant.
type EquitySnapshot struct {
	Time         time.Time
	AccountID    string
	Balance      float64
	Equity       float64
	GrossPL      float64
	UsedMargin   float64
	UsableMargin float64
}

// Journal is anything that can persist the trading record.
type Journal interface {
	RecordClose(p *desk.Position) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// recordOf flattens a closed position into its storage row.
func recordOf(p *desk.Position) CloseRecord {
	return CloseRecord{
		Ticket:     p.Ticket,
		AccountID:  p.AccountID,
		Symbol:     p.Symbol,
		Side:       p.Side.String(),
		Amount:     p.Amount,
		Open:       p.Open,
		Close:      p.Close,
		Commission: p.Commission,
		Interest:   p.Interest,
		GrossPL:    p.GrossPL,
		NetPL:      p.NetPL,
		OpenTime:   p.OpenTime,
		CloseTime:  p.CloseTime,
	}
}
