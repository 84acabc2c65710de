package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/fxdaemon/fxBench-sub005/desk"
)

// CSV writes the journal as two flat files, one for closed trades and one
// for equity snapshots. Rows are flushed as they arrive so a crashed session
// still leaves a usable record.
type CSV struct {
	closes *csv.Writer
	equity *csv.Writer
	cf, ef *os.File
}

func NewCSV(closesPath, equityPath string) (*CSV, error) {
	cf, err := os.Create(closesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		cf.Close()
		return nil, err
	}

	cw := csv.NewWriter(cf)
	ew := csv.NewWriter(ef)

	if err := cw.Write([]string{
		"ticket", "account_id", "symbol", "side", "amount", "open_rate", "close_rate",
		"commission", "interest", "gross_pl", "net_pl", "open_time", "close_time",
	}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{
		"time", "account_id", "balance", "equity", "gross_pl", "used_margin", "usable_margin",
	}); err != nil {
		return nil, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{cw, ew, cf, ef}, nil
}

func (j *CSV) RecordClose(p *desk.Position) error {
	r := recordOf(p)
	if err := j.closes.Write([]string{
		r.Ticket,
		r.AccountID,
		r.Symbol,
		r.Side,
		f(r.Amount),
		f(r.Open),
		f(r.Close),
		f(r.Commission),
		f(r.Interest),
		f(r.GrossPL),
		f(r.NetPL),
		r.OpenTime.Format(time.RFC3339),
		r.CloseTime.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	j.closes.Flush()
	return j.closes.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	if err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		e.AccountID,
		f(e.Balance),
		f(e.Equity),
		f(e.GrossPL),
		f(e.UsedMargin),
		f(e.UsableMargin),
	}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.closes.Flush()
	if err := j.closes.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}
	if err := j.cf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
