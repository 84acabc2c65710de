package journal

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const closedColumns = `ticket, account_id, symbol, side, amount, open_rate, close_rate,
	commission, interest, gross_pl, net_pl, open_time, close_time`

// ByTicket returns a single closed trade.
func (j *SQLite) ByTicket(ticket string) (CloseRecord, error) {
	row := j.db.QueryRow(`
		SELECT `+closedColumns+`
		FROM closed_positions
		WHERE ticket = ?`, ticket)

	rec, err := scanClose(row)
	if err == sql.ErrNoRows {
		return CloseRecord{}, errors.Errorf("ticket %q not found", ticket)
	}
	return rec, err
}

// ClosedBetween returns trades whose close time is within [start, end),
// oldest first.
func (j *SQLite) ClosedBetween(start, end time.Time) ([]CloseRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+closedColumns+`
		FROM closed_positions
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CloseRecord
	for rows.Next() {
		rec, err := scanClose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ClosedOn returns the trades closed on one calendar day in loc.
func (j *SQLite) ClosedOn(day time.Time, loc *time.Location) ([]CloseRecord, error) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return j.ClosedBetween(start, start.AddDate(0, 0, 1))
}

// EquityBetween returns equity snapshots within [start, end), oldest first.
func (j *SQLite) EquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, account_id, balance, equity, gross_pl, used_margin, usable_margin
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.Time, &e.AccountID, &e.Balance, &e.Equity,
			&e.GrossPL, &e.UsedMargin, &e.UsableMargin,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClose(r rowScanner) (CloseRecord, error) {
	var rec CloseRecord
	err := r.Scan(
		&rec.Ticket, &rec.AccountID, &rec.Symbol, &rec.Side, &rec.Amount,
		&rec.Open, &rec.Close, &rec.Commission, &rec.Interest,
		&rec.GrossPL, &rec.NetPL, &rec.OpenTime, &rec.CloseTime,
	)
	return rec, err
}
