package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fxdaemon/fxBench-sub005/desk"
)

// SQLite stores the journal in a single sqlite database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal db")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply journal schema")
	}
	return &SQLite{db: db}, nil
}

// RecordClose upserts the finished trade; a late interest correction for the
// same ticket overwrites the earlier row.
func (j *SQLite) RecordClose(p *desk.Position) error {
	r := recordOf(p)
	_, err := j.db.Exec(`
		INSERT INTO closed_positions
		(ticket, account_id, symbol, side, amount, open_rate, close_rate,
		 commission, interest, gross_pl, net_pl, open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket) DO UPDATE SET
		 commission=excluded.commission, interest=excluded.interest,
		 gross_pl=excluded.gross_pl, net_pl=excluded.net_pl`,
		r.Ticket, r.AccountID, r.Symbol, r.Side, r.Amount, r.Open, r.Close,
		r.Commission, r.Interest, r.GrossPL, r.NetPL, r.OpenTime, r.CloseTime,
	)
	return errors.Wrap(err, "record close")
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, account_id, balance, equity, gross_pl, used_margin, usable_margin)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time, e.AccountID, e.Balance, e.Equity, e.GrossPL, e.UsedMargin, e.UsableMargin,
	)
	return errors.Wrap(err, "record equity")
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
