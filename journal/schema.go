package journal

const schema = `
CREATE TABLE IF NOT EXISTS closed_positions (
	ticket TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	amount REAL NOT NULL,
	open_rate REAL NOT NULL,
	close_rate REAL NOT NULL,
	commission REAL NOT NULL,
	interest REAL NOT NULL,
	gross_pl REAL NOT NULL,
	net_pl REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closed_close_time ON closed_positions(close_time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	account_id TEXT NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	gross_pl REAL NOT NULL,
	used_margin REAL NOT NULL,
	usable_margin REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
