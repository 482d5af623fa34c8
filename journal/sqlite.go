package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS closes (
	position_id TEXT PRIMARY KEY,
	side TEXT NOT NULL,
	lots REAL NOT NULL,
	open_price REAL NOT NULL,
	close_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	used_margin REAL NOT NULL,
	free_margin REAL NOT NULL,
	margin_level REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`

// SQLite stores session records in a single database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordClose(r CloseRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO closes
		(position_id, side, lots, open_price, close_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PositionID, r.Side, r.Lots, r.OpenPrice,
		r.ClosePrice, r.OpenTime, r.CloseTime, r.RealizedPL, r.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(r EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, used_margin, free_margin, margin_level)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Time, r.Balance, r.Equity, r.UsedMargin, r.FreeMargin, r.MarginLevel,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
