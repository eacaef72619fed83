package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/call-insight/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs dev
// setups and small single-node installs; Postgres is the primary backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	email      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sales_calls (
	id               INTEGER PRIMARY KEY,
	customer_id      INTEGER NOT NULL REFERENCES customers(id),
	audio_file_path  TEXT NOT NULL UNIQUE,
	transcript       TEXT,
	urgency_score    INTEGER,
	budget_score     INTEGER,
	interest_score   INTEGER,
	engagement_score INTEGER,
	overall_score    INTEGER,
	analysis_notes   TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);
CREATE INDEX IF NOT EXISTS idx_sales_calls_customer_id ON sales_calls(customer_id);
CREATE INDEX IF NOT EXISTS idx_sales_calls_overall_score ON sales_calls(overall_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (name, phone, email, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Phone, c.Email, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert customer")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get customer %d", id)
	}
	return c, nil
}

func (s *SQLiteStore) GetCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE phone = ? ORDER BY id LIMIT 1`, phone,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get customer by phone %s", phone)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCall(ctx context.Context, c *model.SalesCall) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sales_calls (customer_id, audio_file_path, created_at) VALUES (?, ?, ?)`,
		c.CustomerID, c.AudioFilePath, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert call")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetCall(ctx context.Context, id int64) (*model.SalesCall, error) {
	c, err := scanCall(s.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM sales_calls WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get call %d", id)
	}
	return c, nil
}

// CommitTranscript mirrors the Postgres single-statement guard with an
// UPDATE inside a transaction followed by a read-back. Zero rows affected
// means the transcript was already written.
func (s *SQLiteStore) CommitTranscript(ctx context.Context, callID int64, commit TranscriptCommit) (*model.SalesCall, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	args := []any{commit.Transcript, nil, nil, nil, nil, nil, nil, callID}
	if sc := commit.Scores; sc != nil {
		args = []any{commit.Transcript, sc.Urgency, sc.Budget, sc.Interest, sc.Engagement, sc.Overall, sc.Notes, callID}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sales_calls SET transcript = ?, urgency_score = ?, budget_score = ?, interest_score = ?, engagement_score = ?, overall_score = ?, analysis_notes = ? WHERE id = ? AND transcript IS NULL`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: commit transcript for call %d", callID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, ErrPreconditionFailed
	}

	c, err := scanCall(tx.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM sales_calls WHERE id = ?`, callID,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read back call %d", callID)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit tx")
	}
	return c, nil
}

// CommitScores writes the full score set, guarded on overall_score IS NULL.
func (s *SQLiteStore) CommitScores(ctx context.Context, callID int64, commit ScoreCommit) (*model.SalesCall, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sales_calls SET urgency_score = ?, budget_score = ?, interest_score = ?, engagement_score = ?, overall_score = ?, analysis_notes = ? WHERE id = ? AND overall_score IS NULL AND transcript IS NOT NULL`,
		commit.Urgency, commit.Budget, commit.Interest, commit.Engagement, commit.Overall, commit.Notes, callID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: commit scores for call %d", callID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, ErrPreconditionFailed
	}

	c, err := scanCall(tx.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM sales_calls WHERE id = ?`, callID,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read back call %d", callID)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit tx")
	}
	return c, nil
}

func (s *SQLiteStore) ListCalls(ctx context.Context, filter CallFilter) ([]model.SalesCall, int, error) {
	clause := ""
	var args []any

	if filter.CustomerID > 0 {
		clause += ` AND customer_id = ?`
		args = append(args, filter.CustomerID)
	}
	switch filter.Status {
	case model.CallStatePending:
		clause += ` AND transcript IS NULL`
	case model.CallStateTranscribed:
		clause += ` AND transcript IS NOT NULL AND overall_score IS NULL`
	case model.CallStateScored:
		clause += ` AND overall_score IS NOT NULL`
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sales_calls WHERE 1=1`+clause, args...,
	).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: count calls")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := `SELECT ` + callColumns + ` FROM sales_calls WHERE 1=1` + clause + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list calls")
	}
	defer rows.Close()

	var calls []model.SalesCall
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "sqlite: scan call")
		}
		calls = append(calls, *c)
	}
	return calls, total, eris.Wrap(rows.Err(), "sqlite: list calls iterate")
}

func (s *SQLiteStore) InsertCustomers(ctx context.Context, customers []model.Customer) (int64, error) {
	if len(customers) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var total int64
	for _, c := range customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (name, phone, email, created_at) VALUES (?, ?, ?, ?)`,
			c.Name, c.Phone, c.Email, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert customer %s", c.Phone)
		}
		total++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return total, nil
}

// InsertCalls bulk-loads call records, keyed on audio_file_path so
// re-running an intake manifest does not duplicate calls.
func (s *SQLiteStore) InsertCalls(ctx context.Context, calls []model.SalesCall) (int64, error) {
	if len(calls) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var total int64
	for _, c := range calls {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sales_calls (customer_id, audio_file_path, created_at) VALUES (?, ?, ?)
			 ON CONFLICT(audio_file_path) DO UPDATE SET customer_id = excluded.customer_id`,
			c.CustomerID, c.AudioFilePath, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert call %s", c.AudioFilePath)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return total, nil
}
