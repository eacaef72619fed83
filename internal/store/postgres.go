package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/call-insight/internal/db"
	"github.com/sells-group/call-insight/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	customerColumns = `id, name, phone, email, created_at`
	callColumns     = `id, customer_id, audio_file_path, transcript, urgency_score, budget_score, interest_score, engagement_score, overall_score, analysis_notes, created_at`

	getCustomerSQL        = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	getCustomerByPhoneSQL = `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1 ORDER BY id LIMIT 1`
	insertCustomerSQL     = `INSERT INTO customers (name, phone, email, created_at) VALUES ($1, $2, $3, $4) RETURNING id`

	getCallSQL    = `SELECT ` + callColumns + ` FROM sales_calls WHERE id = $1`
	insertCallSQL = `INSERT INTO sales_calls (customer_id, audio_file_path, created_at) VALUES ($1, $2, $3) RETURNING id`

	commitTranscriptSQL = `UPDATE sales_calls SET transcript = $2, urgency_score = $3, budget_score = $4, interest_score = $5, engagement_score = $6, overall_score = $7, analysis_notes = $8 WHERE id = $1 AND transcript IS NULL RETURNING ` + callColumns
	commitScoresSQL     = `UPDATE sales_calls SET urgency_score = $2, budget_score = $3, interest_score = $4, engagement_score = $5, overall_score = $6, analysis_notes = $7 WHERE id = $1 AND overall_score IS NULL AND transcript IS NOT NULL RETURNING ` + callColumns
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_customer":          getCustomerSQL,
	"get_customer_by_phone": getCustomerByPhoneSQL,
	"insert_customer":       insertCustomerSQL,
	"get_call":              getCallSQL,
	"insert_call":           insertCallSQL,
	"commit_transcript":     commitTranscriptSQL,
	"commit_scores":         commitScoresSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems
// that need direct query access (e.g., bulk intake tooling).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	email      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales_calls (
	id               BIGSERIAL PRIMARY KEY,
	customer_id      BIGINT NOT NULL REFERENCES customers(id),
	audio_file_path  TEXT NOT NULL UNIQUE,
	transcript       TEXT,
	urgency_score    INTEGER,
	budget_score     INTEGER,
	interest_score   INTEGER,
	engagement_score INTEGER,
	overall_score    INTEGER,
	analysis_notes   TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);
CREATE INDEX IF NOT EXISTS idx_sales_calls_customer_id ON sales_calls(customer_id);
CREATE INDEX IF NOT EXISTS idx_sales_calls_pending ON sales_calls(id) WHERE transcript IS NULL;
CREATE INDEX IF NOT EXISTS idx_sales_calls_unscored ON sales_calls(id) WHERE overall_score IS NULL;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx, insertCustomerSQL, c.Name, c.Phone, c.Email, now).Scan(&c.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert customer")
	}
	c.CreatedAt = now
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, getCustomerSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get customer %d", id)
	}
	return c, nil
}

func (s *PostgresStore) GetCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, getCustomerByPhoneSQL, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get customer by phone %s", phone)
	}
	return c, nil
}

func (s *PostgresStore) CreateCall(ctx context.Context, c *model.SalesCall) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx, insertCallSQL, c.CustomerID, c.AudioFilePath, now).Scan(&c.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert call")
	}
	c.CreatedAt = now
	return nil
}

func (s *PostgresStore) GetCall(ctx context.Context, id int64) (*model.SalesCall, error) {
	c, err := scanCall(s.pool.QueryRow(ctx, getCallSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get call %d", id)
	}
	return c, nil
}

// CommitTranscript writes the transcript, and optionally the score set, to a
// call that has no transcript yet. The WHERE guard makes the phase
// transition at-most-once: a second writer matches zero rows and gets
// ErrPreconditionFailed instead of overwriting.
func (s *PostgresStore) CommitTranscript(ctx context.Context, callID int64, commit TranscriptCommit) (*model.SalesCall, error) {
	args := []any{callID, commit.Transcript, nil, nil, nil, nil, nil, nil}
	if sc := commit.Scores; sc != nil {
		args = []any{callID, commit.Transcript, sc.Urgency, sc.Budget, sc.Interest, sc.Engagement, sc.Overall, sc.Notes}
	}

	c, err := scanCall(s.pool.QueryRow(ctx, commitTranscriptSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreconditionFailed
		}
		return nil, eris.Wrapf(err, "postgres: commit transcript for call %d", callID)
	}
	return c, nil
}

// CommitScores writes the full score set to a call that has not been scored
// yet, guarded on overall_score IS NULL.
func (s *PostgresStore) CommitScores(ctx context.Context, callID int64, commit ScoreCommit) (*model.SalesCall, error) {
	c, err := scanCall(s.pool.QueryRow(ctx, commitScoresSQL,
		callID, commit.Urgency, commit.Budget, commit.Interest, commit.Engagement, commit.Overall, commit.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreconditionFailed
		}
		return nil, eris.Wrapf(err, "postgres: commit scores for call %d", callID)
	}
	return c, nil
}

func (s *PostgresStore) ListCalls(ctx context.Context, filter CallFilter) ([]model.SalesCall, int, error) {
	clause, args := pgCallPredicates(filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM sales_calls WHERE true`+clause, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "postgres: count calls")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := `SELECT ` + callColumns + ` FROM sales_calls WHERE true` + clause + ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list calls")
	}
	defer rows.Close()

	var calls []model.SalesCall
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "postgres: scan call")
		}
		calls = append(calls, *c)
	}
	return calls, total, eris.Wrap(rows.Err(), "postgres: list calls iterate")
}

// pgCallPredicates builds the shared WHERE tail for the count and page
// queries. Derived statuses compile to nullity predicates on the two
// phase-output columns.
func pgCallPredicates(filter CallFilter) (string, []any) {
	clause := ""
	var args []any

	if filter.CustomerID > 0 {
		clause += fmt.Sprintf(` AND customer_id = $%d`, len(args)+1)
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
	return clause, args
}

func (s *PostgresStore) InsertCustomers(ctx context.Context, customers []model.Customer) (int64, error) {
	if len(customers) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []any{c.Name, c.Phone, c.Email, now})
	}

	n, err := db.CopyFrom(ctx, s.pool, "customers", []string{"name", "phone", "email", "created_at"}, rows)
	return n, eris.Wrap(err, "postgres: copy customers")
}

// InsertCalls bulk-loads call records. The upsert keys on audio_file_path so
// re-running an intake manifest does not duplicate calls.
func (s *PostgresStore) InsertCalls(ctx context.Context, calls []model.SalesCall) (int64, error) {
	if len(calls) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(calls))
	for _, c := range calls {
		rows = append(rows, []any{c.CustomerID, c.AudioFilePath, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "sales_calls",
		Columns:      []string{"customer_id", "audio_file_path", "created_at"},
		ConflictKeys: []string{"audio_file_path"},
		UpdateCols:   []string{"customer_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: bulk upsert calls")
}
