package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a bulk merge into a single table.
type UpsertConfig struct {
	Table        string   // target table, e.g. "sales_calls"
	Columns      []string // columns present in each row, in row order
	ConflictKeys []string // unique key the merge is idempotent over
	UpdateCols   []string // columns rewritten on conflict; nil means every non-key column
}

func (c UpsertConfig) validate() error {
	if len(c.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(c.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

// updateColumns resolves which columns the DO UPDATE clause rewrites.
func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	var cols []string
	for _, col := range c.Columns {
		if !slices.Contains(c.ConflictKeys, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// mergeSQL builds the statement that folds the stage table into the target.
func (c UpsertConfig) mergeSQL(stage string) string {
	cols := identList(c.Columns)
	update := c.updateColumns()
	set := make([]string, 0, len(update))
	for _, col := range update {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", ident(col), ident(col)))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		ident(c.Table), cols, cols, ident(stage), identList(c.ConflictKeys), strings.Join(set, ", "),
	)
}

// BulkUpsert merges a batch of rows into cfg.Table inside one transaction.
// The batch is COPYed into a session-local stage table cloned from the
// target, then folded in with INSERT ... ON CONFLICT DO UPDATE. Re-running
// the same batch updates the conflicting rows instead of duplicating them.
// Returns the number of rows the merge touched.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin", cfg.Table)
	}
	defer tx.Rollback(ctx)

	// INCLUDING DEFAULTS keeps serial ids firing for rows the merge inserts.
	stage := cfg.Table + "_stage"
	createStage := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		ident(stage), ident(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createStage); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create stage table", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: stage rows", cfg.Table)
	}

	tag, err := tx.Exec(ctx, cfg.mergeSQL(stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit", cfg.Table)
	}
	return tag.RowsAffected(), nil
}

// ident quotes a bare identifier for use in SQL text.
func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}
