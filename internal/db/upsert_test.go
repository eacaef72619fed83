package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyBatch(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "customers",
		Columns:      []string{"name", "phone"},
		ConflictKeys: []string{"phone"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     UpsertConfig
		wantErr string
	}{
		{
			name:    "missing columns",
			cfg:     UpsertConfig{Table: "customers", ConflictKeys: []string{"phone"}},
			wantErr: "no columns specified",
		},
		{
			name:    "missing conflict keys",
			cfg:     UpsertConfig{Table: "customers", Columns: []string{"name", "phone"}},
			wantErr: "no conflict keys specified",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BulkUpsert(context.TODO(), nil, tt.cfg, [][]any{{"דוד כהן", "0501234567"}})
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBulkUpsert_StagesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "sales_calls_stage" \(LIKE "sales_calls" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"sales_calls_stage"}, []string{"customer_id", "audio_file_path"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "sales_calls" .+ ON CONFLICT \("audio_file_path"\) DO UPDATE SET "customer_id" = EXCLUDED\."customer_id"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{int64(1), "/audio/call-001.mp3"},
		{int64(2), "/audio/call-002.mp3"},
	}
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "sales_calls",
		Columns:      []string{"customer_id", "audio_file_path"},
		ConflictKeys: []string{"audio_file_path"},
		UpdateCols:   []string{"customer_id"},
	}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertConfig_UpdateColumns(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "sales_calls",
		Columns:      []string{"customer_id", "audio_file_path", "created_at"},
		ConflictKeys: []string{"audio_file_path"},
	}
	assert.Equal(t, []string{"customer_id", "created_at"}, cfg.updateColumns(),
		"nil UpdateCols should default to every non-key column")

	cfg.UpdateCols = []string{"customer_id"}
	assert.Equal(t, []string{"customer_id"}, cfg.updateColumns())
}

func TestUpsertConfig_MergeSQL(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "sales_calls",
		Columns:      []string{"customer_id", "audio_file_path"},
		ConflictKeys: []string{"audio_file_path"},
	}
	want := `INSERT INTO "sales_calls" ("customer_id", "audio_file_path")` +
		` SELECT "customer_id", "audio_file_path" FROM "sales_calls_stage"` +
		` ON CONFLICT ("audio_file_path") DO UPDATE SET "customer_id" = EXCLUDED."customer_id"`
	assert.Equal(t, want, cfg.mergeSQL("sales_calls_stage"))
}
