package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/sells-group/call-insight/internal/model"
)

// ErrPreconditionFailed is returned by the conditional commits when the
// guarded column was already written, i.e. the call moved past the expected
// phase between load and commit. Callers translate it into the state
// conflict for the phase they were running.
var ErrPreconditionFailed = eris.New("store: precondition failed")

// CallFilter specifies criteria for listing sales calls.
type CallFilter struct {
	Status     model.CallState `json:"status,omitempty"`
	CustomerID int64           `json:"customer_id,omitempty"`
	Page       int             `json:"page,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// TranscriptCommit writes a transcript to a call that does not have one yet.
// When Scores is non-nil the transcript and the full score set land in the
// same statement, so a crash can never leave a transcribed-but-half-scored
// row behind.
type TranscriptCommit struct {
	Transcript string
	Scores     *ScoreCommit
}

// ScoreCommit is the full score set for a call. Partial score writes do not
// exist; all five scores and the notes are written together.
type ScoreCommit struct {
	Urgency    int
	Budget     int
	Interest   int
	Engagement int
	Overall    int
	Notes      string
}

// Store defines the persistence interface for the call analysis pipeline.
type Store interface {
	// Customers
	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error)

	// Sales calls
	CreateCall(ctx context.Context, c *model.SalesCall) error
	GetCall(ctx context.Context, id int64) (*model.SalesCall, error)
	CommitTranscript(ctx context.Context, callID int64, commit TranscriptCommit) (*model.SalesCall, error)
	CommitScores(ctx context.Context, callID int64, commit ScoreCommit) (*model.SalesCall, error)
	ListCalls(ctx context.Context, filter CallFilter) ([]model.SalesCall, int, error)

	// Bulk intake
	InsertCustomers(ctx context.Context, customers []model.Customer) (int64, error)
	InsertCalls(ctx context.Context, calls []model.SalesCall) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// row scanning shared by both implementations

type scannable interface {
	Scan(dest ...any) error
}

func scanCustomer(row scannable) (*model.Customer, error) {
	var c model.Customer
	var email sql.NullString

	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &email, &c.CreatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		v := email.String
		c.Email = &v
	}
	return &c, nil
}

func scanCall(row scannable) (*model.SalesCall, error) {
	var c model.SalesCall
	var transcript, notes sql.NullString
	var urgency, budget, interest, engagement, overall sql.NullInt64

	err := row.Scan(
		&c.ID, &c.CustomerID, &c.AudioFilePath, &transcript,
		&urgency, &budget, &interest, &engagement, &overall,
		&notes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if transcript.Valid {
		v := transcript.String
		c.Transcript = &v
	}
	if notes.Valid {
		v := notes.String
		c.AnalysisNotes = &v
	}
	c.UrgencyScore = nullableInt(urgency)
	c.BudgetScore = nullableInt(budget)
	c.InterestScore = nullableInt(interest)
	c.EngagementScore = nullableInt(engagement)
	c.OverallScore = nullableInt(overall)
	return &c, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
