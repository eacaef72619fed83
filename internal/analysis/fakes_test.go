package analysis

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/call-insight/internal/model"
	"github.com/sells-group/call-insight/internal/store"
	"github.com/sells-group/call-insight/internal/transcription"
)

// memStore is an in-memory store.Store honoring the same conditional-commit
// contract as the real backends. Hooks run inside the lock right before a
// commit's precondition check, which lets tests interleave a concurrent
// winner.
type memStore struct {
	mu         sync.Mutex
	customers  map[int64]*model.Customer
	calls      map[int64]*model.SalesCall
	nextCustID int64
	nextCallID int64

	getCallErr         error
	listErr            error
	commitErr          error
	onCommitTranscript func(calls map[int64]*model.SalesCall)
	onCommitScores     func(calls map[int64]*model.SalesCall)
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[int64]*model.Customer),
		calls:     make(map[int64]*model.SalesCall),
	}
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Ping(context.Context) error    { return nil }
func (m *memStore) Close() error                  { return nil }

func (m *memStore) CreateCustomer(_ context.Context, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCustID++
	c.ID = m.nextCustID
	c.CreatedAt = time.Now().UTC()
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *memStore) GetCustomer(_ context.Context, id int64) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetCustomerByPhone(_ context.Context, phone string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Customer
	for _, c := range m.customers {
		if c.Phone == phone && (best == nil || c.ID < best.ID) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) CreateCall(_ context.Context, c *model.SalesCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCallID++
	c.ID = m.nextCallID
	c.CreatedAt = time.Now().UTC()
	cp := *c
	m.calls[c.ID] = &cp
	return nil
}

func (m *memStore) GetCall(_ context.Context, id int64) (*model.SalesCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getCallErr != nil {
		return nil, m.getCallErr
	}
	c, ok := m.calls[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CommitTranscript(_ context.Context, callID int64, commit store.TranscriptCommit) (*model.SalesCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	if m.onCommitTranscript != nil {
		m.onCommitTranscript(m.calls)
	}
	c, ok := m.calls[callID]
	if !ok || c.Transcript != nil {
		return nil, store.ErrPreconditionFailed
	}
	t := commit.Transcript
	c.Transcript = &t
	if s := commit.Scores; s != nil {
		applyScores(c, *s)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CommitScores(_ context.Context, callID int64, commit store.ScoreCommit) (*model.SalesCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	if m.onCommitScores != nil {
		m.onCommitScores(m.calls)
	}
	c, ok := m.calls[callID]
	if !ok || c.Transcript == nil || c.OverallScore != nil {
		return nil, store.ErrPreconditionFailed
	}
	applyScores(c, commit)
	cp := *c
	return &cp, nil
}

func applyScores(c *model.SalesCall, s store.ScoreCommit) {
	u, b, i, e, o := s.Urgency, s.Budget, s.Interest, s.Engagement, s.Overall
	n := s.Notes
	c.UrgencyScore = &u
	c.BudgetScore = &b
	c.InterestScore = &i
	c.EngagementScore = &e
	c.OverallScore = &o
	c.AnalysisNotes = &n
}

func (m *memStore) ListCalls(_ context.Context, f store.CallFilter) ([]model.SalesCall, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	ids := make([]int64, 0, len(m.calls))
	for id := range m.calls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	var all []model.SalesCall
	for _, id := range ids {
		c := m.calls[id]
		if f.CustomerID > 0 && c.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && c.State() != f.Status {
			continue
		}
		all = append(all, *c)
	}

	total := len(all)
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memStore) InsertCustomers(ctx context.Context, customers []model.Customer) (int64, error) {
	for i := range customers {
		if err := m.CreateCustomer(ctx, &customers[i]); err != nil {
			return 0, err
		}
	}
	return int64(len(customers)), nil
}

func (m *memStore) InsertCalls(ctx context.Context, calls []model.SalesCall) (int64, error) {
	for i := range calls {
		if err := m.CreateCall(ctx, &calls[i]); err != nil {
			return 0, err
		}
	}
	return int64(len(calls)), nil
}

// stubGateway is a canned transcription.Gateway.
type stubGateway struct {
	validateErr error
	result      *transcription.Result
	err         error
	calls       atomic.Int32
}

func (g *stubGateway) Validate(string) error { return g.validateErr }

func (g *stubGateway) Transcribe(context.Context, string) (*transcription.Result, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}
