package analysis

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/call-insight/internal/model"
	"github.com/sells-group/call-insight/internal/store"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	enrichConcurrency = 4
)

// ListRequest carries caller-supplied listing knobs before validation.
// Zero values mean "not provided".
type ListRequest struct {
	Status     string `json:"status"`
	CustomerID int64  `json:"customerId"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// CallView is one listing row: the record flattened with its derived phase
// statuses and the owning customer's name.
type CallView struct {
	model.SalesCall
	AnalysisStatus model.AnalysisStatus `json:"analysisStatus"`
	ScoringStatus  model.ScoringStatus  `json:"scoringStatus"`
	CustomerName   string               `json:"customerName,omitempty"`
}

// ListResult is one page of calls with pagination totals.
type ListResult struct {
	Calls      []CallView `json:"calls"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// QueryService answers read-side listing queries over analyzed calls.
type QueryService struct {
	store store.Store
}

// NewQueryService wires the read side against the call repository.
func NewQueryService(st store.Store) *QueryService {
	return &QueryService{store: st}
}

// List returns one page of calls matching the request. A page beyond the
// last one yields empty items with correct totals.
func (q *QueryService) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	calls, total, err := q.store.ListCalls(ctx, filter)
	if err != nil {
		return nil, PersistenceFailure(err)
	}

	views, err := q.enrich(ctx, calls)
	if err != nil {
		return nil, PersistenceFailure(err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}
	return &ListResult{
		Calls:      views,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// buildFilter validates the request and applies paging defaults. The status
// knob collapses the two-phase pipeline into one filter: pending = no
// transcript, transcribed = transcript without scores, scored = both.
func buildFilter(req ListRequest) (store.CallFilter, error) {
	f := store.CallFilter{CustomerID: req.CustomerID, Page: req.Page, Limit: req.Limit}

	switch model.CallState(req.Status) {
	case "", model.CallStatePending, model.CallStateTranscribed, model.CallStateScored:
		f.Status = model.CallState(req.Status)
	default:
		return f, Validationf("invalid status %q: want pending, transcribed or scored", req.Status)
	}
	if req.CustomerID < 0 {
		return f, Validationf("customerId must be positive, got %d", req.CustomerID)
	}
	if req.Page < 0 {
		return f, Validationf("page must be >= 1, got %d", req.Page)
	}
	if req.Limit < 0 || req.Limit > maxPageSize {
		return f, Validationf("limit must be between 1 and %d, got %d", maxPageSize, req.Limit)
	}

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = defaultPageSize
	}
	return f, nil
}

// enrich resolves customer names for the page, one lookup per distinct
// customer.
func (q *QueryService) enrich(ctx context.Context, calls []model.SalesCall) ([]CallView, error) {
	views := make([]CallView, len(calls))
	ids := make(map[int64]struct{}, len(calls))
	for i, c := range calls {
		views[i] = CallView{
			SalesCall:      c,
			AnalysisStatus: c.AnalysisStatus(),
			ScoringStatus:  c.ScoringStatus(),
		}
		ids[c.CustomerID] = struct{}{}
	}
	if len(ids) == 0 {
		return views, nil
	}

	var mu sync.Mutex
	names := make(map[int64]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for id := range ids {
		g.Go(func() error {
			cust, err := q.store.GetCustomer(gctx, id)
			if err != nil {
				return err
			}
			if cust == nil {
				return nil
			}
			mu.Lock()
			names[id] = cust.Name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range views {
		views[i].CustomerName = names[views[i].CustomerID]
	}
	return views, nil
}
