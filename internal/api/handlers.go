package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/analysis"
	"github.com/sells-group/call-insight/internal/model"
)

// callDetail flattens one call with its derived statuses and customer.
type callDetail struct {
	model.SalesCall
	AnalysisStatus model.AnalysisStatus `json:"analysisStatus"`
	ScoringStatus  model.ScoringStatus  `json:"scoringStatus"`
	Customer       *model.Customer      `json:"customer,omitempty"`
}

// pagination is the listing footer.
type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type listData struct {
	Analyses   []analysis.CallView `json:"analyses"`
	Pagination pagination          `json:"pagination"`
}

// analyze runs the full pipeline for the call named in the body.
func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SalesCallID int64 `json:"salesCallId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, analysis.Validationf("invalid request body"))
		return
	}
	if req.SalesCallID <= 0 {
		respondError(w, r, analysis.Validationf("salesCallId is required"))
		return
	}

	outcome, err := h.analyzer.RunFullAnalysis(r.Context(), req.SalesCallID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, "analysis completed", outcome)
}

// get returns one call with statuses and its customer.
func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := callIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ca, err := h.analyzer.GetAnalysis(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, "analysis found", callDetail{
		SalesCall:      *ca.Call,
		AnalysisStatus: ca.AnalysisStatus,
		ScoringStatus:  ca.ScoringStatus,
		Customer:       ca.Customer,
	})
}

// list returns one page of calls matching the query filters.
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	req, err := listRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.lister.List(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, "analyses listed", listData{
		Analyses: res.Calls,
		Pagination: pagination{
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		},
	})
}

// score runs the scoring phase against a stored transcript.
func (h *handler) score(w http.ResponseWriter, r *http.Request) {
	id, err := callIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	outcome, err := h.analyzer.ScoreExisting(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, "scoring completed", outcome)
}

// health reports storage reachability and the running version.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		zap.L().Error("health check failed", zap.Error(err))
		respond(w, http.StatusServiceUnavailable, envelope{Message: "store unreachable"})
		return
	}
	respondData(w, "ok", map[string]string{"status": "ok", "version": h.version})
}

func callIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, analysis.Validationf("invalid sales call id %q", raw)
	}
	return id, nil
}

// listRequest parses the listing query knobs. Range checks happen in the
// query service; this only rejects values that fail to parse.
func listRequest(r *http.Request) (analysis.ListRequest, error) {
	q := r.URL.Query()
	req := analysis.ListRequest{Status: q.Get("status")}

	var err error
	if req.CustomerID, err = int64Query(q.Get("customerId"), "customerId"); err != nil {
		return req, err
	}
	page, err := int64Query(q.Get("page"), "page")
	if err != nil {
		return req, err
	}
	limit, err := int64Query(q.Get("limit"), "limit")
	if err != nil {
		return req, err
	}
	req.Page = int(page)
	req.Limit = int(limit)
	return req, nil
}

func int64Query(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, analysis.Validationf("invalid %s %q", name, raw)
	}
	return v, nil
}
