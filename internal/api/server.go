// Package api exposes the call analysis pipeline over HTTP: analyze and
// score operations, call listing, and a health probe, all wrapped in a
// uniform JSON envelope.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sells-group/call-insight/internal/analysis"
)

// Analyzer runs pipeline operations on single calls.
type Analyzer interface {
	RunFullAnalysis(ctx context.Context, callID int64) (*analysis.Outcome, error)
	ScoreExisting(ctx context.Context, callID int64) (*analysis.Outcome, error)
	GetAnalysis(ctx context.Context, callID int64) (*analysis.CallAnalysis, error)
}

// Lister pages through analyzed calls.
type Lister interface {
	List(ctx context.Context, req analysis.ListRequest) (*analysis.ListResult, error)
}

// Pinger reports storage reachability for the health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the HTTP surface.
type Config struct {
	// AllowedOrigins is the CORS allowlist. Empty means same-origin only.
	AllowedOrigins []string

	// Version is reported by the health probe.
	Version string
}

type handler struct {
	analyzer Analyzer
	lister   Lister
	pinger   Pinger
	version  string
}

// NewHandler assembles the routed handler with the standard middleware
// stack: request IDs, request logging, panic recovery, CORS.
func NewHandler(a Analyzer, l Lister, p Pinger, cfg Config) http.Handler {
	h := &handler{analyzer: a, lister: l, pinger: p, version: cfg.Version}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(recoverPanics)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Get("/analyze", h.list)
		r.Get("/analyze/{id}", h.get)
		r.Post("/analyze/{id}/score", h.score)
	})
	return r
}
