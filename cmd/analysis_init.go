package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/analysis"
	"github.com/sells-group/call-insight/internal/lexicon"
	"github.com/sells-group/call-insight/internal/resilience"
	"github.com/sells-group/call-insight/internal/scorer"
	"github.com/sells-group/call-insight/internal/store"
	"github.com/sells-group/call-insight/internal/transcription"
	"github.com/sells-group/call-insight/pkg/transcribe"
)

// analysisEnv bundles the initialized store and pipeline services shared by
// the analyze, score and serve commands.
type analysisEnv struct {
	Store        store.Store
	Orchestrator *analysis.Orchestrator
	Query        *analysis.QueryService
}

// Close releases the environment's resources.
func (ae *analysisEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "callinsight.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the backend and brings the schema up to date.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initLexicon loads the phrase tables, honoring a configured override file.
func initLexicon() (*lexicon.Lexicon, error) {
	if cfg.Lexicon.Path == "" {
		return lexicon.Default(), nil
	}
	lex, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("lexicon override loaded",
		zap.String("path", cfg.Lexicon.Path),
		zap.String("version", lex.Version()),
	)
	return lex, nil
}

// initGateway builds the provider client and wraps it with the configured
// timeout and circuit breaker.
func initGateway() transcription.Gateway {
	tc := cfg.Transcription

	opts := []transcribe.Option{
		transcribe.WithBaseURL(tc.BaseURL),
		transcribe.WithModel(tc.Model),
		transcribe.WithLanguage(tc.Language),
		transcribe.WithRateLimit(tc.RateLimit),
		transcribe.WithRetry(resilience.FromRetryConfig(
			tc.Retry.MaxAttempts, tc.Retry.InitialBackoffMs, tc.Retry.MaxBackoffMs)),
	}
	if tc.APIKey != "" {
		opts = append(opts, transcribe.WithAPIKey(tc.APIKey))
	}
	client := transcribe.NewClient(opts...)

	breakerCfg := resilience.FromCircuitConfig(tc.Circuit.FailureThreshold, tc.Circuit.ResetTimeoutSecs)
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("transcription circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return transcription.NewGateway(client, transcription.Options{
		Timeout: time.Duration(tc.TimeoutSecs) * time.Second,
		Breaker: resilience.NewCircuitBreaker(breakerCfg),
	})
}

// initAnalysis wires the store, scoring engine and transcription gateway into
// a ready pipeline. Callers should defer env.Close().
func initAnalysis(ctx context.Context) (*analysisEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	lex, err := initLexicon()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	engine, err := scorer.New(cfg.Scoring, lex)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "build scoring engine")
	}

	return &analysisEnv{
		Store:        st,
		Orchestrator: analysis.NewOrchestrator(initGateway(), st, engine),
		Query:        analysis.NewQueryService(st),
	}, nil
}
