// Package analysis coordinates the call pipeline: it guards call state,
// obtains transcripts through the transcription gateway, scores them, and
// commits results atomically. Every operation is a single attempt; retry
// policy belongs to the caller.
package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/model"
	"github.com/sells-group/call-insight/internal/scorer"
	"github.com/sells-group/call-insight/internal/store"
	"github.com/sells-group/call-insight/internal/transcription"
)

// TranscriptionView pairs transcript text with derived stats for responses.
type TranscriptionView struct {
	Text  string                 `json:"text"`
	Stats scorer.TranscriptStats `json:"stats"`
}

// Outcome is the result of a pipeline operation: the committed record plus
// whatever the operation produced along the way.
type Outcome struct {
	Call          *model.SalesCall   `json:"salesCall"`
	Transcription *TranscriptionView `json:"transcription,omitempty"`
	Scoring       *scorer.Result     `json:"scoring,omitempty"`
}

// CallAnalysis is the read-side view of one call: the record, its derived
// phase statuses, and the customer it belongs to.
type CallAnalysis struct {
	Call           *model.SalesCall     `json:"salesCall"`
	Customer       *model.Customer      `json:"customer,omitempty"`
	AnalysisStatus model.AnalysisStatus `json:"analysisStatus"`
	ScoringStatus  model.ScoringStatus  `json:"scoringStatus"`
}

// Orchestrator sequences validation, transcription, scoring and persistence
// for one call at a time. Concurrent operations on the same call are safe:
// the store's conditional commits let exactly one writer win each phase.
type Orchestrator struct {
	gateway transcription.Gateway
	store   store.Store
	engine  *scorer.Engine
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(gateway transcription.Gateway, st store.Store, engine *scorer.Engine) *Orchestrator {
	return &Orchestrator{gateway: gateway, store: st, engine: engine}
}

// RunFullAnalysis drives a call to the scored state. A pending call is
// transcribed and scored in one conditional commit; a transcribed call is
// scored from its stored text. A fully scored call is rejected.
func (o *Orchestrator) RunFullAnalysis(ctx context.Context, callID int64) (*Outcome, error) {
	call, err := o.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Scored() {
		return nil, AlreadyAnalyzed(call)
	}

	if call.Transcript == nil {
		return o.analyzePending(ctx, call)
	}
	return o.scoreTranscribed(ctx, call)
}

// TranscribeOnly runs just the transcription phase, leaving the call
// transcribed but unscored for a later scoring pass.
func (o *Orchestrator) TranscribeOnly(ctx context.Context, callID int64) (*model.SalesCall, error) {
	call, err := o.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Transcript != nil {
		return nil, AlreadyAnalyzed(call)
	}

	if err := o.gateway.Validate(call.AudioFilePath); err != nil {
		return nil, Validation(err).ForCall(call.ID)
	}
	res, err := o.gateway.Transcribe(ctx, call.AudioFilePath)
	if err != nil {
		return nil, GatewayFailure(call.ID, err)
	}

	committed, err := o.store.CommitTranscript(ctx, call.ID, store.TranscriptCommit{Transcript: res.Text})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return nil, o.conflictAfterRace(ctx, call.ID, false)
		}
		return nil, PersistenceFailure(err).ForCall(call.ID)
	}

	zap.L().Info("transcript committed",
		zap.Int64("call_id", call.ID),
		zap.Int("word_count", res.WordCount),
	)
	return committed, nil
}

// ScoreExisting scores a stored transcript. The recording's duration is not
// retained, so pace metrics report zero.
func (o *Orchestrator) ScoreExisting(ctx context.Context, callID int64) (*Outcome, error) {
	call, err := o.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Transcript == nil {
		return nil, NoTranscript(call)
	}
	if call.OverallScore != nil {
		return nil, AlreadyScored(call)
	}
	return o.scoreTranscribed(ctx, call)
}

// GetAnalysis returns the call with derived statuses and its customer.
func (o *Orchestrator) GetAnalysis(ctx context.Context, callID int64) (*CallAnalysis, error) {
	call, err := o.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	customer, err := o.store.GetCustomer(ctx, call.CustomerID)
	if err != nil {
		return nil, PersistenceFailure(err).ForCall(callID)
	}
	return &CallAnalysis{
		Call:           call,
		Customer:       customer,
		AnalysisStatus: call.AnalysisStatus(),
		ScoringStatus:  call.ScoringStatus(),
	}, nil
}

// analyzePending transcribes and scores a pending call. Nothing is written
// until both the gateway call and the scoring pass succeed; the transcript
// and scores then land in one conditional commit.
func (o *Orchestrator) analyzePending(ctx context.Context, call *model.SalesCall) (*Outcome, error) {
	start := time.Now()

	if err := o.gateway.Validate(call.AudioFilePath); err != nil {
		return nil, Validation(err).ForCall(call.ID)
	}
	res, err := o.gateway.Transcribe(ctx, call.AudioFilePath)
	if err != nil {
		return nil, GatewayFailure(call.ID, err)
	}

	result, err := o.engine.Score(res.Text, res.DurationSecs, res.WordCount)
	if err != nil {
		// The provider produced text the engine cannot evaluate.
		return nil, GatewayFailure(call.ID, err)
	}

	committed, err := o.store.CommitTranscript(ctx, call.ID, store.TranscriptCommit{
		Transcript: res.Text,
		Scores:     scoreCommit(result),
	})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return nil, o.conflictAfterRace(ctx, call.ID, false)
		}
		return nil, PersistenceFailure(err).ForCall(call.ID)
	}

	zap.L().Info("full analysis completed",
		zap.Int64("call_id", call.ID),
		zap.Int("overall_score", result.Scores.Overall),
		zap.Int("word_count", res.WordCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Outcome{
		Call:          committed,
		Transcription: &TranscriptionView{Text: res.Text, Stats: scorer.ComputeStats(res.Text, res.DurationSecs)},
		Scoring:       result,
	}, nil
}

// scoreTranscribed scores a call's stored transcript and commits the scores.
func (o *Orchestrator) scoreTranscribed(ctx context.Context, call *model.SalesCall) (*Outcome, error) {
	start := time.Now()
	transcript := *call.Transcript

	stats := scorer.ComputeStats(transcript, 0)
	result, err := o.engine.Score(transcript, 0, stats.WordCount)
	if err != nil {
		return nil, Validation(err).ForCall(call.ID)
	}

	committed, err := o.store.CommitScores(ctx, call.ID, *scoreCommit(result))
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return nil, o.conflictAfterRace(ctx, call.ID, true)
		}
		return nil, PersistenceFailure(err).ForCall(call.ID)
	}

	zap.L().Info("scoring completed",
		zap.Int64("call_id", call.ID),
		zap.Int("overall_score", result.Scores.Overall),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Outcome{
		Call:          committed,
		Transcription: &TranscriptionView{Text: transcript, Stats: stats},
		Scoring:       result,
	}, nil
}

func (o *Orchestrator) loadCall(ctx context.Context, callID int64) (*model.SalesCall, error) {
	call, err := o.store.GetCall(ctx, callID)
	if err != nil {
		return nil, PersistenceFailure(err).ForCall(callID)
	}
	if call == nil {
		return nil, NotFound(callID)
	}
	return call, nil
}

// conflictAfterRace reloads the record after a lost conditional commit so the
// conflict error reports what the winner actually wrote. A record that
// vanished mid-race is reported as the same conflict with empty flags.
func (o *Orchestrator) conflictAfterRace(ctx context.Context, callID int64, scoringPhase bool) error {
	call, err := o.store.GetCall(ctx, callID)
	if err != nil || call == nil {
		call = &model.SalesCall{ID: callID}
	}
	if scoringPhase {
		return AlreadyScored(call)
	}
	return AlreadyAnalyzed(call)
}

func scoreCommit(result *scorer.Result) *store.ScoreCommit {
	return &store.ScoreCommit{
		Urgency:    result.Scores.Urgency,
		Budget:     result.Scores.Budget,
		Interest:   result.Scores.Interest,
		Engagement: result.Scores.Engagement,
		Overall:    result.Scores.Overall,
		Notes:      result.Analysis.Notes,
	}
}
