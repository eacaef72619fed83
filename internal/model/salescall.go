package model

import "time"

// AnalysisStatus classifies transcription progress for a call.
type AnalysisStatus string

// ScoringStatus classifies scoring progress for a call.
type ScoringStatus string

const (
	AnalysisPending     AnalysisStatus = "pending"
	AnalysisTranscribed AnalysisStatus = "transcribed"

	ScoringPending   ScoringStatus = "pending"
	ScoringCompleted ScoringStatus = "completed"
)

// CallState is the combined pipeline position of a call, used by listing
// filters. States are one-directional: pending → transcribed → scored.
type CallState string

const (
	CallStatePending     CallState = "pending"     // no transcript yet
	CallStateTranscribed CallState = "transcribed" // transcript present, no scores
	CallStateScored      CallState = "scored"      // transcript and scores present
)

// SalesCall tracks one recorded conversation through transcription and
// scoring. Transcript and the score fields start absent and are each written
// exactly once; the five score fields and the notes are committed together
// or not at all.
type SalesCall struct {
	ID              int64     `json:"id"`
	CustomerID      int64     `json:"customerId"`
	AudioFilePath   string    `json:"audioFilePath"`
	Transcript      *string   `json:"transcript,omitempty"`
	UrgencyScore    *int      `json:"urgencyScore,omitempty"`
	BudgetScore     *int      `json:"budgetScore,omitempty"`
	InterestScore   *int      `json:"interestScore,omitempty"`
	EngagementScore *int      `json:"engagementScore,omitempty"`
	OverallScore    *int      `json:"overallScore,omitempty"`
	AnalysisNotes   *string   `json:"analysisNotes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AnalysisStatus derives transcription progress from field presence.
// Never stored.
func (c *SalesCall) AnalysisStatus() AnalysisStatus {
	if c.Transcript == nil {
		return AnalysisPending
	}
	return AnalysisTranscribed
}

// ScoringStatus derives scoring progress from field presence. Never stored.
func (c *SalesCall) ScoringStatus() ScoringStatus {
	if c.OverallScore == nil {
		return ScoringPending
	}
	return ScoringCompleted
}

// State classifies the call for listing filters.
func (c *SalesCall) State() CallState {
	switch {
	case c.Transcript == nil:
		return CallStatePending
	case c.OverallScore == nil:
		return CallStateTranscribed
	default:
		return CallStateScored
	}
}

// Scored reports whether the call has completed both pipeline phases.
func (c *SalesCall) Scored() bool {
	return c.Transcript != nil && c.OverallScore != nil
}
