package analysis

import (
	"errors"
	"fmt"

	"github.com/sells-group/call-insight/internal/model"
)

// Kind classifies an analysis failure. The HTTP and CLI layers branch on
// kinds, never on message text.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindAlreadyAnalyzed Kind = "already_analyzed"
	KindAlreadyScored   Kind = "already_scored"
	KindNoTranscript    Kind = "no_transcript"
	KindGateway         Kind = "gateway"
	KindPersistence     Kind = "persistence"
)

// Error is the typed failure returned by the orchestrator and query service.
// State-conflict kinds carry the call's transcript/score presence so callers
// can report what the record actually holds.
type Error struct {
	Kind          Kind
	Message       string
	CallID        int64
	HasTranscript bool
	HasScores     bool

	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ForCall stamps the affected call onto the error.
func (e *Error) ForCall(id int64) *Error {
	e.CallID = id
	return e
}

// KindOf extracts the Kind from anywhere in err's chain, or "" when the
// chain holds no *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// NotFound reports an absent sales call.
func NotFound(callID int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("sales call %d not found", callID),
		CallID:  callID,
	}
}

// Validation wraps a rejected-input cause (unsupported format, bad path).
func Validation(cause error) *Error {
	return &Error{Kind: KindValidation, Message: "invalid request", cause: cause}
}

// Validationf reports rejected input with no underlying cause.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// AlreadyAnalyzed reports a call whose analysis already completed where
// rework was requested.
func AlreadyAnalyzed(call *model.SalesCall) *Error {
	return &Error{
		Kind:          KindAlreadyAnalyzed,
		Message:       fmt.Sprintf("sales call %d is already analyzed", call.ID),
		CallID:        call.ID,
		HasTranscript: call.Transcript != nil,
		HasScores:     call.OverallScore != nil,
	}
}

// AlreadyScored reports a call that holds scores where scoring was requested.
func AlreadyScored(call *model.SalesCall) *Error {
	return &Error{
		Kind:          KindAlreadyScored,
		Message:       fmt.Sprintf("sales call %d is already scored", call.ID),
		CallID:        call.ID,
		HasTranscript: call.Transcript != nil,
		HasScores:     call.OverallScore != nil,
	}
}

// NoTranscript reports a scoring request against a call that has not been
// transcribed yet.
func NoTranscript(call *model.SalesCall) *Error {
	return &Error{
		Kind:          KindNoTranscript,
		Message:       fmt.Sprintf("sales call %d has no transcript to score", call.ID),
		CallID:        call.ID,
		HasTranscript: false,
		HasScores:     call.OverallScore != nil,
	}
}

// GatewayFailure reports a transcription provider or transport failure. No
// call state changed.
func GatewayFailure(callID int64, cause error) *Error {
	return &Error{
		Kind:    KindGateway,
		Message: fmt.Sprintf("transcription failed for sales call %d", callID),
		CallID:  callID,
		cause:   cause,
	}
}

// PersistenceFailure reports a storage failure.
func PersistenceFailure(cause error) *Error {
	return &Error{Kind: KindPersistence, Message: "storage failure", cause: cause}
}
