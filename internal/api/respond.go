package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/analysis"
)

// envelope is the uniform response wrapper for every route.
type envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

// errorBody surfaces the typed failure to clients. The state flags tell a
// caller that hit a conflict what the record actually holds.
type errorBody struct {
	Kind          analysis.Kind `json:"kind"`
	SalesCallID   int64         `json:"salesCallId,omitempty"`
	HasTranscript bool          `json:"hasTranscript"`
	HasScores     bool          `json:"hasScores"`
}

func respond(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func respondData(w http.ResponseWriter, message string, data any) {
	respond(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// respondError maps a pipeline failure onto the envelope. Only the typed
// message crosses the wire; wrapped causes stay in the logs.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *analysis.Error
	if !errors.As(err, &ae) {
		zap.L().Error("unclassified handler failure",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		respond(w, http.StatusInternalServerError, envelope{Message: "internal error"})
		return
	}

	status := statusFor(ae.Kind)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("kind", string(ae.Kind)),
			zap.Int64("call_id", ae.CallID),
			zap.Error(err),
		)
	}

	respond(w, status, envelope{
		Message: ae.Message,
		Error: &errorBody{
			Kind:          ae.Kind,
			SalesCallID:   ae.CallID,
			HasTranscript: ae.HasTranscript,
			HasScores:     ae.HasScores,
		},
	})
}

func statusFor(kind analysis.Kind) int {
	switch kind {
	case analysis.KindNotFound:
		return http.StatusNotFound
	case analysis.KindValidation,
		analysis.KindAlreadyAnalyzed,
		analysis.KindAlreadyScored,
		analysis.KindNoTranscript:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
