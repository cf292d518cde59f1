package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ziadkadry99/udahub/internal/gateway"
	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/triage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the same envelope the gateway uses for failures.
func writeError(w http.ResponseWriter, status int, code, reason string) {
	writeJSON(w, status, gateway.Result{OK: false, Error: code, Details: map[string]any{"reason": reason}})
}

// classify maps a pipeline error to an HTTP status and failure code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrStageTimeout):
		return http.StatusGatewayTimeout, "stage_timeout"
	case errors.Is(err, triage.ErrClassificationFailed):
		return http.StatusUnprocessableEntity, "classification_failed"
	case errors.Is(err, triage.ErrRoutingFailed):
		return http.StatusUnprocessableEntity, "routing_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
