package rest

import (
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/worker"
)

const (
	errCodeInvalidInput  = "INVALID_INPUT"
	errCodeMissingData   = "MISSING_FEATURE_DATA"
	errCodeNotFound      = "NOT_FOUND"
	errCodeNotFinished   = "NOT_FINISHED"
	errCodeNoResult      = "RESULT_UNAVAILABLE"
	errCodeQueueFull     = "QUEUE_FULL"
	errCodeUnavailable   = "UNAVAILABLE"
	errCodeInternalError = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN rest: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps core and pool errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingFeatureData):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeMissingData)
	case errors.Is(err, domain.ErrDegenerateInput), errors.Is(err, domain.ErrInvalidWeights):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeInvalidInput)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, "task not found", errCodeNotFound)
	case errors.Is(err, worker.ErrNotFinished):
		writeErrorWithCode(w, http.StatusConflict, err.Error(), errCodeNotFinished)
	case errors.Is(err, worker.ErrNoResult):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNoResult)
	case errors.Is(err, worker.ErrQueueFull):
		writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeQueueFull)
	case errors.Is(err, worker.ErrStopped):
		writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeUnavailable)
	default:
		log.Printf("WARN rest: unexpected error: %v", err)
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternalError)
	}
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
