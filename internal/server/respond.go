package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spigell/marketsync/internal/ai"
	"github.com/spigell/marketsync/internal/breaker"
	"github.com/spigell/marketsync/internal/upstream"
)

type errorResponse struct {
	Error        string   `json:"error"`
	Details      string   `json:"details,omitempty"`
	RetrySeconds *float64 `json:"retrySeconds,omitempty"`
	Raw          *string  `json:"raw,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// jobsFailure maps a job search error to a response.
func jobsFailure(err error) (int, errorResponse) {
	var upErr *upstream.Error
	var rl *upstream.RateLimitError

	switch {
	case errors.As(err, &upErr):
		return upErr.HTTPStatus(), errorResponse{Error: "JobTech request failed", Details: upErr.Body}
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, errorResponse{Error: "JobTech request failed", Details: rl.Body}
	case errors.Is(err, breaker.ErrOpen):
		return http.StatusServiceUnavailable, errorResponse{Error: "JobTech request failed", Details: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: "JobTech request failed", Details: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Server error", Details: err.Error()}
	}
}

// analyzeFailure maps an analysis error to a response. A rate-limited or
// timed out repair call is reported as a plain rate limit or timeout.
func analyzeFailure(err error) (int, errorResponse) {
	var rl *upstream.RateLimitError
	var repairErr *ai.RepairError
	var upErr *upstream.Error

	switch {
	case errors.Is(err, ai.ErrMissingInput):
		return http.StatusBadRequest, errorResponse{Error: "Missing job or resumeText"}
	case errors.Is(err, ErrNotConfigured):
		return http.StatusInternalServerError, errorResponse{Error: "Missing GEMINI_API_KEY"}
	case errors.As(err, &rl):
		retry := rl.RetrySeconds
		return http.StatusTooManyRequests, errorResponse{Error: "Rate limited", RetrySeconds: &retry, Details: rl.Body}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: "Gemini timed out", Details: err.Error()}
	case errors.As(err, &repairErr):
		raw := repairErr.Raw
		return http.StatusBadGateway, errorResponse{Error: "Gemini repair failed", Details: details(repairErr.Err), Raw: &raw}
	case errors.As(err, &upErr):
		return upErr.HTTPStatus(), errorResponse{Error: "Gemini failed", Details: upErr.Body}
	case errors.Is(err, breaker.ErrOpen):
		return http.StatusServiceUnavailable, errorResponse{Error: "Gemini unavailable", Details: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Server error", Details: err.Error()}
	}
}

// details prefers the raw upstream payload over the error text.
func details(err error) string {
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		return upErr.Body
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
