package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spigell/marketsync/internal/ai"
	"github.com/spigell/marketsync/internal/jobs"
	"github.com/spigell/marketsync/internal/jobtech"
	"github.com/spigell/marketsync/internal/logger"

	"go.uber.org/zap"
)

type jobsResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

type analyzeRequest struct {
	Job        map[string]any `json:"job"`
	ResumeText string         `json:"resumeText"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Use GET"})
		return
	}

	params := &jobtech.SearchParams{
		Query: r.URL.Query().Get("q"),
		Limit: r.URL.Query().Get("limit"),
	}

	found, err := s.jobs.Search(r.Context(), params)
	if err != nil {
		status, body := jobsFailure(err)
		s.logger.Warn("job search failed",
			logger.RequestID(RequestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, jobsResponse{Jobs: found})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Use POST"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body", Details: err.Error()})
		return
	}

	if req.Job == nil || req.ResumeText == "" {
		s.writeAnalyzeError(w, r, ai.ErrMissingInput)
		return
	}

	job, err := jobs.Decode(req.Job)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid job", Details: err.Error()})
		return
	}

	if s.analyzer == nil {
		s.writeAnalyzeError(w, r, ErrNotConfigured)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AnalyzeTimeout)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, job, req.ResumeText)
	if err != nil {
		s.writeAnalyzeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := analyzeFailure(err)
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		s.logger.Warn("analysis failed",
			logger.RequestID(RequestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Use GET"})
		return
	}

	if s.models == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Missing GEMINI_API_KEY"})
		return
	}

	status, body, err := s.models.ListModels(r.Context())
	if err != nil {
		s.logger.Warn("listing models failed",
			logger.RequestID(RequestID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Server error", Details: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
