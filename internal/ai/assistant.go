package ai

import (
	"context"
	"errors"

	"github.com/spigell/marketsync/internal/jobs"
)

// Analysis is the validated fit assessment of a résumé against a job.
type Analysis struct {
	Score           int      `json:"score"`
	Summary         string   `json:"summary"`
	TechnicalMatch  []string `json:"technical_match"`
	RequirementGap  []string `json:"requirement_gap"`
	StrategicAdvice []string `json:"strategic_advice"`
	// Raw carries unparseable model output on placeholder results only.
	Raw string `json:"raw,omitempty"`
}

// ErrMissingInput is returned when a job or résumé text is not provided.
var ErrMissingInput = errors.New("missing job or resumeText")

type Analyzer interface {
	Analyze(ctx context.Context, job *jobs.Job, resumeText string) (*Analysis, error)
}

// PlaceholderScore is reported when model output could not be parsed.
const PlaceholderScore = 50

const placeholderSummary = "Kunde inte tolka AI-svaret som JSON. Försök igen."

// Placeholder is the low-confidence result returned instead of an error when
// neither the answer nor its repair could be parsed. raw is kept for inspection.
func Placeholder(raw string) *Analysis {
	return &Analysis{
		Score:           PlaceholderScore,
		Summary:         placeholderSummary,
		TechnicalMatch:  []string{},
		RequirementGap:  []string{},
		StrategicAdvice: []string{},
		Raw:             raw,
	}
}

// RepairError is returned when the repair round-trip itself fails upstream.
type RepairError struct {
	// Raw is the unparseable output that was sent for repair.
	Raw string
	Err error
}

func (e *RepairError) Error() string {
	return "repair malformed output: " + e.Err.Error()
}

func (e *RepairError) Unwrap() error { return e.Err }
