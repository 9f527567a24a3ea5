package jobs

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Job is the unified job record shape shared by every job source.
// Absent upstream data is represented by empty strings and empty slices.
type Job struct {
	ID               string   `json:"id" mapstructure:"id"`
	Source           string   `json:"source" mapstructure:"source"`
	SourceURL        string   `json:"sourceUrl" mapstructure:"sourceUrl"`
	Title            string   `json:"title" mapstructure:"title"`
	Company          string   `json:"company" mapstructure:"company"`
	Location         string   `json:"location" mapstructure:"location"`
	EmploymentType   string   `json:"employmentType" mapstructure:"employmentType"`
	Seniority        string   `json:"seniority" mapstructure:"seniority"`
	Description      string   `json:"description" mapstructure:"description"`
	RequirementsText string   `json:"requirementsText" mapstructure:"requirementsText"`
	Skills           []string `json:"skills" mapstructure:"skills"`
	PublishedAt      string   `json:"publishedAt" mapstructure:"publishedAt"`
	ExpiresAt        string   `json:"expiresAt" mapstructure:"expiresAt"`
}

// Decode converts a loosely typed job object, as sent by browsers, into a Job.
// Scalars are coerced to strings, so a numeric id is accepted.
func Decode(raw map[string]any) (*Job, error) {
	var job Job

	cfg := &mapstructure.DecoderConfig{
		Result:           &job,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}

	if job.Skills == nil {
		job.Skills = []string{}
	}

	return &job, nil
}
