package jobs

import "testing"

func TestDecodeCoercesLooseTypes(t *testing.T) {
	job, err := Decode(map[string]any{
		"id":       float64(29183746),
		"title":    "Frontendutvecklare",
		"company":  "Acme AB",
		"skills":   []any{"React", "TypeScript"},
		"unknown":  "ignored",
		"location": nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.ID != "29183746" {
		t.Fatalf("expected numeric id coerced to string, got %q", job.ID)
	}
	if job.Title != "Frontendutvecklare" || job.Company != "Acme AB" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(job.Skills) != 2 || job.Skills[1] != "TypeScript" {
		t.Fatalf("unexpected skills: %v", job.Skills)
	}
	if job.Location != "" {
		t.Fatalf("expected empty location, got %q", job.Location)
	}
}

func TestDecodeDefaultsSkills(t *testing.T) {
	job, err := Decode(map[string]any{"id": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Skills == nil {
		t.Fatalf("expected empty skills slice, got nil")
	}
}

func TestDecodeRejectsObjectsInScalarFields(t *testing.T) {
	if _, err := Decode(map[string]any{"title": map[string]any{"sv": "x"}}); err == nil {
		t.Fatalf("expected error for object title")
	}
}
