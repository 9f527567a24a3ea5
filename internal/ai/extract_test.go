package ai

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtractObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect map[string]any
	}{
		{
			name:   "surrounding prose",
			input:  `Here is the result: {"score": 7, "summary":"ok"} done`,
			expect: map[string]any{"score": float64(7), "summary": "ok"},
		},
		{
			name:   "whole document",
			input:  `{"score": 90, "technical_match": ["Go"]}`,
			expect: map[string]any{"score": float64(90), "technical_match": []any{"Go"}},
		},
		{
			name:   "nested object followed by prose with braces",
			input:  "result {\"a\": {\"b\": 1}} and later {\"c\": 2}",
			expect: map[string]any{"a": map[string]any{"b": float64(1)}},
		},
		{
			name:   "markdown fence",
			input:  "```json\n{\"score\": 55}\n```",
			expect: map[string]any{"score": float64(55)},
		},
		{
			name:  "truncated object",
			input: `{"score": 80, "summary": "Stark kandidat", "technical_match": ["React"`,
		},
		{
			name:  "truncated nested object",
			input: `prefix {"a": {"b": 1}`,
		},
		{
			name:  "no object",
			input: "I cannot answer that.",
		},
		{
			name:  "empty",
			input: "   ",
		},
		{
			name:  "first balanced span is invalid",
			input: `{not json} {"score": 1}`,
		},
		{
			name:  "top-level array",
			input: `[1, 2, 3]`,
		},
		{
			name:  "null literal",
			input: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ExtractObject(tt.input)
			if tt.expect == nil {
				if ok {
					t.Fatalf("expected no result, got %v", got)
				}
				return
			}

			if !ok {
				t.Fatalf("expected an object, got none")
			}
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestExtractObjectIgnoresPrefixAndSuffix(t *testing.T) {
	payload := `{"score": 64, "summary": "Bra match", "requirement_gap": ["AWS"], "meta": {"k": [1, {"x": null}]}}`

	var expect map[string]any
	if err := json.Unmarshal([]byte(payload), &expect); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}

	prefixes := []string{"", "Sure!\n", "Svar: ", "json: "}
	suffixes := []string{"", "\nHope this helps.", " }}} trailing", " {\"other\": 1}"}

	for _, prefix := range prefixes {
		for _, suffix := range suffixes {
			got, ok := ExtractObject(prefix + payload + suffix)
			if !ok {
				t.Fatalf("prefix %q suffix %q: expected object", prefix, suffix)
			}
			if !reflect.DeepEqual(got, expect) {
				t.Fatalf("prefix %q suffix %q: expected %v, got %v", prefix, suffix, expect, got)
			}
		}
	}
}
