package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestShorten(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit drops text", input: "prompt", limit: 0, expect: ""},
		{name: "fits exactly", input: "prompt", limit: 6, expect: "prompt"},
		{name: "cut with ellipsis", input: "prompt text", limit: 6, expect: "prompt..."},
		{name: "counts runes not bytes", input: "åäöåäö", limit: 3, expect: "åäö..."},
		{name: "surrounding space is ignored", input: "\n  svar  \n", limit: 4, expect: "svar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shorten(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestPreviewField(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	zap.New(core).Debug("response", Preview("response_preview", strings.Repeat("x", 300), 200))

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}

	got, _ := entries[0].ContextMap()["response_preview"].(string)
	if len(got) != 203 || !strings.HasSuffix(got, ellipsis) {
		t.Fatalf("unexpected preview %q", got)
	}
}
