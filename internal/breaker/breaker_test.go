package breaker

import (
	"errors"
	"net/http"
	"testing"

	"github.com/spigell/marketsync/internal/upstream"

	"go.uber.org/zap"
)

func TestNilBreakerRunsDirectly(t *testing.T) {
	var b *Breaker[int]
	if b = New[int]("test", &Config{Enabled: false}, nil); b != nil {
		t.Fatalf("expected nil breaker when disabled")
	}

	got, err := b.Execute(func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("unexpected result: %d, %v", got, err)
	}
	if b.State() != "disabled" {
		t.Fatalf("unexpected state: %s", b.State())
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	b := New[int]("jobtech", &Config{Enabled: true, MinRequests: 2, FailureRatio: 0.5}, zap.NewNop())

	failure := &upstream.Error{Service: "jobtech", StatusCode: http.StatusBadGateway}
	for i := 0; i < 2; i++ {
		if _, err := b.Execute(func() (int, error) { return 0, failure }); !errors.Is(err, failure) {
			t.Fatalf("expected upstream failure, got %v", err)
		}
	}

	_, err := b.Execute(func() (int, error) {
		t.Fatalf("call must not reach upstream while open")
		return 0, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestBreakerIgnoresClientErrorsAndRateLimits(t *testing.T) {
	b := New[int]("gemini", &Config{Enabled: true, MinRequests: 1, FailureRatio: 0.1}, zap.NewNop())

	errs := []error{
		&upstream.Error{Service: "gemini", StatusCode: http.StatusBadRequest},
		upstream.NewRateLimitError("gemini", "retry in 1s"),
	}
	for _, e := range errs {
		_, _ = b.Execute(func() (int, error) { return 0, e })
	}

	if b.State() != "closed" {
		t.Fatalf("expected breaker to stay closed, got %s", b.State())
	}
}
