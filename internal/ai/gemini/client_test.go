package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/marketsync/internal/breaker"
	"github.com/spigell/marketsync/internal/metrics"
	"github.com/spigell/marketsync/internal/upstream"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelsCallRecord
	queue []fakeModelsResponse
}

type modelsCallRecord struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	deadline bool
}

type fakeModelsResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeModelsResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	f.calls = append(f.calls, modelsCallRecord{model: model, contents: contents, config: config, deadline: hasDeadline})

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: parts},
		}},
	}
}

func TestGeneratorJoinsTextParts(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(
		&genai.Part{Text: "thinking...", Thought: true},
		&genai.Part{Text: `  {"score":`},
		&genai.Part{Text: `80}  `},
	), nil)

	g := newGenerator(models, Config{Model: "gemini-test"}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "prompt", GenerateOptions{Temperature: 0.2, MaxOutputTokens: 1200, JSON: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != `{"score":80}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if !call.deadline {
		t.Fatalf("expected call to carry a deadline")
	}
	if len(call.contents) != 1 || call.contents[0].Parts[0].Text != "prompt" {
		t.Fatalf("unexpected contents: %+v", call.contents)
	}
}

func TestGeneratorOptions(t *testing.T) {
	schema := &genai.Schema{Type: genai.TypeObject}

	tests := []struct {
		name       string
		opts       GenerateOptions
		expectMIME string
		expectSch  bool
	}{
		{
			name:       "json with schema",
			opts:       GenerateOptions{Temperature: 0.2, MaxOutputTokens: 1200, JSON: true, Schema: schema},
			expectMIME: "application/json",
			expectSch:  true,
		},
		{
			name:       "json without schema",
			opts:       GenerateOptions{Temperature: 0, MaxOutputTokens: 800, JSON: true},
			expectMIME: "application/json",
		},
		{
			name: "plain text",
			opts: GenerateOptions{Temperature: 0.5, MaxOutputTokens: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{}
			models.enqueue(textResponse(&genai.Part{Text: "ok"}), nil)

			g := newGenerator(models, Config{}, zap.NewNop())
			if _, err := g.GenerateContent(context.Background(), "p", tt.opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			cfg := models.calls[0].config
			if models.calls[0].model != DefaultModel {
				t.Fatalf("expected default model, got %q", models.calls[0].model)
			}
			if cfg.Temperature == nil || *cfg.Temperature != tt.opts.Temperature {
				t.Fatalf("unexpected temperature: %v", cfg.Temperature)
			}
			if cfg.MaxOutputTokens != tt.opts.MaxOutputTokens {
				t.Fatalf("unexpected max output tokens: %d", cfg.MaxOutputTokens)
			}
			if cfg.ResponseMIMEType != tt.expectMIME {
				t.Fatalf("unexpected mime type: %q", cfg.ResponseMIMEType)
			}
			if (cfg.ResponseSchema != nil) != tt.expectSch {
				t.Fatalf("unexpected schema presence: %v", cfg.ResponseSchema)
			}
		})
	}
}

func TestGeneratorEmptyAnswer(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{}, nil)

	g := newGenerator(models, Config{}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "prompt", GenerateOptions{})
	if err != nil {
		t.Fatalf("expected empty answer without error, got %v", err)
	}
	if output != "" {
		t.Fatalf("expected empty output, got %q", output)
	}
}

func TestGeneratorClassifiesErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "rate limit with retry hint",
			err: genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "Quota exceeded. Please retry in 12.5s.",
			},
			check: func(t *testing.T, err error) {
				var rl *upstream.RateLimitError
				if !errors.As(err, &rl) {
					t.Fatalf("expected RateLimitError, got %v", err)
				}
				if rl.RetrySeconds != 12.5 {
					t.Fatalf("expected retry 12.5, got %v", rl.RetrySeconds)
				}
				if !strings.Contains(rl.Body, "RESOURCE_EXHAUSTED") {
					t.Fatalf("expected error envelope in body, got %q", rl.Body)
				}
			},
		},
		{
			name: "rate limit without hint",
			err:  &genai.APIError{Code: http.StatusTooManyRequests, Message: "slow down"},
			check: func(t *testing.T, err error) {
				var rl *upstream.RateLimitError
				if !errors.As(err, &rl) {
					t.Fatalf("expected RateLimitError, got %v", err)
				}
				if rl.RetrySeconds != upstream.DefaultRetrySeconds {
					t.Fatalf("expected default retry, got %v", rl.RetrySeconds)
				}
			},
		},
		{
			name: "bad status",
			err:  genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "bad"},
			check: func(t *testing.T, err error) {
				var upErr *upstream.Error
				if !errors.As(err, &upErr) {
					t.Fatalf("expected upstream.Error, got %v", err)
				}
				if upErr.StatusCode != http.StatusBadRequest || upErr.HTTPStatus() != http.StatusBadRequest {
					t.Fatalf("unexpected status: %d", upErr.StatusCode)
				}
				if !strings.Contains(upErr.Body, `"message":"bad"`) {
					t.Fatalf("unexpected body: %q", upErr.Body)
				}
			},
		},
		{
			name: "transport error",
			err:  context.DeadlineExceeded,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, context.DeadlineExceeded) {
					t.Fatalf("expected wrapped deadline error, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{}
			models.enqueue(nil, tt.err)

			g := newGenerator(models, Config{}, zap.NewNop())

			_, err := g.GenerateContent(context.Background(), "prompt", GenerateOptions{})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestGeneratorMetricsAndBreaker(t *testing.T) {
	models := &fakeModels{}
	serverErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(nil, serverErr)
	models.enqueue(nil, serverErr)

	m := metrics.New()
	b := breaker.New[*genai.GenerateContentResponse]("gemini", &breaker.Config{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Minute,
	}, zap.NewNop())

	g := newGenerator(models, Config{}, zap.NewNop(), WithMetrics(m), WithBreaker(b))

	for i := 0; i < 2; i++ {
		if _, err := g.GenerateContent(context.Background(), "prompt", GenerateOptions{}); err == nil {
			t.Fatal("expected upstream error")
		}
	}

	_, err := g.GenerateContent(context.Background(), "prompt", GenerateOptions{})
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected open breaker to skip the call, got %d calls", len(models.calls))
	}

	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(ServiceName, "bad_status")); got != 2 {
		t.Fatalf("expected 2 bad_status observations, got %v", got)
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), Config{APIKey: "  "}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
