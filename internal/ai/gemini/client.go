package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/marketsync/internal/breaker"
	"github.com/spigell/marketsync/internal/logger"
	"github.com/spigell/marketsync/internal/metrics"
	"github.com/spigell/marketsync/internal/upstream"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// DefaultModel is used when no model override is configured.
	DefaultModel = "gemini-2.5-flash"
	// ServiceName is used in upstream errors and metrics.
	ServiceName = "gemini"

	defaultTimeout = 60 * time.Second
)

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	// JSON requests an application/json response.
	JSON bool
	// Schema optionally constrains the JSON response.
	Schema *genai.Schema
}

// contentModels is the subset of *genai.Models used by the Generator.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models    contentModels
	modelName string
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
	breaker   *breaker.Breaker[*genai.GenerateContentResponse]
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type GeneratorOption func(*Generator)

func WithMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

func WithBreaker(b *breaker.Breaker[*genai.GenerateContentResponse]) GeneratorOption {
	return func(g *Generator) { g.breaker = b }
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, log *zap.Logger, opts ...GeneratorOption) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, log, opts...), nil
}

func newGenerator(models contentModels, cfg Config, log *zap.Logger, opts ...GeneratorOption) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	g := &Generator{
		models:    models,
		modelName: model,
		timeout:   timeout,
		logger:    logger.WithCommonFields(log, ServiceName, model),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// GenerateContent sends the prompt to Gemini and returns all text parts of the
// first candidate joined together. An empty answer is not an error.
func (g *Generator) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = opts.Schema
	}

	started := time.Now()
	resp, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
		if err != nil {
			return nil, classify(err)
		}
		return resp, nil
	})
	g.metrics.ObserveUpstream(ServiceName, err)
	if err != nil {
		g.logger.Warn("gemini generate content failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return "", err
	}

	return responseText(resp), nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}

	return strings.TrimSpace(builder.String())
}

// classify turns SDK API errors into upstream errors carrying the error payload.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("generate content: %w", err)
		}
		apiErr = *ptr
	}

	body := errorBody(apiErr)
	if apiErr.Code == http.StatusTooManyRequests {
		return upstream.NewRateLimitError(ServiceName, body)
	}

	return &upstream.Error{Service: ServiceName, StatusCode: apiErr.Code, Body: body}
}

// errorBody rebuilds the API error envelope as returned on the wire.
func errorBody(apiErr genai.APIError) string {
	envelope := map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"status":  apiErr.Status,
			"details": apiErr.Details,
		},
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return apiErr.Error()
	}
	return string(data)
}
