package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/marketsync/internal/ai"
	"github.com/spigell/marketsync/internal/ai/gemini"
	"github.com/spigell/marketsync/internal/breaker"
	"github.com/spigell/marketsync/internal/cache"
	"github.com/spigell/marketsync/internal/jobs"
	"github.com/spigell/marketsync/internal/jobtech"
	"github.com/spigell/marketsync/internal/logger"
	"github.com/spigell/marketsync/internal/metrics"
	"github.com/spigell/marketsync/internal/secrets"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultCacheTTL = 10 * time.Minute

// components are the wired clients shared by the commands. analyzer and
// models stay nil when no model credential is configured.
type components struct {
	jobs     *jobtech.Client
	analyzer *gemini.Analyzer
	models   *gemini.ModelLister
}

func newComponents(ctx context.Context, config *Config, log *zap.Logger, m *metrics.Metrics) (*components, error) {
	c := &components{jobs: newJobTech(config, log, m)}

	apiKey, err := resolveAPIKey(config.Gemini)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		log.Warn("gemini api key is not configured, analysis is disabled",
			zap.String("hint", "set GEMINI_API_KEY or GEMINI_API_KEY_FILE"),
		)
		return c, nil
	}

	c.analyzer, err = newAnalyzer(ctx, config, apiKey, log, m)
	if err != nil {
		return nil, fmt.Errorf("building gemini analyzer: %w", err)
	}
	c.models = gemini.NewModelLister(apiKey, config.Gemini.BaseURL, config.Gemini.Timeout, log)

	return c, nil
}

func newJobTech(config *Config, log *zap.Logger, m *metrics.Metrics) *jobtech.Client {
	client := jobtech.New(log,
		jobtech.WithMetrics(m),
		jobtech.WithBreaker(breaker.New[[]jobs.Job](jobtech.ServiceName, config.Breaker, log)),
	)

	if config.JobTech == nil {
		return client
	}
	if config.JobTech.URL != "" {
		client.APIURL = config.JobTech.URL
	}
	if config.JobTech.UserAgent != "" {
		client.UserAgent = config.JobTech.UserAgent
	}
	if config.JobTech.Timeout > 0 {
		client.Timeout = config.JobTech.Timeout
	}

	return client
}

func newAnalyzer(ctx context.Context, config *Config, apiKey string, log *zap.Logger, m *metrics.Metrics) (*gemini.Analyzer, error) {
	g := config.Gemini

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:  apiKey,
		Model:   g.Model,
		BaseURL: g.BaseURL,
		Timeout: g.Timeout,
	}, log,
		gemini.WithMetrics(m),
		gemini.WithBreaker(breaker.New[*genai.GenerateContentResponse](gemini.ServiceName, config.Breaker, log)),
	)
	if err != nil {
		return nil, err
	}

	cfg := gemini.AnalyzerConfig{
		ResumePrefix: gemini.DefaultResumePrefix,
		MaxLogLength: g.MaxLogLength,
	}
	if config.Analysis != nil {
		cfg.Language = config.Analysis.Language
	}

	results := cache.NewTTL[*ai.Analysis](defaultCacheTTL, 0)
	if config.Cache != nil {
		cfg.ResumePrefix = config.Cache.ResumePrefix
		ttl := config.Cache.TTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		results = cache.NewTTL[*ai.Analysis](ttl, config.Cache.Capacity)
	}

	analyzerLogger := logger.WithCommonFields(log, gemini.ServiceName, generator.Model())

	return gemini.NewAnalyzer(generator, results, cfg, analyzerLogger, m), nil
}

// resolveAPIKey returns the configured credential. An empty key without error
// means the credential is simply absent.
func resolveAPIKey(cfg *GeminiConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}

	return secrets.Load(secrets.Source{
		Name:     "gemini api key",
		Value:    cfg.APIKey,
		File:     cfg.APIKeyFile,
		Optional: true,
	})
}
