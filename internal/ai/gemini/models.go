package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// ModelLister fetches the raw "list models" document. The SDK pager decodes
// into typed models, so this goes over plain HTTP to keep the body verbatim.
type ModelLister struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	logger     *zap.Logger
}

func NewModelLister(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *ModelLister {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ModelLister{
		APIKey:     strings.TrimSpace(apiKey),
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListModels returns the upstream status code and body unmodified.
func (l *ModelLister) ListModels(ctx context.Context) (int, []byte, error) {
	url := fmt.Sprintf("%s/v1beta/models", l.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("x-goog-api-key", l.APIKey)

	l.logger.Debug("make request", zap.String("url", url))
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read list models response: %w", err)
	}

	return resp.StatusCode, body, nil
}
