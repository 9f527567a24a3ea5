package jobtech

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/marketsync/internal/breaker"
	"github.com/spigell/marketsync/internal/jobs"
	"github.com/spigell/marketsync/internal/metrics"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://jobsearch.api.jobtechdev.se"
	userAgent = "MarketSync-school-project"
	// Source is the value of Job.Source for every job produced by this package.
	Source = "jobtech"
	// ServiceName is used in upstream errors and metrics.
	ServiceName = "jobtech"

	defaultTimeout = 10 * time.Second
)

type Client struct {
	logger     *zap.Logger
	metrics    *metrics.Metrics
	breaker    *breaker.Breaker[[]jobs.Job]
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// Timeout bounds a single search, on top of the caller's context.
	Timeout time.Duration
}

type Option func(*Client)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithBreaker(b *breaker.Breaker[[]jobs.Job]) Option {
	return func(c *Client) { c.breaker = b }
}

func New(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		logger:     logger,
		APIURL:     apiURL,
		HTTPClient: &http.Client{},
		UserAgent:  userAgent,
		Timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Search queries the job-search API and returns normalized jobs.
func (c *Client) Search(ctx context.Context, params *SearchParams) ([]jobs.Job, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	found, err := c.breaker.Execute(func() ([]jobs.Job, error) {
		return c.search(ctx, params)
	})
	if err != nil {
		c.metrics.ObserveUpstream(ServiceName, err)
		return nil, err
	}

	c.metrics.ObserveUpstream(ServiceName, nil)
	return found, nil
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.APIURL, "/")
}
