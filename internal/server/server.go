package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spigell/marketsync/internal/ai"
	"github.com/spigell/marketsync/internal/jobs"
	"github.com/spigell/marketsync/internal/jobtech"
	"github.com/spigell/marketsync/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	JobsPath    = "/api/jobs"
	AnalyzePath = "/api/analyze"
	ModelsPath  = "/api/models"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	defaultListen          = ":8888"
	defaultMaxBodyBytes    = 1 << 20
	defaultTimeout         = 90 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// ErrNotConfigured is reported when the model credential is absent.
var ErrNotConfigured = errors.New("gemini api key is not configured")

type JobSearcher interface {
	Search(ctx context.Context, params *jobtech.SearchParams) ([]jobs.Job, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) (int, []byte, error)
}

type Config struct {
	Listen          string        `mapstructure:"listen"`
	MaxBodyBytes    int64         `mapstructure:"max-body-bytes"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	AnalyzeTimeout  time.Duration `mapstructure:"analyze-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

// Deps are the collaborators of the HTTP handlers. Analyzer and Models are
// left nil when no model credential is configured.
type Deps struct {
	Jobs     JobSearcher
	Analyzer ai.Analyzer
	Models   ModelLister
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

type Server struct {
	cfg      Config
	jobs     JobSearcher
	analyzer ai.Analyzer
	models   ModelLister
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func New(cfg *Config, deps *Deps) *Server {
	s := &Server{logger: zap.NewNop()}
	if cfg != nil {
		s.cfg = *cfg
	}
	if s.cfg.Listen == "" {
		s.cfg.Listen = defaultListen
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if s.cfg.ReadTimeout <= 0 {
		s.cfg.ReadTimeout = defaultTimeout
	}
	if s.cfg.WriteTimeout <= 0 {
		s.cfg.WriteTimeout = defaultTimeout
	}
	// An analysis, repair included, must end before the write deadline.
	if s.cfg.AnalyzeTimeout <= 0 || s.cfg.AnalyzeTimeout >= s.cfg.WriteTimeout {
		s.cfg.AnalyzeTimeout = s.cfg.WriteTimeout - s.cfg.WriteTimeout/10
	}
	if s.cfg.ShutdownTimeout <= 0 {
		s.cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if deps != nil {
		s.jobs = deps.Jobs
		s.analyzer = deps.Analyzer
		s.models = deps.Models
		s.metrics = deps.Metrics
		if deps.Logger != nil {
			s.logger = deps.Logger
		}
	}

	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(JobsPath, s.handleJobs)
	mux.HandleFunc(AnalyzePath, s.handleAnalyze)
	mux.HandleFunc(ModelsPath, s.handleModels)
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.Handle(MetricsPath, s.metrics.Handler())

	var h http.Handler = mux
	h = cors(h)
	h = s.recoverer(h)
	h = s.accessLog(h)
	h = requestID(h)

	return h
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}

	return s.Serve(ctx, ln)
}

// Serve handles requests on ln and shuts down gracefully once ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting http server", zap.String("listen", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server", zap.Duration("timeout", s.cfg.ShutdownTimeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
