package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/marketsync/internal/logger"
	"github.com/spigell/marketsync/internal/metrics"
	"github.com/spigell/marketsync/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job search and fit analysis HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8888)")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the marketsync server", zap.String("version", version))

	m := metrics.New()

	c, err := newComponents(ctx, config, logger, m)
	if err != nil {
		logger.Fatal("wiring components", zap.Error(err))
	}

	cfg := &server.Config{}
	if config.Server != nil {
		cfg = config.Server
	}
	cfg.Listen = config.Listen

	deps := &server.Deps{
		Jobs:    c.jobs,
		Metrics: m,
		Logger:  logger,
	}
	// typed nils must not leak into the interfaces
	if c.analyzer != nil {
		deps.Analyzer = c.analyzer
	}
	if c.models != nil {
		deps.Models = c.models
	}

	if err := server.New(cfg, deps).Run(ctx); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "server stopped"))
}
