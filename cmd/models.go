package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/spigell/marketsync/internal/ai/gemini"
	"github.com/spigell/marketsync/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the generative models available to the configured key",
	Run: func(_ *cobra.Command, _ []string) {
		listModels()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func listModels() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	apiKey, err := resolveAPIKey(config.Gemini)
	if err != nil || apiKey == "" {
		logger.Fatal("loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or GEMINI_API_KEY_FILE"),
		)
	}

	lister := gemini.NewModelLister(apiKey, config.Gemini.BaseURL, config.Gemini.Timeout, logger)

	status, body, err := lister.ListModels(ctx)
	if err != nil {
		logger.Fatal("listing models", zap.Error(err))
	}
	if status != http.StatusOK {
		logger.Fatal("listing models", zap.Int("status", status), zap.ByteString("body", body))
	}

	fmt.Println(string(body))
}
