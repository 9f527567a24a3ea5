package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spigell/marketsync/internal/jobtech"
	"github.com/spigell/marketsync/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search jobs and print them in the unified format",
	Run: func(cmd *cobra.Command, _ []string) {
		search(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("query", "q", jobtech.DefaultQuery, "free-text search query")
	cmd.Flags().StringP("limit", "l", jobtech.DefaultLimit, "maximum number of jobs")
}

func searchParams(cmd *cobra.Command) *jobtech.SearchParams {
	return &jobtech.SearchParams{
		Query: cmd.Flag("query").Value.String(),
		Limit: cmd.Flag("limit").Value.String(),
	}
}

func search(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	params := searchParams(cmd)
	logger.Info("starting the search", zap.String("query", params.Query), zap.String("limit", params.Limit))

	found, err := newJobTech(config, logger, nil).Search(ctx, params)
	if err != nil {
		logger.Fatal("searching jobs", zap.Error(err))
	}

	logger.Info("getting jobs", zap.Int("count", len(found)))

	if err := printJSON(os.Stdout, found); err != nil {
		logger.Fatal("encoding jobs", zap.Error(err))
	}
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
