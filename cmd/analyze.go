package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/marketsync/internal/jobs"
	"github.com/spigell/marketsync/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const PromptCancel = "cancel"

var errCancelled = errors.New("cancelled from prompt")

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Search jobs, pick one and score the résumé against it",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addSearchFlags(analyzeCmd)

	analyzeCmd.Flags().StringP("resume", "r", "", "plain-text résumé file")
	analyzeCmd.Flags().IntP("index", "i", -1, "index of the job to analyze, skips the interactive picker")
	analyzeCmd.MarkFlagRequired("resume")
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	resumeFile := cmd.Flag("resume").Value.String()
	resume, err := os.ReadFile(resumeFile)
	if err != nil {
		logger.Fatal("reading resume", zap.String("filename", resumeFile), zap.Error(err))
	}
	resumeText := strings.TrimSpace(string(resume))
	if resumeText == "" {
		logger.Fatal("resume is empty", zap.String("filename", resumeFile))
	}

	c, err := newComponents(ctx, config, logger, nil)
	if err != nil {
		logger.Fatal("wiring components", zap.Error(err))
	}
	if c.analyzer == nil {
		logger.Fatal("analysis requires a gemini api key", zap.String("hint", "set GEMINI_API_KEY or GEMINI_API_KEY_FILE"))
	}

	params := searchParams(cmd)
	logger.Info("starting the search", zap.String("query", params.Query))

	found, err := c.jobs.Search(ctx, params)
	if err != nil {
		logger.Fatal("searching jobs", zap.Error(err))
	}
	if len(found) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs found"))
		return
	}

	index, _ := cmd.Flags().GetInt("index")
	job, err := pickJob(found, index)
	if err != nil {
		if errors.Is(err, errCancelled) {
			logger.Info("exiting", zap.String("reason", "got cancel from prompt"))
			return
		}
		logger.Fatal("choosing a job", zap.Error(err))
	}

	logger.Info("analyzing job",
		zap.String("job_id", job.ID),
		zap.String("title", job.Title),
		zap.String("company", job.Company),
	)

	result, err := c.analyzer.Analyze(ctx, job, resumeText)
	if err != nil {
		logger.Fatal("analyzing job", zap.Error(err))
	}

	if err := printJSON(os.Stdout, result); err != nil {
		logger.Fatal("encoding analysis", zap.Error(err))
	}
}

// pickJob returns the job at index, or asks the user when index is negative.
func pickJob(found []jobs.Job, index int) (*jobs.Job, error) {
	if index >= 0 {
		if index >= len(found) {
			return nil, fmt.Errorf("job index %d is out of range, found %d jobs", index, len(found))
		}
		return &found[index], nil
	}

	items := make([]string, 0, len(found)+1)
	for _, j := range found {
		items = append(items, jobLabel(j))
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: append(items, PromptCancel),
		Size:  10,
	}

	selected, _, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}
	if selected == len(found) {
		return nil, errCancelled
	}

	return &found[selected], nil
}

func jobLabel(j jobs.Job) string {
	parts := []string{j.Title}
	if j.Company != "" {
		parts = append(parts, j.Company)
	}
	if j.Location != "" {
		parts = append(parts, j.Location)
	}
	return fmt.Sprintf("%s %s", j.ID, strings.Join(parts, " / "))
}
