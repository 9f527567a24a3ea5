package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/spigell/marketsync/internal/breaker"
	"github.com/spigell/marketsync/internal/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "marketsync"
)

type Config struct {
	Listen   string          `mapstructure:"listen"`
	JobTech  *JobTechConfig  `mapstructure:"jobtech"`
	Gemini   *GeminiConfig   `mapstructure:"gemini"`
	Analysis *AnalysisConfig `mapstructure:"analysis"`
	Cache    *CacheConfig    `mapstructure:"cache"`
	Breaker  *breaker.Config `mapstructure:"breaker"`
	Server   *server.Config  `mapstructure:"server"`
}

type JobTechConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base-url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type AnalysisConfig struct {
	Language string `mapstructure:"language"`
}

type CacheConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	Capacity     int           `mapstructure:"capacity"`
	ResumePrefix int           `mapstructure:"resume-prefix"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "marketsync searches the Swedish job market and scores how well a résumé fits a job",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"gemini.api-key":      "GEMINI_API_KEY",
		"gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"gemini.model":        "GEMINI_MODEL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is marketsync.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("listen", ":8888")

	viper.SetDefault("jobtech.url", "https://jobsearch.api.jobtechdev.se")
	viper.SetDefault("jobtech.user-agent", "MarketSync-school-project")
	viper.SetDefault("jobtech.timeout", 10*time.Second)

	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.timeout", 60*time.Second)
	viper.SetDefault("gemini.max-log-length", 200)

	viper.SetDefault("analysis.language", "Swedish")

	viper.SetDefault("cache.ttl", 10*time.Minute)
	viper.SetDefault("cache.capacity", 1024)
	viper.SetDefault("cache.resume-prefix", 2000)

	viper.SetDefault("breaker.enabled", false)
	viper.SetDefault("breaker.min-requests", 5)
	viper.SetDefault("breaker.failure-ratio", 0.6)
	viper.SetDefault("breaker.timeout", 30*time.Second)

	viper.SetDefault("server.max-body-bytes", 1<<20)
	viper.SetDefault("server.read-timeout", 90*time.Second)
	viper.SetDefault("server.write-timeout", 90*time.Second)
	viper.SetDefault("server.analyze-timeout", 80*time.Second)
	viper.SetDefault("server.shutdown-timeout", 15*time.Second)
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
