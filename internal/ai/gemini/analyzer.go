package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/marketsync/internal/ai"
	"github.com/spigell/marketsync/internal/cache"
	"github.com/spigell/marketsync/internal/jobs"
	"github.com/spigell/marketsync/internal/logger"
	"github.com/spigell/marketsync/internal/metrics"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

//go:embed prompt.md
var promptTemplate string

//go:embed repair.md
var repairTemplate string

const (
	DefaultLanguage     = "Swedish"
	DefaultResumePrefix = 2000

	defaultMaxLogLength = 200
)

var (
	scoringOptions = GenerateOptions{
		Temperature:     0.2,
		MaxOutputTokens: 1200,
		JSON:            true,
		Schema:          analysisSchema(),
	}

	repairOptions = GenerateOptions{
		Temperature:     0,
		MaxOutputTokens: 800,
		JSON:            true,
	}
)

type AnalyzerConfig struct {
	// Language of the summary and list items.
	Language string
	// ResumePrefix is how many leading runes of the résumé take part in the
	// cache key. Zero keys on the whole text.
	ResumePrefix int
	MaxLogLength int
}

// Analyzer scores a résumé against a job, repairing malformed model output once.
type Analyzer struct {
	generator    contentGenerator
	cache        *cache.TTL[*ai.Analysis]
	logger       *zap.Logger
	metrics      *metrics.Metrics
	language     string
	resumePrefix int
	maxLogLen    int
}

var _ ai.Analyzer = (*Analyzer)(nil)

func NewAnalyzer(generator contentGenerator, results *cache.TTL[*ai.Analysis], cfg AnalyzerConfig, logger *zap.Logger, m *metrics.Metrics) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}

	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = DefaultLanguage
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	prefix := cfg.ResumePrefix
	if prefix < 0 {
		prefix = DefaultResumePrefix
	}

	return &Analyzer{
		generator:    generator,
		cache:        results,
		logger:       logger,
		metrics:      m,
		language:     language,
		resumePrefix: prefix,
		maxLogLen:    maxLogLen,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, job *jobs.Job, resumeText string) (*ai.Analysis, error) {
	if job == nil || resumeText == "" {
		return nil, ai.ErrMissingInput
	}

	log := logger.WithFields(a.logger, logger.JobFields(job.ID, job.Source)...)

	key := cacheKey(job.ID, resumeText, a.resumePrefix)
	if a.cache != nil {
		cached, ok := a.cache.Get(key)
		a.metrics.CacheLookup(ok)
		if ok {
			log.Debug("analysis served from cache")
			return cached, nil
		}
	}

	prompt, err := a.buildPrompt(job, resumeText)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		logger.Preview("prompt_preview", prompt, a.maxLogLen),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt, scoringOptions)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		logger.Preview("response_preview", raw, a.maxLogLen),
	)

	parsed, ok := ai.ExtractObject(raw)
	if !ok {
		repaired, err := a.repair(ctx, log, raw)
		if err != nil {
			return nil, err
		}

		parsed, ok = ai.ExtractObject(repaired)
		a.metrics.Repair(ok)
		if !ok {
			a.metrics.Placeholder()
			log.Warn("model output is not JSON after repair",
				logger.Preview("response_preview", repaired, a.maxLogLen),
			)

			if repaired == "" {
				repaired = raw
			}
			return ai.Placeholder(repaired), nil
		}
	}

	result := ai.Sanitize(parsed)
	if a.cache != nil {
		a.cache.Set(key, result)
	}

	return result, nil
}

// repair asks the model once to turn its own malformed output into JSON.
func (a *Analyzer) repair(ctx context.Context, log *zap.Logger, raw string) (string, error) {
	log.Info("model output is not JSON, requesting repair",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
	)

	prompt := strings.NewReplacer("{{INPUT}}", raw).Replace(strings.TrimSpace(repairTemplate))

	repaired, err := a.generator.GenerateContent(ctx, prompt, repairOptions)
	if err != nil {
		return "", &ai.RepairError{Raw: raw, Err: err}
	}

	return repaired, nil
}

func (a *Analyzer) buildPrompt(job *jobs.Job, resumeText string) (string, error) {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	return strings.NewReplacer(
		"{{LANGUAGE}}", a.language,
		"{{JOB_JSON}}", string(jobJSON),
		"{{RESUME_TEXT}}", resumeText,
	).Replace(strings.TrimSpace(promptTemplate)), nil
}

// cacheKey combines the job id with a digest of the leading prefix runes of the résumé.
func cacheKey(jobID, resumeText string, prefix int) string {
	if prefix > 0 {
		runes := []rune(resumeText)
		if len(runes) > prefix {
			resumeText = string(runes[:prefix])
		}
	}

	sum := sha256.Sum256([]byte(resumeText))
	return jobID + "::" + hex.EncodeToString(sum[:])
}

func analysisSchema() *genai.Schema {
	list := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":            {Type: genai.TypeInteger},
			"summary":          {Type: genai.TypeString},
			"technical_match":  list,
			"requirement_gap":  list,
			"strategic_advice": list,
		},
		Required: []string{"score", "summary", "technical_match", "requirement_gap", "strategic_advice"},
	}
}
