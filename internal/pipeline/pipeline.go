// Package pipeline implements the deterministic post-processing sequence:
// lexicon substitution, cleanup, numeral normalisation, and optional
// large-model polish, plus the confidence score emitted at the end.
package pipeline

import (
	"context"
	"time"

	"transcribeapi/internal/config"
	"transcribeapi/internal/lexicon"
	"transcribeapi/internal/models"
	"transcribeapi/pkg/logger"
)

// Options configures one pipeline run; it is built once per job from the
// process Config plus any per-job overrides (lexicon id).
type Options struct {
	EnableLexicon          bool
	EnableCleanup          bool
	EnableNumeral          bool
	EnableLargeModelPolish bool

	NumeralStrategy               config.NumeralStrategy
	LanguageNormalisationsEnabled bool
	Fuzzy                         lexicon.FuzzyOptions
	Confidence                    ConfidenceCoefficients

	LexiconID string
}

// Pipeline runs the four post-processing steps over a raw transcript.
type Pipeline struct {
	cache  *lexicon.Cache
	polish *PolishClient
}

// New constructs a Pipeline. polish may be nil when large-model polish is
// never enabled; the orchestrator checks before dereferencing it.
func New(cache *lexicon.Cache, polish *PolishClient) *Pipeline {
	return &Pipeline{cache: cache, polish: polish}
}

// Run executes the pipeline for jobID against raw transcript text and
// returns the processed text plus the metrics record to persist. Each
// step's failure is logged and non-fatal: the pipeline continues with
// that step's input unchanged.
func (p *Pipeline) Run(ctx context.Context, jobID, raw string, opts Options) (string, models.PipelineMetrics) {
	text := raw
	durations := make(map[string]int64)
	lengthDeltas := make(map[string]int)

	exactCount, fuzzyCount := 0, 0

	if opts.EnableLexicon {
		start := time.Now()
		before := len(text)
		next, ec, fc, err := p.runLexiconStep(ctx, text, opts)
		dur := time.Since(start)
		durations["lexicon"] = dur.Milliseconds()
		logger.PipelineStep(jobID, "lexicon", dur, err)
		if err == nil {
			lengthDeltas["lexicon"] = len(next) - before
			text = next
			exactCount, fuzzyCount = ec, fc
		}
	}

	if opts.EnableCleanup {
		start := time.Now()
		before := len(text)
		next := safeCleanup(text, opts)
		dur := time.Since(start)
		durations["cleanup"] = dur.Milliseconds()
		logger.PipelineStep(jobID, "cleanup", dur, nil)
		lengthDeltas["cleanup"] = len(next) - before
		text = next
	}

	if opts.EnableNumeral {
		start := time.Now()
		before := len(text)
		next := safeNumerals(text, opts.NumeralStrategy)
		dur := time.Since(start)
		durations["numeral"] = dur.Milliseconds()
		logger.PipelineStep(jobID, "numeral", dur, nil)
		lengthDeltas["numeral"] = len(next) - before
		text = next
	}

	if opts.EnableLargeModelPolish && p.polish != nil {
		start := time.Now()
		before := text
		polished, err := p.polish.Polish(ctx, text)
		dur := time.Since(start)
		durations["polish"] = dur.Milliseconds()
		logger.PipelineStep(jobID, "polish", dur, err)
		if err == nil && polished != "" {
			lengthDeltas["polish"] = len(polished) - len(before)
			text = polished
		}
	}

	wordCount := WordCount(raw)
	confidence := Confidence(exactCount, fuzzyCount, wordCount, opts.Confidence)

	metrics := models.PipelineMetrics{
		WordCount:        wordCount,
		ExactMatchCount:  exactCount,
		FuzzyMatchCount:  fuzzyCount,
		ConfidenceScore:  confidence,
		ConfidenceBucket: ConfidenceBucket(confidence),
		StepDurationsMs:  durations,
		LengthDeltas:     lengthDeltas,
	}

	return text, metrics
}

func (p *Pipeline) runLexiconStep(ctx context.Context, text string, opts Options) (string, int, int, error) {
	if opts.LexiconID == "" {
		return text, 0, 0, nil
	}
	compiled, err := p.cache.Get(ctx, opts.LexiconID)
	if err != nil {
		return text, 0, 0, err
	}
	result := lexicon.Substitute(text, compiled, opts.Fuzzy)
	return result.Text, result.ExactMatches, result.FuzzyMatches, nil
}

// safeCleanup and safeNumerals are pure functions; they cannot error, but
// are wrapped here so a future panic-recovery addition has a single seam.
func safeCleanup(text string, opts Options) string {
	return Cleanup(text, CleanupOptions{LanguageNormalisationsEnabled: opts.LanguageNormalisationsEnabled})
}

func safeNumerals(text string, strategy config.NumeralStrategy) string {
	return NormalizeNumerals(text, strategy)
}
