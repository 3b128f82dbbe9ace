package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/analysisjson"
	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/core/textfeatures"
)

const DefaultProviderTimeout = 30 * time.Second

// ProviderSpec describes one external provider of the cascade. A provider
// without a credential or client is skipped, never attempted.
type ProviderSpec struct {
	Name       string
	Credential string
	Client     ports.AIProvider
}

func (p ProviderSpec) enabled() bool {
	return strings.TrimSpace(p.Credential) != "" && p.Client != nil
}

type AnalyzerConfig struct {
	// Providers are tried in order.
	Providers       []ProviderSpec
	ProviderTimeout time.Duration
	// Summarizer backs the local fallback; nil uses the extractive summarizer.
	Summarizer ports.Summarizer
	Extractor  *textfeatures.Extractor
	Recorder   ports.AnalysisRecorder
	Logger     *slog.Logger
	Now        func() time.Time
}

type AnalyzeDocumentUseCase struct {
	providers  []ProviderSpec
	timeout    time.Duration
	summarizer ports.Summarizer
	extractor  *textfeatures.Extractor
	recorder   ports.AnalysisRecorder
	logger     *slog.Logger
	now        func() time.Time
}

func NewAnalyzeDocumentUseCase(cfg AnalyzerConfig) *AnalyzeDocumentUseCase {
	uc := &AnalyzeDocumentUseCase{
		timeout:    cfg.ProviderTimeout,
		summarizer: cfg.Summarizer,
		extractor:  cfg.Extractor,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if uc.timeout <= 0 {
		uc.timeout = DefaultProviderTimeout
	}
	if uc.extractor == nil {
		uc.extractor = textfeatures.NewExtractor(textfeatures.DefaultVocabulary())
	}
	if uc.logger == nil {
		uc.logger = slog.Default()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	for _, p := range cfg.Providers {
		if p.enabled() {
			uc.providers = append(uc.providers, p)
		}
	}
	return uc
}

// EnabledProviders lists the provider names that will be attempted, in order.
func (uc *AnalyzeDocumentUseCase) EnabledProviders() []string {
	names := make([]string, 0, len(uc.providers))
	for _, p := range uc.providers {
		names = append(names, p.Name)
	}
	return names
}

// Analyze runs the provider cascade and falls back to local analysis when
// every provider fails. The returned error is always nil; degradation is
// reported through Provider and Confidence.
func (uc *AnalyzeDocumentUseCase) Analyze(
	ctx context.Context,
	content, fileName string,
	language domain.Language,
) (*domain.DocumentAnalysis, error) {
	start := uc.now()
	language = domain.NormalizeLanguage(string(language))
	prompt := buildAnalysisPrompt(content, fileName, language)

	for _, provider := range uc.providers {
		analysis, err := uc.attempt(ctx, provider, prompt)
		if err != nil {
			uc.logger.Warn("provider_failed",
				"provider", provider.Name,
				"file_name", fileName,
				"error", err.Error(),
			)
			continue
		}
		analysis.Provider = provider.Name
		analysis.Language = language
		return uc.finish(&analysis, start), nil
	}

	analysis := uc.analyzeLocally(ctx, content, language)
	if len(uc.providers) > 0 {
		uc.logger.Info("analysis_fell_back_to_local",
			"file_name", fileName,
			"provider", analysis.Provider,
			"summary_tier", analysis.SummaryTier,
		)
	}
	return uc.finish(&analysis, start), nil
}

func (uc *AnalyzeDocumentUseCase) attempt(ctx context.Context, provider ProviderSpec, prompt string) (analysis domain.DocumentAnalysis, err error) {
	callStart := uc.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", provider.Name, r)
		}
		if uc.recorder != nil {
			uc.recorder.ObserveProviderAttempt(provider.Name, uc.now().Sub(callStart), err)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	raw, err := provider.Client.Generate(callCtx, prompt)
	if err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrParse, "generate", errors.New("empty response"))
	}

	parsed, dropped, err := analysisjson.Parse(raw)
	if err != nil {
		return domain.DocumentAnalysis{}, err
	}
	if len(dropped) > 0 {
		uc.logger.Debug("provider_fields_dropped", "provider", provider.Name, "fields", dropped)
	}
	return parsed, nil
}

func (uc *AnalyzeDocumentUseCase) finish(analysis *domain.DocumentAnalysis, start time.Time) *domain.DocumentAnalysis {
	elapsed := uc.now().Sub(start)
	analysis.ProcessingTime = elapsed.Milliseconds()
	if uc.recorder != nil {
		uc.recorder.ObserveAnalysis(analysis.Provider, elapsed)
	}
	return analysis
}
