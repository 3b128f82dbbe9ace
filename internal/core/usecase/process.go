package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/docintel/internal/core/analysisjson"
	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/core/progress"
)

const (
	DefaultStageDelay = 500 * time.Millisecond

	ocrPlaceholderConfidence      = 0.1
	analysisPlaceholderConfidence = 0.3
	analysisPlaceholderSummary    = "Automated analysis unavailable for this document."
)

type ProcessorConfig struct {
	Analyzer ports.DocumentAnalyzer
	OCR      ports.OCRProvider
	Store    ports.ResultStore
	// Safety and Indexer are optional downstream integrations.
	Safety  ports.SafetyChecker
	Indexer ports.SearchIndexer
	// Publisher receives every event after the in-process hub.
	Publisher ports.ProgressPublisher
	Hub       *progress.Hub
	// StageDelay is the simulated duration of the safety and indexing stages.
	StageDelay time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type ProcessDocumentUseCase struct {
	analyzer   ports.DocumentAnalyzer
	ocr        ports.OCRProvider
	store      ports.ResultStore
	safety     ports.SafetyChecker
	indexer    ports.SearchIndexer
	hub        *progress.Hub
	publish    ports.ProgressPublisher
	stageDelay time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewProcessDocumentUseCase(cfg ProcessorConfig) *ProcessDocumentUseCase {
	uc := &ProcessDocumentUseCase{
		analyzer:   cfg.Analyzer,
		ocr:        cfg.OCR,
		store:      cfg.Store,
		safety:     cfg.Safety,
		indexer:    cfg.Indexer,
		hub:        cfg.Hub,
		stageDelay: cfg.StageDelay,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if uc.logger == nil {
		uc.logger = slog.Default()
	}
	if uc.hub == nil {
		uc.hub = progress.NewHub(progress.DefaultBuffer, uc.logger)
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	if uc.stageDelay < 0 {
		uc.stageDelay = 0
	}
	uc.publish = uc.hub
	if cfg.Publisher != nil {
		uc.publish = progress.Fanout{uc.hub, cfg.Publisher}
	}
	return uc
}

func (uc *ProcessDocumentUseCase) OnProgress(documentID string, listener ports.ProgressListener) ports.ListenerID {
	return uc.hub.OnProgress(documentID, listener)
}

func (uc *ProcessDocumentUseCase) OffProgress(documentID string, id ports.ListenerID) {
	uc.hub.OffProgress(documentID, id)
}

func (uc *ProcessDocumentUseCase) Subscribe(documentID string) (<-chan domain.ProgressEvent, func()) {
	return uc.hub.Subscribe(documentID)
}

// GetProcessingResult returns domain.ErrResultNotFound until the run for
// documentID has completed.
func (uc *ProcessDocumentUseCase) GetProcessingResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error) {
	result, err := uc.store.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get processing result: %w", err)
	}
	return result, nil
}

// ProcessDocument drives the fixed stage sequence and always returns a
// result. Stage failures degrade the result instead of aborting; only an
// empty upload stops the pipeline early.
func (uc *ProcessDocumentUseCase) ProcessDocument(
	ctx context.Context,
	file domain.DocumentFile,
	documentID string,
	language domain.Language,
) (result *domain.DocumentProcessingResult) {
	language = domain.NormalizeLanguage(string(language))
	r := uc.newRun(documentID)
	uc.logger.Info("processing_started", "document_id", documentID, "file_name", file.Name, "language", language)

	defer func() {
		if rec := recover(); rec != nil {
			uc.logger.Error("processing_panic", "document_id", documentID, "panic", rec)
			if r.result != nil {
				result = r.result.Clone()
				return
			}
			r.errs = append(r.errs, fmt.Sprintf("unexpected processing failure: %v", rec))
			result = uc.complete(ctx, r, domain.ProcessingFailed)
		}
	}()

	if err := uc.upload(ctx, r, file); err != nil {
		r.errs = append(r.errs, fmt.Sprintf("upload: %v", err))
		return uc.complete(ctx, r, domain.ProcessingFailed)
	}
	uc.extractText(ctx, r, file, language)
	uc.analyze(ctx, r, file.Name, language)
	uc.checkSafety(ctx, r)
	uc.index(ctx, r, file.Name)

	return uc.complete(ctx, r, domain.ClassifyStatus(r.errs, r.ocr.Confidence, r.analysis.Confidence))
}

func (uc *ProcessDocumentUseCase) upload(ctx context.Context, r *run, file domain.DocumentFile) error {
	uc.startStage(ctx, r, domain.StageUpload, 10, "Validating upload")
	if len(file.Content) == 0 {
		err := domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("empty document content"))
		uc.failStage(ctx, r, domain.StageUpload, "Upload rejected")
		return err
	}
	uc.finishStage(ctx, r, domain.StageUpload, "Upload verified")
	return nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, r *run, file domain.DocumentFile, language domain.Language) {
	uc.startStage(ctx, r, domain.StageOCR, 15, "Extracting text")
	ocr, err := safeCall(func() (domain.OCRResult, error) {
		if uc.ocr == nil {
			return domain.OCRResult{}, errors.New("no OCR provider configured")
		}
		return uc.ocr.Extract(ctx, file, language)
	})
	if err != nil {
		uc.logger.Warn("ocr_failed", "document_id", r.documentID, "error", err.Error())
		r.errs = append(r.errs, fmt.Sprintf("ocr: %v", err))
		r.ocr = domain.OCRResult{Confidence: ocrPlaceholderConfidence, Language: language, Method: "placeholder"}
		r.degrade(domain.StageOCR)
		uc.finishStage(ctx, r, domain.StageOCR, "Text extraction degraded")
		return
	}
	if ocr.Language == "" {
		ocr.Language = language
	}
	r.ocr = ocr
	uc.finishStage(ctx, r, domain.StageOCR, "Text extracted")
}

func (uc *ProcessDocumentUseCase) analyze(ctx context.Context, r *run, fileName string, language domain.Language) {
	uc.startStage(ctx, r, domain.StageAnalysis, 20, "Analyzing document")
	analysis, err := safeCall(func() (*domain.DocumentAnalysis, error) {
		if uc.analyzer == nil {
			return nil, errors.New("no analyzer configured")
		}
		return uc.analyzer.Analyze(ctx, r.ocr.Text, fileName, language)
	})
	if err == nil && analysis == nil {
		err = errors.New("analyzer returned no analysis")
	}
	if err != nil {
		uc.logger.Warn("analysis_failed", "document_id", r.documentID, "error", err.Error())
		r.errs = append(r.errs, fmt.Sprintf("analysis: %v", err))
		r.analysis = placeholderAnalysis(language)
		r.degrade(domain.StageAnalysis)
		uc.finishStage(ctx, r, domain.StageAnalysis, "Analysis degraded")
		return
	}
	r.analysis = analysis.Clone()
	uc.finishStage(ctx, r, domain.StageAnalysis, "Analysis complete via "+analysis.Provider)
}

func (uc *ProcessDocumentUseCase) checkSafety(ctx context.Context, r *run) {
	uc.startStage(ctx, r, domain.StageSafety, 10, "Running safety checks")
	uc.wait(ctx)
	uc.emitProgress(ctx, r, domain.StageSafety, 50, "Evaluating safety findings")
	if uc.safety != nil {
		if _, err := safeCall(func() (struct{}, error) {
			return struct{}{}, uc.safety.Check(ctx, r.documentID, r.analysis)
		}); err != nil {
			uc.logger.Warn("safety_check_failed", "document_id", r.documentID, "error", err.Error())
		}
	}
	uc.wait(ctx)
	uc.finishStage(ctx, r, domain.StageSafety, "Safety checks complete")
}

func (uc *ProcessDocumentUseCase) index(ctx context.Context, r *run, fileName string) {
	uc.startStage(ctx, r, domain.StageIndexing, 10, "Indexing for search")
	uc.wait(ctx)
	uc.emitProgress(ctx, r, domain.StageIndexing, 50, "Writing search index")
	if uc.indexer != nil {
		if _, err := safeCall(func() (struct{}, error) {
			return struct{}{}, uc.indexer.IndexDocument(ctx, r.documentID, fileName, r.ocr.Text, r.analysis)
		}); err != nil {
			uc.logger.Warn("indexing_failed", "document_id", r.documentID, "error", err.Error())
		}
	}
	uc.wait(ctx)
	uc.finishStage(ctx, r, domain.StageIndexing, "Indexing complete")
}

// complete stores the result before announcing the terminal event so that
// listeners reacting to it can already retrieve the result.
func (uc *ProcessDocumentUseCase) complete(ctx context.Context, r *run, status domain.ProcessingStatus) *domain.DocumentProcessingResult {
	message := "Processing complete"
	if status != domain.ProcessingSuccess {
		message = "Processing finished with status " + string(status)
	}
	terminal := r.event(domain.StageComplete, 100, 100, message, uc.now())
	r.events = append(r.events, terminal)

	end := uc.now()
	result := &domain.DocumentProcessingResult{
		DocumentID:     r.documentID,
		OCR:            r.ocr,
		Analysis:       r.analysis.Clone(),
		ProcessingTime: end.Sub(r.start).Milliseconds(),
		Status:         status,
		Errors:         append([]string{}, r.errs...),
		ProgressEvents: append([]domain.ProgressEvent(nil), r.events...),
		Stages:         append([]domain.ProcessingStage(nil), r.stages...),
		CompletedAt:    end.UTC(),
	}
	r.result = result

	if uc.store != nil {
		if _, err := safeCall(func() (struct{}, error) {
			return struct{}{}, uc.store.Save(ctx, result.Clone())
		}); err != nil {
			uc.logger.Error("result_store_failed", "document_id", r.documentID, "error", err.Error())
		}
	}
	uc.publish.Publish(ctx, terminal)

	uc.logger.Info("processing_finished",
		"document_id", r.documentID,
		"status", status,
		"errors", len(r.errs),
		"provider", result.Analysis.Provider,
		"duration_ms", result.ProcessingTime,
	)
	return result.Clone()
}

func (uc *ProcessDocumentUseCase) startStage(ctx context.Context, r *run, stage domain.StageID, pct int, message string) {
	s := r.stage(stage)
	s.Status = domain.StageProcessing
	r.stageStart[stage] = uc.now()
	uc.emitProgress(ctx, r, stage, pct, message)
}

func (uc *ProcessDocumentUseCase) finishStage(ctx context.Context, r *run, stage domain.StageID, message string) {
	s := r.stage(stage)
	s.Status = domain.StageCompleted
	s.ActualTime = uc.now().Sub(r.stageStart[stage]).Milliseconds()
	uc.emitProgress(ctx, r, stage, 100, message)
}

func (uc *ProcessDocumentUseCase) failStage(ctx context.Context, r *run, stage domain.StageID, message string) {
	s := r.stage(stage)
	s.Status = domain.StageError
	s.ActualTime = uc.now().Sub(r.stageStart[stage]).Milliseconds()
	uc.emitProgress(ctx, r, stage, 100, message)
}

func (uc *ProcessDocumentUseCase) emitProgress(ctx context.Context, r *run, stage domain.StageID, pct int, message string) {
	s := r.stage(stage)
	s.Progress = max(s.Progress, pct)
	e := r.event(stage, s.Progress, r.overall(), message, uc.now())
	r.events = append(r.events, e)
	uc.publish.Publish(ctx, e)
}

// wait sleeps for half the simulated stage delay. A cancelled context only
// shortens the wait; the run itself always continues to completion.
func (uc *ProcessDocumentUseCase) wait(ctx context.Context) {
	d := uc.stageDelay / 2
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func placeholderAnalysis(language domain.Language) domain.DocumentAnalysis {
	a := domain.DocumentAnalysis{
		Summary:  analysisPlaceholderSummary,
		Language: language,
		Classification: domain.Classification{
			Category:   domain.CategoryGeneral,
			Department: analysisjson.DefaultDepartment,
			Priority:   domain.PriorityMedium,
		},
		Safety:     domain.SafetyAssessment{SafetyScore: analysisjson.DefaultSafetyScore},
		Confidence: analysisPlaceholderConfidence,
		Provider:   domain.ProviderPlaceholder,
	}
	return a.Clone()
}

// safeCall converts a panic inside a collaborator into an error.
func safeCall[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
