package usecase

import (
	"math"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
)

var estimatedStageTime = map[domain.StageID]time.Duration{
	domain.StageUpload:   500 * time.Millisecond,
	domain.StageOCR:      3 * time.Second,
	domain.StageAnalysis: 5 * time.Second,
}

// run is the mutable state of one ProcessDocument call. It is owned by a
// single goroutine.
type run struct {
	documentID string
	start      time.Time
	stages     []domain.ProcessingStage
	stageStart map[domain.StageID]time.Time
	events     []domain.ProgressEvent
	lastEvent  time.Time
	errs       []string
	ocr        domain.OCRResult
	analysis   domain.DocumentAnalysis
	result     *domain.DocumentProcessingResult
}

func (uc *ProcessDocumentUseCase) newRun(documentID string) *run {
	r := &run{
		documentID: documentID,
		start:      uc.now(),
		stages:     make([]domain.ProcessingStage, 0, len(domain.PipelineStages)),
		stageStart: make(map[domain.StageID]time.Time, len(domain.PipelineStages)),
		events:     make([]domain.ProgressEvent, 0, 16),
		errs:       []string{},
	}
	for _, id := range domain.PipelineStages {
		estimate, ok := estimatedStageTime[id]
		if !ok {
			estimate = uc.stageDelay
		}
		r.stages = append(r.stages, domain.ProcessingStage{
			ID:            id,
			Status:        domain.StagePending,
			EstimatedTime: estimate.Milliseconds(),
		})
	}
	return r
}

func (r *run) stage(id domain.StageID) *domain.ProcessingStage {
	return &r.stages[domain.StageIndex(id)]
}

func (r *run) degrade(id domain.StageID) {
	r.stage(id).Degraded = true
}

// overall is (finished stages + fraction of the processing stage) / total, in percent.
func (r *run) overall() int {
	finished := 0
	fraction := 0.0
	for _, s := range r.stages {
		switch s.Status {
		case domain.StageCompleted, domain.StageError:
			finished++
		case domain.StageProcessing:
			fraction = float64(s.Progress) / 100
		}
	}
	return int(math.Round((float64(finished) + fraction) / float64(len(r.stages)) * 100))
}

// event builds the next event, never letting timestamps go backwards.
func (r *run) event(stage domain.StageID, pct, overall int, message string, ts time.Time) domain.ProgressEvent {
	if ts.Before(r.lastEvent) {
		ts = r.lastEvent
	}
	r.lastEvent = ts
	return domain.ProgressEvent{
		DocumentID:      r.documentID,
		Stage:           stage,
		Progress:        pct,
		OverallProgress: overall,
		Message:         message,
		Timestamp:       ts.UTC(),
	}
}
