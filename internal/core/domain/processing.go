package domain

import "time"

type StageID string

const (
	StageUpload   StageID = "upload"
	StageOCR      StageID = "ocr"
	StageAnalysis StageID = "analysis"
	StageSafety   StageID = "safety"
	StageIndexing StageID = "indexing"
	// StageComplete only appears on the terminal progress event.
	StageComplete StageID = "complete"
)

// PipelineStages is the fixed execution order.
var PipelineStages = []StageID{StageUpload, StageOCR, StageAnalysis, StageSafety, StageIndexing}

// StageIndex returns the position of id in the pipeline order; complete sorts last.
func StageIndex(id StageID) int {
	for i, s := range PipelineStages {
		if s == id {
			return i
		}
	}
	if id == StageComplete {
		return len(PipelineStages)
	}
	return -1
}

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageProcessing StageStatus = "processing"
	StageCompleted  StageStatus = "completed"
	StageError      StageStatus = "error"
)

type ProcessingStage struct {
	ID            StageID     `json:"id"`
	Status        StageStatus `json:"status"`
	Progress      int         `json:"progress"`
	EstimatedTime int64       `json:"estimatedTime,omitempty"`
	ActualTime    int64       `json:"actualTime,omitempty"`
	Degraded      bool        `json:"degraded,omitempty"`
}

type ProgressEvent struct {
	DocumentID      string    `json:"documentId"`
	Stage           StageID   `json:"stage"`
	Progress        int       `json:"progress"`
	OverallProgress int       `json:"overallProgress"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

// Terminal reports whether no further events follow for this document.
func (e ProgressEvent) Terminal() bool {
	return e.Stage == StageComplete
}

type OCRResult struct {
	Text           string   `json:"text"`
	Confidence     float64  `json:"confidence"`
	Language       Language `json:"language"`
	ProcessingTime int64    `json:"processingTime"`
	Method         string   `json:"method,omitempty"`
}

type DocumentFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Content  []byte `json:"-"`
}

type ProcessingStatus string

const (
	ProcessingSuccess ProcessingStatus = "success"
	ProcessingPartial ProcessingStatus = "partial"
	ProcessingFailed  ProcessingStatus = "failed"
)

type DocumentProcessingResult struct {
	DocumentID     string            `json:"documentId"`
	OCR            OCRResult         `json:"ocr"`
	Analysis       DocumentAnalysis  `json:"analysis"`
	ProcessingTime int64             `json:"processingTime"`
	Status         ProcessingStatus  `json:"status"`
	Errors         []string          `json:"errors"`
	ProgressEvents []ProgressEvent   `json:"progressEvents"`
	Stages         []ProcessingStage `json:"stages"`
	CompletedAt    time.Time         `json:"completedAt"`
}

// Clone returns a deep copy so callers can never mutate a stored result.
func (r *DocumentProcessingResult) Clone() *DocumentProcessingResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Analysis = r.Analysis.Clone()
	out.Errors = cloneStrings(r.Errors)
	out.ProgressEvents = make([]ProgressEvent, len(r.ProgressEvents))
	copy(out.ProgressEvents, r.ProgressEvents)
	out.Stages = make([]ProcessingStage, len(r.Stages))
	copy(out.Stages, r.Stages)
	return &out
}

// ClassifyStatus applies the success/partial/failed rule to a finished run.
func ClassifyStatus(errs []string, ocrConfidence, analysisConfidence float64) ProcessingStatus {
	switch {
	case len(errs) == 0:
		return ProcessingSuccess
	case ocrConfidence > 0.5 && analysisConfidence > 0.5:
		return ProcessingPartial
	default:
		return ProcessingFailed
	}
}
