package domain

import "testing"

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		name     string
		errs     []string
		ocr      float64
		analysis float64
		want     ProcessingStatus
	}{
		{name: "no errors", ocr: 0.1, analysis: 0.3, want: ProcessingSuccess},
		{name: "error with confident stages", errs: []string{"x"}, ocr: 0.9, analysis: 0.85, want: ProcessingPartial},
		{name: "error with ocr placeholder", errs: []string{"x"}, ocr: 0.1, analysis: 0.85, want: ProcessingFailed},
		{name: "error at boundary", errs: []string{"x"}, ocr: 0.5, analysis: 0.9, want: ProcessingFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyStatus(tc.errs, tc.ocr, tc.analysis); got != tc.want {
				t.Fatalf("ClassifyStatus() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStageIndexOrdersCompleteLast(t *testing.T) {
	if StageIndex(StageUpload) != 0 || StageIndex(StageIndexing) != 4 {
		t.Fatalf("unexpected pipeline indices")
	}
	if StageIndex(StageComplete) != len(PipelineStages) {
		t.Fatalf("complete must sort after every pipeline stage")
	}
	if StageIndex("bogus") != -1 {
		t.Fatalf("unknown stage must return -1")
	}
}

func TestResultCloneIsDeep(t *testing.T) {
	orig := &DocumentProcessingResult{
		Errors:         []string{"a"},
		ProgressEvents: []ProgressEvent{{Stage: StageUpload}},
		Analysis:       DocumentAnalysis{Classification: Classification{Tags: []string{"t"}}},
	}
	cp := orig.Clone()
	cp.Errors[0] = "b"
	cp.ProgressEvents[0].Stage = StageOCR
	cp.Analysis.Classification.Tags[0] = "u"
	if orig.Errors[0] != "a" || orig.ProgressEvents[0].Stage != StageUpload || orig.Analysis.Classification.Tags[0] != "t" {
		t.Fatalf("clone shares memory with original: %+v", orig)
	}
}
