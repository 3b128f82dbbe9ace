package ml

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

const safetyCircular = "Safety circular for all depot staff. " +
	"An emergency evacuation drill will take place at the main depot on Friday. " +
	"All staff must wear PPE near the inspection pits during the drill. " +
	"Report any hazard or near miss to the safety officer immediately."

type modelFake struct {
	loadDelay  time.Duration
	loadErr    error
	blockLoad  bool
	summary    string
	summaryErr error

	loads   atomic.Int32
	unloads atomic.Int32

	// unloadGate, when set, holds Unload until closed.
	unloadStarted chan struct{}
	unloadGate    chan struct{}

	mu         sync.Mutex
	lastParams ports.SummarizationParams
}

func (m *modelFake) Name() string { return "tiny-summarizer" }

func (m *modelFake) Load(ctx context.Context) error {
	m.loads.Add(1)
	if m.blockLoad {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.loadDelay > 0 {
		time.Sleep(m.loadDelay)
	}
	return m.loadErr
}

func (m *modelFake) Summarize(_ context.Context, _ string, params ports.SummarizationParams) (string, error) {
	m.mu.Lock()
	m.lastParams = params
	m.mu.Unlock()
	return m.summary, m.summaryErr
}

func (m *modelFake) Unload(context.Context) error {
	m.unloads.Add(1)
	if m.unloadGate != nil {
		m.unloadStarted <- struct{}{}
		<-m.unloadGate
	}
	return nil
}

func TestSummarizeUsesModelWhenReady(t *testing.T) {
	model := &modelFake{summary: "  -- drill on friday, wear PPE  "}
	s := New(model, Config{})
	defer s.Close()

	res := s.Summarize(context.Background(), safetyCircular)
	if res.Model != "tiny-summarizer" {
		t.Fatalf("expected model tag, got %q", res.Model)
	}
	if res.Summary != "drill on friday, wear PPE." {
		t.Fatalf("expected postprocessed output, got %q", res.Summary)
	}
	if res.WordCount != 5 || res.OriginalWordCount == 0 {
		t.Fatalf("unexpected word counts %+v", res)
	}
	if model.lastParams != (ports.SummarizationParams{MaxLength: 200, MinLength: 60}) {
		t.Fatalf("safety documents need longer bounds, got %+v", model.lastParams)
	}
	if s.State() != StateReady {
		t.Fatalf("expected ready state, got %s", s.State())
	}
}

func TestConcurrentCallsShareOneInitialization(t *testing.T) {
	model := &modelFake{loadDelay: 30 * time.Millisecond, summary: "ok"}
	s := New(model, Config{})
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := s.Summarize(context.Background(), safetyCircular); res.Model != "tiny-summarizer" {
				t.Errorf("unexpected tier %q", res.Model)
			}
		}()
	}
	wg.Wait()
	if got := model.loads.Load(); got != 1 {
		t.Fatalf("expected one Load, got %d", got)
	}
}

func TestInitTimeoutFallsBackFast(t *testing.T) {
	model := &modelFake{blockLoad: true}
	s := New(model, Config{InitTimeout: 20 * time.Millisecond})
	defer s.Close()

	res := s.Summarize(context.Background(), safetyCircular)
	if res.Model != domain.TierFastFallback || res.Summary == "" {
		t.Fatalf("expected fast-fallback summary, got %+v", res)
	}

	deadline := time.Now().Add(time.Second)
	for s.State() != StateFailed {
		if time.Now().After(deadline) {
			t.Fatalf("expected failed state, got %s", s.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	// let the shared attempt finish before retrying
	time.Sleep(20 * time.Millisecond)

	model.blockLoad = false
	model.summary = "retried"
	if res := s.Summarize(context.Background(), safetyCircular); res.Model != "tiny-summarizer" {
		t.Fatalf("failed state must allow retry, got %q", res.Model)
	}
	if model.loads.Load() != 2 {
		t.Fatalf("expected second load attempt, got %d", model.loads.Load())
	}
}

func TestLoadErrorFallsBackFast(t *testing.T) {
	s := New(&modelFake{loadErr: errors.New("no such model")}, Config{})
	defer s.Close()
	if res := s.Summarize(context.Background(), safetyCircular); res.Model != domain.TierFastFallback {
		t.Fatalf("expected fast-fallback, got %q", res.Model)
	}
}

func TestRuntimeErrorFallsBackToTFIDF(t *testing.T) {
	cases := []*modelFake{
		{summaryErr: errors.New("model crashed")},
		{summary: "  ...  "},
	}
	for _, model := range cases {
		s := New(model, Config{})
		res := s.Summarize(context.Background(), safetyCircular)
		s.Close()
		if res.Model != domain.TierFallbackExtractive {
			t.Fatalf("expected fallback-extractive, got %q", res.Model)
		}
		if res.Summary == "" || res.WordCount >= res.OriginalWordCount {
			t.Fatalf("expected a compressed TF-IDF summary, got %+v", res)
		}
	}
}

func TestIdleReleaseUnloadsAndReinitializes(t *testing.T) {
	model := &modelFake{summary: "ok"}
	s := New(model, Config{IdleTimeout: 20 * time.Millisecond})
	defer s.Close()

	s.Summarize(context.Background(), safetyCircular)
	deadline := time.Now().Add(time.Second)
	for model.unloads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("model was not released after idle window")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != StateUninitialized {
		t.Fatalf("expected uninitialized after idle release, got %s", s.State())
	}

	s.Summarize(context.Background(), safetyCircular)
	if model.loads.Load() != 2 {
		t.Fatalf("expected reload after idle release, got %d loads", model.loads.Load())
	}
}

func TestIdleReleaseIsSerializedWithReload(t *testing.T) {
	model := &modelFake{
		summary:       "ok",
		unloadStarted: make(chan struct{}, 4),
		unloadGate:    make(chan struct{}),
	}
	s := New(model, Config{IdleTimeout: time.Hour})
	defer s.Close()

	s.Summarize(context.Background(), safetyCircular)
	s.mu.Lock()
	gen := s.idleGen
	s.mu.Unlock()

	released := make(chan struct{})
	go func() {
		s.releaseIdle(gen)
		close(released)
	}()
	<-model.unloadStarted

	summarized := make(chan domain.SummaryResult, 1)
	go func() { summarized <- s.Summarize(context.Background(), safetyCircular) }()
	time.Sleep(30 * time.Millisecond)
	if got := model.loads.Load(); got != 1 {
		t.Fatalf("model reloaded while unload was running, loads=%d", got)
	}

	close(model.unloadGate)
	<-released
	if res := <-summarized; res.Model != "tiny-summarizer" {
		t.Fatalf("expected model tier after reload, got %q", res.Model)
	}
	if loads, unloads := model.loads.Load(), model.unloads.Load(); loads != 2 || unloads != 1 {
		t.Fatalf("model must stay loaded after reload, loads=%d unloads=%d", loads, unloads)
	}
	if s.State() != StateReady {
		t.Fatalf("expected ready state, got %s", s.State())
	}

	s.releaseIdle(gen)
	if model.unloads.Load() != 1 || s.State() != StateReady {
		t.Fatalf("stale idle timer must not release the reloaded model")
	}
}

func TestCloseUnloadsAndDisablesModel(t *testing.T) {
	model := &modelFake{summary: "ok"}
	s := New(model, Config{})
	s.Summarize(context.Background(), safetyCircular)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if model.unloads.Load() != 1 {
		t.Fatalf("expected one unload, got %d", model.unloads.Load())
	}
	if res := s.Summarize(context.Background(), safetyCircular); res.Model != domain.TierFastFallback {
		t.Fatalf("closed summarizer should fall back, got %q", res.Model)
	}
	if err := s.Close(); err != nil || model.unloads.Load() != 1 {
		t.Fatalf("second Close must be a no-op")
	}
}

func TestParamsFor(t *testing.T) {
	cases := map[domain.Category]ports.SummarizationParams{
		domain.CategorySafety:      {MaxLength: 200, MinLength: 60},
		domain.CategoryMaintenance: {MaxLength: 160, MinLength: 40},
		domain.CategoryCompliance:  {MaxLength: 160, MinLength: 40},
		domain.CategoryFinance:     {MaxLength: 130, MinLength: 30},
	}
	for category, want := range cases {
		if got := ParamsFor(category); got != want {
			t.Fatalf("ParamsFor(%s) = %+v, want %+v", category, got, want)
		}
	}
}
