// Package ml owns the lifecycle of a local summarization model and degrades
// to the extractive summarizers whenever the model cannot serve a request.
package ml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/core/summarize"
	"github.com/kirillkom/docintel/internal/core/textfeatures"
)

const (
	DefaultInitTimeout = 5 * time.Second
	DefaultIdleTimeout = 5 * time.Minute
	unloadTimeout      = 10 * time.Second
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

var errClosed = errors.New("summarizer closed")

type Config struct {
	InitTimeout time.Duration
	// IdleTimeout releases the model after this long without use. Zero
	// disables idle release.
	IdleTimeout time.Duration
	Extractor   *textfeatures.Extractor
	Logger      *slog.Logger
	Now         func() time.Time
}

// Summarizer implements ports.Summarizer on top of a SummarizationModel.
type Summarizer struct {
	model       ports.SummarizationModel
	initTimeout time.Duration
	idleTimeout time.Duration
	extractor   *textfeatures.Extractor
	logger      *slog.Logger
	now         func() time.Time

	init singleflight.Group
	// lifecycle serializes model Load and Unload.
	lifecycle sync.Mutex

	mu       sync.Mutex
	state    State
	inflight int
	idle     *time.Timer
	idleGen  uint64
	closed   bool
}

var _ ports.Summarizer = (*Summarizer)(nil)

func New(model ports.SummarizationModel, cfg Config) *Summarizer {
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}
	if cfg.IdleTimeout < 0 {
		cfg.IdleTimeout = 0
	}
	if cfg.Extractor == nil {
		cfg.Extractor = textfeatures.NewExtractor(textfeatures.DefaultVocabulary())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Summarizer{
		model:       model,
		initTimeout: cfg.InitTimeout,
		idleTimeout: cfg.IdleTimeout,
		extractor:   cfg.Extractor,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

func (s *Summarizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Summarize never fails. Results are tagged with the model name, or with
// fast-fallback when the model could not be initialised, or with
// fallback-extractive when the model failed at runtime.
func (s *Summarizer) Summarize(ctx context.Context, text string) domain.SummaryResult {
	start := s.now()
	clean := summarize.Preprocess(text)

	release, err := s.lease(ctx)
	if err != nil {
		s.logger.Warn("ml_summarizer_unavailable", "model", s.model.Name(), "error", err)
		res := summarize.Extractive(text)
		res.Model = domain.TierFastFallback
		res.ProcessingTime = s.now().Sub(start).Milliseconds()
		return res
	}
	defer release()

	params := ParamsFor(s.extractor.DocumentType(clean))
	out, err := s.model.Summarize(ctx, clean, params)
	out = summarize.Postprocess(out)
	if err == nil && out == "" {
		err = domain.WrapError(domain.ErrParse, "ml.summarize", errors.New("empty summary"))
	}
	if err != nil {
		s.logger.Warn("ml_summarize_failed", "model", s.model.Name(), "error", err)
		res := summarize.TFIDF(text, s.extractor.Vocabulary().DomainTerms)
		res.Model = domain.TierFallbackExtractive
		res.ProcessingTime = s.now().Sub(start).Milliseconds()
		return res
	}

	res := summarize.Result(out, clean)
	res.Model = s.model.Name()
	res.ProcessingTime = s.now().Sub(start).Milliseconds()
	return res
}

// ParamsFor bounds summary length by document type.
func ParamsFor(category domain.Category) ports.SummarizationParams {
	switch category {
	case domain.CategorySafety:
		return ports.SummarizationParams{MaxLength: 200, MinLength: 60}
	case domain.CategoryMaintenance, domain.CategoryCompliance:
		return ports.SummarizationParams{MaxLength: 160, MinLength: 40}
	default:
		return ports.SummarizationParams{MaxLength: 130, MinLength: 30}
	}
}

// lease returns once the model is ready and holds it against idle release
// until the returned func is called.
func (s *Summarizer) lease(ctx context.Context) (func(), error) {
	for range 2 {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, domain.WrapError(domain.ErrModelUnavailable, "ml.summarize", errClosed)
		}
		if s.state == StateReady {
			s.inflight++
			s.mu.Unlock()
			return s.done, nil
		}
		s.state = StateInitializing
		s.mu.Unlock()

		if err := s.initialize(ctx); err != nil {
			return nil, err
		}
	}
	return nil, domain.WrapError(domain.ErrModelUnavailable, "ml.summarize", errors.New("model released during initialization"))
}

func (s *Summarizer) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.armIdleLocked()
}

// initialize shares one Load among concurrent callers. The load runs on a
// context detached from any single caller so that one caller giving up does
// not fail the others.
func (s *Summarizer) initialize(ctx context.Context) error {
	ch := s.init.DoChan("load", func() (any, error) {
		s.lifecycle.Lock()
		defer s.lifecycle.Unlock()

		s.mu.Lock()
		ready := s.state == StateReady
		s.mu.Unlock()
		if ready {
			return nil, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.initTimeout)
		defer cancel()

		started := s.now()
		err := s.model.Load(loadCtx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateFailed
			return nil, err
		}
		if s.closed {
			s.unload()
			return nil, errClosed
		}
		s.state = StateReady
		s.armIdleLocked()
		s.logger.Info("ml_model_ready", "model", s.model.Name(), "load_ms", s.now().Sub(started).Milliseconds())
		return nil, nil
	})

	timer := time.NewTimer(s.initTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.WrapError(domain.ErrModelUnavailable, "ml.init", res.Err)
		}
		return nil
	case <-timer.C:
		return domain.WrapError(domain.ErrModelUnavailable, "ml.init", fmt.Errorf("initialization exceeded %s", s.initTimeout))
	case <-ctx.Done():
		return domain.WrapError(domain.ErrModelUnavailable, "ml.init", ctx.Err())
	}
}

func (s *Summarizer) armIdleLocked() {
	if s.idleTimeout == 0 || s.closed {
		return
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idleGen++
	gen := s.idleGen
	s.idle = time.AfterFunc(s.idleTimeout, func() { s.releaseIdle(gen) })
}

// releaseIdle unloads the model if no lease or re-arm happened since the
// timer for gen was set.
func (s *Summarizer) releaseIdle(gen uint64) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if gen != s.idleGen || s.state != StateReady || s.inflight > 0 || s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateUninitialized
	s.mu.Unlock()

	s.logger.Info("ml_model_idle_release", "model", s.model.Name(), "idle_timeout", s.idleTimeout.String())
	s.unload()
}

func (s *Summarizer) unload() {
	ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
	defer cancel()
	if err := s.model.Unload(ctx); err != nil {
		s.logger.Warn("ml_model_unload_failed", "model", s.model.Name(), "error", err)
	}
}

// Close releases the model. Later calls to Summarize use fast-fallback.
func (s *Summarizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.idle != nil {
		s.idle.Stop()
	}
	s.mu.Unlock()

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	wasReady := s.state == StateReady
	s.state = StateUninitialized
	s.mu.Unlock()

	if wasReady {
		s.unload()
	}
	return nil
}
