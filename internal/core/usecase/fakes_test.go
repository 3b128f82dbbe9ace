package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

// fakeClock only moves when advanced explicitly.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type providerFake struct {
	mu      sync.Mutex
	raw     string
	err     error
	panics  bool
	block   bool
	clock   *fakeClock
	cost    time.Duration
	calls   int
	prompts []string
}

func (f *providerFake) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.clock != nil {
		f.clock.Advance(f.cost)
	}
	if f.panics {
		panic("provider exploded")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

type recorderFake struct {
	mu       sync.Mutex
	attempts []error
	analyses []string
}

func (r *recorderFake) ObserveProviderAttempt(_ string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, err)
}

func (r *recorderFake) ObserveAnalysis(provider string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, provider)
}

type summarizerFake struct {
	model string
}

func (s summarizerFake) Summarize(_ context.Context, text string) domain.SummaryResult {
	return domain.SummaryResult{Summary: "model summary", Model: s.model, CompressionRatio: 0.5}
}

type ocrFake struct {
	result domain.OCRResult
	err    error
	panics bool
}

func (f *ocrFake) Extract(context.Context, domain.DocumentFile, domain.Language) (domain.OCRResult, error) {
	if f.panics {
		panic("ocr exploded")
	}
	if f.err != nil {
		return domain.OCRResult{}, f.err
	}
	return f.result, nil
}

type analyzerFake struct {
	mu       sync.Mutex
	analysis *domain.DocumentAnalysis
	err      error
	panics   bool
	texts    []string
	delay    time.Duration
	inFlight int
	peak     int
}

func (f *analyzerFake) Analyze(_ context.Context, content, _ string, _ domain.Language) (*domain.DocumentAnalysis, error) {
	f.mu.Lock()
	f.texts = append(f.texts, content)
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("analyzer exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	cp := f.analysis.Clone()
	return &cp, nil
}

type storeFake struct {
	mu      sync.Mutex
	results map[string]*domain.DocumentProcessingResult
	err     error
}

func newStoreFake() *storeFake {
	return &storeFake{results: make(map[string]*domain.DocumentProcessingResult)}
}

func (s *storeFake) Save(_ context.Context, result *domain.DocumentProcessingResult) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.DocumentID] = result.Clone()
	return nil
}

func (s *storeFake) Get(_ context.Context, id string) (*domain.DocumentProcessingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	return r.Clone(), nil
}

type checkerFake struct {
	err   error
	calls int
}

func (c *checkerFake) Check(context.Context, string, domain.DocumentAnalysis) error {
	c.calls++
	return c.err
}

type indexerFake struct {
	err   error
	calls int
	text  string
}

func (i *indexerFake) IndexDocument(_ context.Context, _, _, text string, _ domain.DocumentAnalysis) error {
	i.calls++
	i.text = text
	return i.err
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	jobs []ports.IngestJob
	err  error
}

func (q *queueFake) PublishJob(_ context.Context, job ports.IngestJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *queueFake) SubscribeJobs(context.Context, func(context.Context, ports.IngestJob) error) error {
	return errors.New("not implemented")
}

type processorFake struct {
	done chan domain.DocumentFile
}

func (p *processorFake) ProcessDocument(_ context.Context, file domain.DocumentFile, id string, _ domain.Language) *domain.DocumentProcessingResult {
	p.done <- file
	return &domain.DocumentProcessingResult{DocumentID: id, Status: domain.ProcessingSuccess}
}

func (p *processorFake) GetProcessingResult(context.Context, string) (*domain.DocumentProcessingResult, error) {
	return nil, domain.ErrResultNotFound
}
