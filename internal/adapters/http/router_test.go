package httpadapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/core/progress"
)

type analyzerFake struct {
	got struct {
		content, fileName string
		language          domain.Language
	}
	err error
}

func (f *analyzerFake) Analyze(_ context.Context, content, fileName string, language domain.Language) (*domain.DocumentAnalysis, error) {
	f.got.content, f.got.fileName, f.got.language = content, fileName, language
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentAnalysis{Summary: "Brake inspection due.", Provider: "gemini", Language: language}, nil
}

func (f *analyzerFake) EnabledProviders() []string { return []string{"gemini"} }

type uploaderFake struct {
	mu       sync.Mutex
	name     string
	language domain.Language
	body     string
	err      error
}

func (f *uploaderFake) Upload(_ context.Context, filename, _ string, language domain.Language, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name, f.language, f.body = filename, language, string(raw)
	if f.err != nil {
		return "", f.err
	}
	return "doc-1", nil
}

type resultsFake struct {
	results map[string]*domain.DocumentProcessingResult
}

func (f *resultsFake) GetProcessingResult(_ context.Context, id string) (*domain.DocumentProcessingResult, error) {
	if r, ok := f.results[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("get processing result: %w", domain.ErrResultNotFound)
}

type searchFake struct {
	limit    int
	category domain.Category
}

func (f *searchFake) Search(_ context.Context, query string, limit int, category domain.Category) ([]domain.SearchHit, error) {
	f.limit, f.category = limit, category
	return []domain.SearchHit{{DocumentID: "doc-1", Text: query, Score: 1.5}}, nil
}

type testEnv struct {
	analyzer *analyzerFake
	uploader *uploaderFake
	results  *resultsFake
	search   *searchFake
	hub      *progress.Hub
}

func newTestEnv() *testEnv {
	return &testEnv{
		analyzer: &analyzerFake{},
		uploader: &uploaderFake{},
		results:  &resultsFake{results: map[string]*domain.DocumentProcessingResult{}},
		search:   &searchFake{},
		hub:      progress.NewHub(progress.DefaultBuffer, nil),
	}
}

func (e *testEnv) handler(opts Options) http.Handler {
	return NewRouter(Dependencies{
		Analyzer: e.analyzer,
		Uploader: e.uploader,
		Results:  e.results,
		Progress: e.hub,
		Search:   e.search,
	}, opts).Handler()
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthzListsProviders(t *testing.T) {
	res := httptest.NewRecorder()
	newTestEnv().handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
	body := decodeBody(t, res)
	if providers, _ := body["providers"].([]any); len(providers) != 1 || providers[0] != "gemini" {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze",
		strings.NewReader(`{"content":"Brake pads worn","fileName":"m.txt","language":"ml"}`))
	res := httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if env.analyzer.got.content != "Brake pads worn" || env.analyzer.got.language != "ml" {
		t.Fatalf("unexpected analyzer input %+v", env.analyzer.got)
	}
	if body := decodeBody(t, res); body["provider"] != "gemini" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	env := newTestEnv()
	for _, body := range []string{`not json`, `{"content":"   "}`} {
		res := httptest.NewRecorder()
		env.handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(body)))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, res.Code)
		}
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{fmt.Errorf("get: %w", domain.ErrResultNotFound), http.StatusNotFound},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrProviderUnavailable, "op", errors.New("x")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrParse, "op", errors.New("x")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func multipartUpload(t *testing.T, filename, content, language string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadDocumentAccepted(t *testing.T) {
	env := newTestEnv()
	res := httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, multipartUpload(t, "notice.txt", "Platform closed", "en"))

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["documentId"] != "doc-1" || body["eventsUrl"] != "/v1/documents/doc-1/events" {
		t.Fatalf("unexpected body %v", body)
	}
	if env.uploader.name != "notice.txt" || env.uploader.body != "Platform closed" || env.uploader.language != "en" {
		t.Fatalf("unexpected upload %+v", env.uploader)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	newTestEnv().handler(Options{}).ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentStorageFailure(t *testing.T) {
	env := newTestEnv()
	env.uploader.err = domain.WrapError(domain.ErrTemporary, "publish ingest job", errors.New("nats down"))
	res := httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, multipartUpload(t, "a.txt", "x", ""))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGetResult(t *testing.T) {
	env := newTestEnv()
	env.results.results["doc-1"] = &domain.DocumentProcessingResult{DocumentID: "doc-1", Status: domain.ProcessingSuccess}

	res := httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/result", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-2/result", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unfinished document, got %d", res.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv()
	res := httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/search?q=brake&limit=500&category=Safety", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if env.search.limit != maxSearchLimit || env.search.category != domain.CategorySafety {
		t.Fatalf("unexpected search args limit=%d category=%s", env.search.limit, env.search.category)
	}

	res = httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/search", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", res.Code)
	}
}

func readSSE(t *testing.T, body io.Reader) []string {
	t.Helper()
	var names []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestStreamEventsLive(t *testing.T) {
	env := newTestEnv()
	server := httptest.NewServer(env.handler(Options{}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/documents/doc-7/events", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer res.Body.Close()
	if got := res.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	// Headers are flushed after the subscription exists.
	env.hub.Publish(ctx, domain.ProgressEvent{DocumentID: "doc-7", Stage: domain.StageUpload, Progress: 10})
	env.hub.Publish(ctx, domain.ProgressEvent{DocumentID: "doc-7", Stage: domain.StageComplete, Progress: 100, OverallProgress: 100})

	names := readSSE(t, res.Body)
	want := []string{"progress", "progress", "done"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestStreamEventsReplaysFinishedDocument(t *testing.T) {
	env := newTestEnv()
	env.results.results["doc-1"] = &domain.DocumentProcessingResult{
		DocumentID: "doc-1",
		ProgressEvents: []domain.ProgressEvent{
			{DocumentID: "doc-1", Stage: domain.StageUpload, Progress: 100},
			{DocumentID: "doc-1", Stage: domain.StageComplete, Progress: 100},
		},
	}
	res := httptest.NewRecorder()
	env.handler(Options{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/events", nil))

	names := readSSE(t, res.Body)
	if strings.Join(names, ",") != "progress,progress,done" {
		t.Fatalf("unexpected replay %v", names)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestEnv().handler(Options{RateLimitRPS: 1, RateLimitBurst: 1})

	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, httptest.NewRequest(http.MethodGet, "/v1/search?q=brake", nil))
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, httptest.NewRequest(http.MethodGet, "/v1/search?q=brake", nil))
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	res3 := httptest.NewRecorder()
	handler.ServeHTTP(res3, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res3.Code != http.StatusOK {
		t.Fatalf("health checks must bypass the limiter, got %d", res3.Code)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/analyze", nil))
		done <- res.Code
	}()

	<-started

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, httptest.NewRequest(http.MethodPost, "/v1/analyze", nil))
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}
	if resp := decodeBody(t, res2); resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

var _ ports.ProgressSubscriber = (*progress.Hub)(nil)
