// Package httpadapter hosts the document intelligence core over HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/observability/metrics"
)

const (
	defaultMaxUploadBytes = 25 << 20
	defaultMaxInFlight    = 32
	defaultQueueWait      = 2 * time.Second
	defaultKeepAlive      = 15 * time.Second
	maxSearchLimit        = 50
	maxAnalyzeBytes       = 2 << 20
)

type resultReader interface {
	GetProcessingResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error)
}

// Dependencies are the core ports served by the router. Search and Metrics
// are optional.
type Dependencies struct {
	Analyzer ports.DocumentAnalyzer
	Uploader ports.DocumentUploader
	Results  resultReader
	Progress ports.ProgressSubscriber
	Search   ports.DocumentSearcher
	Metrics  *metrics.HTTPServerMetrics
	Logger   *slog.Logger
}

type Options struct {
	Service        string
	UploadMode     string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
	KeepAlive      time.Duration
}

type Router struct {
	deps Dependencies
	opts Options
}

func NewRouter(deps Dependencies, opts Options) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Service == "" {
		opts.Service = "docintel-api"
	}
	if opts.UploadMode == "" {
		opts.UploadMode = "inline"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = defaultMaxInFlight
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = defaultQueueWait
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}
	return &Router{deps: deps, opts: opts}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.Handle("POST /v1/analyze", rt.gated(rt.analyze))
	api.Handle("POST /v1/documents", rt.gated(rt.uploadDocument))
	api.HandleFunc("GET /v1/documents/{id}/result", rt.getResult)
	api.HandleFunc("GET /v1/documents/{id}/events", rt.streamEvents)
	api.HandleFunc("GET /v1/search", rt.search)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		root.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	root.Handle("/", rateLimitMiddleware(api, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst))

	var handler http.Handler = root
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(rt.opts.Service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.deps.Logger, handler))
}

func (rt *Router) gated(fn http.HandlerFunc) http.Handler {
	return backpressureMiddleware(fn, rt.opts.MaxInFlight, rt.opts.QueueWait)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if lister, ok := rt.deps.Analyzer.(interface{ EnabledProviders() []string }); ok {
		body["providers"] = lister.EnabledProviders()
	}
	writeJSON(w, http.StatusOK, body)
}

type analyzeRequest struct {
	Content  string `json:"content"`
	FileName string `json:"fileName"`
	Language string `json:"language"`
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Analyzer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}

	analysis, err := rt.deps.Analyzer.Analyze(r.Context(), req.Content, req.FileName, domain.Language(req.Language))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type uploadResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	ResultURL  string `json:"resultUrl"`
	EventsURL  string `json:"eventsUrl"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Uploader == nil {
		writeError(w, r, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	id, err := rt.deps.Uploader.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		domain.Language(r.FormValue("language")),
		file,
	)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordUpload(rt.opts.Service, rt.opts.UploadMode)
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		DocumentID: id,
		Status:     "processing",
		ResultURL:  "/v1/documents/" + id + "/result",
		EventsURL:  "/v1/documents/" + id + "/events",
	})
}

func (rt *Router) getResult(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Results == nil {
		writeError(w, r, http.StatusServiceUnavailable, "results are not configured")
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	result, err := rt.deps.Results.GetProcessingResult(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type searchResponse struct {
	Query string             `json:"query"`
	Hits  []domain.SearchHit `json:"hits"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Search == nil {
		writeError(w, r, http.StatusServiceUnavailable, "search is not configured")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	hits, err := rt.deps.Search.Search(r.Context(), query, limit, domain.Category(r.URL.Query().Get("category")))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Hits: hits})
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.deps.Logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeError(w, r, status, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":     message,
		"requestId": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
