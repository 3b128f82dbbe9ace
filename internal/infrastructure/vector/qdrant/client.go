// Package qdrant indexes document chunks as sparse lexical vectors in
// Qdrant and serves keyword search over them.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/infrastructure/chunking"
)

const (
	DefaultCollection = "transit_documents"
	sparseVectorName  = "text"
)

// pointNamespace makes point ids stable per document chunk.
var pointNamespace = uuid.MustParse("5b0f7c8e-2f1d-4a9b-9c61-5d1f0b6a7e42")

var (
	_ ports.SearchIndexer    = (*Client)(nil)
	_ ports.DocumentSearcher = (*Client)(nil)
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	splitter   *chunking.Splitter
	logger     *slog.Logger

	ensureMu sync.Mutex
	ensured  bool
}

func New(baseURL, collection string, splitter *chunking.Splitter, logger *slog.Logger) *Client {
	if collection == "" {
		collection = DefaultCollection
	}
	if splitter == nil {
		splitter = chunking.NewSplitter(chunking.DefaultChunkSize, chunking.DefaultOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		splitter:   splitter,
		logger:     logger,
	}
}

type point struct {
	ID      string                  `json:"id"`
	Vector  map[string]sparseVector `json:"vector"`
	Payload map[string]any          `json:"payload"`
}

// IndexDocument replaces every chunk previously indexed for documentID.
func (c *Client) IndexDocument(ctx context.Context, documentID, fileName, text string, analysis domain.DocumentAnalysis) error {
	chunks := c.splitter.Split(text)
	if len(chunks) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}
	if err := c.deleteDocument(ctx, documentID); err != nil {
		return err
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     PointID(documentID, i),
			Vector: map[string]sparseVector{sparseVectorName: encodeSparseDocument(chunk, fileName)},
			Payload: map[string]any{
				"doc_id":       documentID,
				"filename":     fileName,
				"category":     string(analysis.Classification.Category),
				"department":   analysis.Classification.Department,
				"priority":     string(analysis.Classification.Priority),
				"safety_score": analysis.Safety.SafetyScore,
				"language":     string(analysis.Language),
				"chunk_index":  i,
				"text":         chunk,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if err := c.doJSON(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert"); err != nil {
		return err
	}
	c.logger.Debug("document_indexed", "document_id", documentID, "chunks", len(points))
	return nil
}

// Search runs a sparse keyword query, optionally restricted to one category.
func (c *Client) Search(ctx context.Context, query string, limit int, category domain.Category) ([]domain.SearchHit, error) {
	vector := encodeSparseQuery(query)
	if len(vector.Indices) == 0 {
		return []domain.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"query":        vector,
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if category != "" {
		req["filter"] = matchFilter("category", string(category))
	}

	var resp struct {
		Result struct {
			Points []struct {
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp, "query"); err != nil {
		return nil, err
	}

	out := make([]domain.SearchHit, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, domain.SearchHit{
			DocumentID: getStringPayload(p.Payload, "doc_id"),
			FileName:   getStringPayload(p.Payload, "filename"),
			Category:   getStringPayload(p.Payload, "category"),
			Text:       getStringPayload(p.Payload, "text"),
			Score:      p.Score,
		})
	}
	return out, nil
}

func PointID(documentID string, chunk int) string {
	return uuid.NewSHA1(pointNamespace, fmt.Appendf(nil, "%s:%d", documentID, chunk)).String()
}

func (c *Client) deleteDocument(ctx context.Context, documentID string) error {
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	return c.doJSON(ctx, http.MethodPost, path, map[string]any{"filter": matchFilter("doc_id", documentID)}, nil, "delete")
}

func (c *Client) ensureCollection(ctx context.Context) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensured {
		return nil
	}

	req := map[string]any{
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{"modifier": "idf"},
		},
	}
	err := c.doJSON(ctx, http.MethodPut, "/collections/"+c.collection, req, nil, "ensure collection")
	// 409 when the collection already exists
	if err != nil && !isStatus(err, http.StatusConflict) {
		return err
	}
	c.ensured = true
	return nil
}

type statusError struct {
	op     string
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.op, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.op, e.status, e.body)
}

func isStatus(err error, code int) bool {
	se, ok := err.(*statusError)
	return ok && se.code == code
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any, op string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "qdrant."+op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{op: op, code: resp.StatusCode, status: resp.Status, body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func matchFilter(key, value string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": key, "match": map[string]any{"value": value}},
		},
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
