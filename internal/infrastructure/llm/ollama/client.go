// Package ollama runs a local summarization model through the Ollama HTTP API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/llmhttp"
)

const DefaultModel = "llama3.2:1b"

// pulls can take minutes; everything else is bounded by the caller's context
const pullTimeout = 10 * time.Minute

var _ ports.SummarizationModel = (*Client)(nil)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: llmhttp.NewHTTPClient(pullTimeout),
	}
}

func (c *Client) Name() string {
	return c.model
}

// Load makes sure the model exists locally, pulling it when /api/show
// reports it missing, and warms it into memory.
func (c *Client) Load(ctx context.Context) error {
	err := llmhttp.PostJSON(ctx, c.httpClient, c.baseURL+"/api/show", nil, map[string]any{"model": c.model}, nil, "ollama show")
	var statusErr *llmhttp.HTTPStatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		if err := c.pull(ctx); err != nil {
			return domain.WrapError(domain.ErrModelUnavailable, "ollama.load", err)
		}
	default:
		return domain.WrapError(domain.ErrModelUnavailable, "ollama.load", err)
	}

	warm := map[string]any{"model": c.model, "prompt": "", "stream": false}
	if err := llmhttp.PostJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, warm, nil, "ollama warmup"); err != nil {
		return domain.WrapError(domain.ErrModelUnavailable, "ollama.load", err)
	}
	return nil
}

func (c *Client) pull(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	req := map[string]any{"model": c.model, "stream": false}
	if err := llmhttp.PostJSON(ctx, c.httpClient, c.baseURL+"/api/pull", nil, req, &resp, "ollama pull"); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("ollama pull: %s", resp.Error)
	}
	return nil
}

func (c *Client) Summarize(ctx context.Context, text string, params ports.SummarizationParams) (string, error) {
	req := map[string]any{
		"model":  c.model,
		"prompt": buildSummaryPrompt(text, params),
		"stream": false,
		"options": map[string]any{
			"temperature": 0.1,
			// roughly 4 tokens per 3 words
			"num_predict": params.MaxLength * 4 / 3,
		},
	}
	var resp struct {
		Response string `json:"response"`
	}
	if err := llmhttp.PostJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, req, &resp, "ollama generate"); err != nil {
		return "", llmhttp.WrapTemporary("ollama.summarize", err)
	}
	out := strings.TrimSpace(resp.Response)
	if out == "" {
		return "", domain.WrapError(domain.ErrParse, "ollama.summarize", errors.New("empty response"))
	}
	return out, nil
}

// Unload asks the server to evict the model from memory.
func (c *Client) Unload(ctx context.Context) error {
	req := map[string]any{"model": c.model, "prompt": "", "stream": false, "keep_alive": 0}
	return llmhttp.PostJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, req, nil, "ollama unload")
}

func buildSummaryPrompt(text string, params ports.SummarizationParams) string {
	return fmt.Sprintf(`Summarize the document below in %d to %d words.
Keep safety instructions, dates and amounts. Plain prose only, no headings, no lists.

Document:
%s`, params.MinLength, params.MaxLength, text)
}
