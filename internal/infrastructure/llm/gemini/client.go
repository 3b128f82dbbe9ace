// Package gemini calls the Google Generative Language generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/llmhttp"
	"github.com/kirillkom/docintel/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model, apiKey string, timeout time.Duration, executor *resilience.Executor) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: llmhttp.NewHTTPClient(timeout),
		executor:   executor,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content      `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

const apiKeyHeader = "x-goog-api-key"

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	const op = "gemini.generate"
	if c.executor == nil {
		return c.generate(ctx, prompt)
	}
	return resilience.Call(ctx, c.executor, op, func(ctx context.Context) (string, error) {
		return c.generate(ctx, prompt)
	}, nil)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	const op = "gemini.generate"
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: map[string]any{
			"temperature":      0.2,
			"responseMimeType": "application/json",
		},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	// The key travels in a header so transport errors, which quote the URL,
	// never carry it into logs.
	headers := map[string]string{apiKeyHeader: c.apiKey}

	var resp generateResponse
	if err := llmhttp.PostJSON(ctx, c.httpClient, endpoint, headers, req, &resp, "gemini generate"); err != nil {
		return "", llmhttp.WrapTemporary(op, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", domain.WrapError(domain.ErrParse, op, errors.New("no candidates in response"))
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}
