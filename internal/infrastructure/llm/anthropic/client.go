// Package anthropic calls the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/llmhttp"
	"github.com/kirillkom/docintel/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"
	APIVersion     = "2023-06-01"
	maxTokens      = 2048
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

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.executor == nil {
		return c.generate(ctx, prompt)
	}
	return resilience.Call(ctx, c.executor, "anthropic.generate", func(ctx context.Context) (string, error) {
		return c.generate(ctx, prompt)
	}, nil)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	const op = "anthropic.generate"
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    "Respond with a single JSON object and nothing else.",
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": APIVersion,
	}

	var resp messagesResponse
	if err := llmhttp.PostJSON(ctx, c.httpClient, c.baseURL+"/v1/messages", headers, req, &resp, "anthropic messages"); err != nil {
		return "", llmhttp.WrapTemporary(op, err)
	}
	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", domain.WrapError(domain.ErrParse, op, errors.New("no text content in response"))
	}
	return strings.TrimSpace(out.String()), nil
}
