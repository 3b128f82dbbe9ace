// Package openai adapts the OpenAI chat completion API (and compatible
// servers) to ports.AIProvider.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/llmhttp"
	"github.com/kirillkom/docintel/internal/infrastructure/resilience"
)

const DefaultModel = goopenai.GPT4oMini

type Client struct {
	api      *goopenai.Client
	model    string
	executor *resilience.Executor
}

func New(baseURL, model, apiKey string, timeout time.Duration, executor *resilience.Executor) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = llmhttp.NewHTTPClient(timeout)
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.executor == nil {
		return c.generate(ctx, prompt)
	}
	return resilience.Call(ctx, c.executor, "openai.generate", func(ctx context.Context) (string, error) {
		return c.generate(ctx, prompt)
	}, nil)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	const op = "openai.generate"
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: "You analyse transit operations documents and answer in JSON."},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrParse, op, errors.New("no choices in response"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return statusError(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(op, reqErr.HTTPStatusCode, err)
	}
	return llmhttp.WrapTemporary(op, err)
}

func statusError(op string, code int, err error) error {
	if llmhttp.IsRetryableStatus(code) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return domain.WrapError(domain.ErrProviderUnavailable, op, err)
	}
	return err
}
