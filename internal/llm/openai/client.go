package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/a4way/report-agent-workflow/internal/llm"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey  string
	BaseURL string
	OrgID   string
	Timeout time.Duration
	Options llm.Options
}

// Client implements llm.Completer on top of the chat completions endpoint.
// It works against api.openai.com and any OpenAI-compatible server (Ollama, vLLM).
type Client struct {
	client  *openai.Client
	config  Config
	options llm.Options
}

// NewClient creates a new OpenAI completion client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Options.Model == "" {
		return nil, fmt.Errorf("model is required for the OpenAI client")
	}

	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.OrgID != "" {
		openaiConfig.OrgID = cfg.OrgID
	}
	if cfg.Timeout > 0 {
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client:  openai.NewClientWithConfig(openaiConfig),
		config:  cfg,
		options: cfg.Options,
	}, nil
}

// WithTemperature returns a copy sharing the HTTP client but sampling at t.
func (c *Client) WithTemperature(t float32) *Client {
	cp := *c
	cp.options.Temperature = t
	return &cp
}

// Complete performs a single chat completion
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, ToRequest(c.options, systemPrompt, userPrompt))
	if err != nil {
		return "", NormalizeOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &llm.ProviderError{
			Code:    llm.ErrEmptyResponse,
			Message: "completion returned no choices",
		}
	}

	return resp.Choices[0].Message.Content, nil
}

// ToRequest builds the chat completion request for one system/user exchange.
func ToRequest(opts llm.Options, systemPrompt, userPrompt string) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	return openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}

// NormalizeOpenAIError converts go-openai errors to a normalized ProviderError
func NormalizeOpenAIError(err error) *llm.ProviderError {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{
			Code:       llm.CodeForStatus(apiErr.HTTPStatusCode),
			Message:    apiErr.Message,
			HTTPStatus: apiErr.HTTPStatusCode,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.ProviderError{
			Code:       llm.CodeForStatus(reqErr.HTTPStatusCode),
			Message:    reqErr.Error(),
			HTTPStatus: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return llm.NormalizeError(err)
}
