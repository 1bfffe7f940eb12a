// Package ai sends structured generation requests to an OpenAI compatible chat completion API.
package ai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/velocoach/internal/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrMissingConfiguration is returned when no API key is configured.
	ErrMissingConfiguration = errors.NewSentinel("ai provider not configured")
	// ErrProviderRateLimit is returned when the provider throttles requests.
	ErrProviderRateLimit = errors.NewSentinel("ai provider rate limit")
)

// Schema is a JSON schema the response must conform to.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Request is a single structured generation request.
type Request struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Schema            Schema
}

// Client completes requests and returns the raw response text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config configures the OpenAI client. An empty BaseURL uses the SDK default.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// NewClient returns a client for cfg. Without an API key every call fails with ErrMissingConfiguration.
func NewClient(cfg Config) Client {
	if cfg.APIKey == "" {
		return unconfiguredClient{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &openAIClient{
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

type unconfiguredClient struct{}

func (unconfiguredClient) Complete(context.Context, Request) (string, error) {
	return "", ErrMissingConfiguration
}

type openAIClient struct {
	client openai.Client
	logger *slog.Logger
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	schema := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        req.Schema.Name,
		Description: openai.String(req.Schema.Description),
		Schema:      req.Schema.Definition,
		Strict:      openai.Bool(true),
	}
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemInstruction),
			openai.UserMessage(req.Prompt),
		},
		Model: openai.ChatModel(req.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		},
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", translate(err)
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "chat completion finished",
		slog.String("model", completion.Model),
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens),
		slog.Duration("duration", time.Since(start)))

	// An answer without choices is an empty response.
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// translate maps provider errors onto the package sentinels.
func translate(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return errors.Join(ErrProviderRateLimit, err)
	}
	if IsRateLimitMessage(err.Error()) {
		return errors.Join(ErrProviderRateLimit, err)
	}
	return errors.Wrap(err, "chat completion")
}

//nolint:gochecknoglobals // fixed lookup list.
var rateLimitSignals = []string{
	"429", "rate limit", "rate_limit", "ratelimit", "quota", "too many requests", "resource_exhausted",
}

// IsRateLimitMessage reports whether an error text signals throttling.
func IsRateLimitMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, signal := range rateLimitSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}
