// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openaicompat is an alternate text-generation backend for any
// OpenAI-compatible chat-completions endpoint. It honours the same contract
// as the Gemini client: one prompt in, one text out, identical error
// classification and retry policy.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/httputil"
	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

const serviceName = "OpenAI-compatible API"

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gpt-4o-mini"

// Client calls a chat-completions endpoint through the openai-go SDK.
type Client struct {
	cfg    types.GenerationConfig
	policy httputil.Policy
	client openai.Client
	log    *zap.Logger

	// OnRetry, when set, is called before each wait between attempts.
	OnRetry httputil.RetryFunc
}

// New returns a Client for cfg. The SDK's own retries are disabled so the
// shared policy is the only one in effect.
func New(cfg types.GenerationConfig, httpClient *http.Client, log *zap.Logger) *Client {
	if cfg.Model == "" || strings.HasPrefix(cfg.Model, "gemini") {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, option.WithHeader("User-Agent", cfg.UserAgent))
	}

	return &Client{
		cfg:    cfg,
		policy: httputil.NewPolicy(cfg.Retry, cfg.Timeout),
		client: openai.NewClient(opts...),
		log:    logging.OrNop(log).Named("openai"),
	}
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", types.ErrValidation)
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: OpenAI API key is not set", types.ErrConfiguration)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = param.NewOpt(c.cfg.Temperature)
	}
	if c.cfg.TopP > 0 {
		params.TopP = param.NewOpt(c.cfg.TopP)
	}
	if c.cfg.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(c.cfg.MaxOutputTokens))
	}

	onRetry := func(attempt int, err error, wait time.Duration) {
		c.log.Warn("generation attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if c.OnRetry != nil {
			c.OnRetry(attempt, err, wait)
		}
	}

	var text string
	err := httputil.Do(ctx, c.policy, httputil.RetryableGeneration, onRetry, func(actx context.Context) error {
		resp, err := c.client.Chat.Completions.New(actx, params)
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return fmt.Errorf("%w: %s returned no text", types.ErrTransient, serviceName)
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		c.log.Warn("generation failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

// classify maps SDK errors onto the shared sentinels.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return httputil.NewStatusError(serviceName, apiErr.StatusCode, apiErr.Message)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: calling %s: %v", types.ErrTransient, serviceName, err)
}
