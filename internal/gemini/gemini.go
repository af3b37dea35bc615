// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini sends single-turn prompts to the Gemini generateContent API
// and returns the generated text. Every request carries the same generation
// settings; callers vary only the prompt.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/httputil"
	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

// DefaultEndpoint is the Gemini API base URL.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

const serviceName = "Gemini API"

// Client calls the Gemini API. Construct with New.
type Client struct {
	cfg    types.GenerationConfig
	policy httputil.Policy
	http   *http.Client
	log    *zap.Logger

	// OnRetry, when set, is called before each wait between attempts.
	OnRetry httputil.RetryFunc
}

// New returns a Client for cfg. A nil httpClient uses http.DefaultClient;
// a nil logger discards logs.
func New(cfg types.GenerationConfig, httpClient *http.Client, log *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:    cfg,
		policy: httputil.NewPolicy(cfg.Retry, cfg.Timeout),
		http:   httpClient,
		log:    logging.OrNop(log).Named("gemini"),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// Generate sends prompt and returns the first candidate's text. It retries
// per the configured policy; authorization and configuration failures are
// returned immediately.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", types.ErrValidation)
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: Gemini API key is not set", types.ErrConfiguration)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			TopK:            c.cfg.TopK,
			TopP:            c.cfg.TopP,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	onRetry := func(attempt int, err error, wait time.Duration) {
		c.log.Warn("generation attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
		if c.OnRetry != nil {
			c.OnRetry(attempt, err, wait)
		}
	}

	start := time.Now()
	var text string
	err = httputil.Do(ctx, c.policy, httputil.RetryableGeneration, onRetry, func(actx context.Context) error {
		var aerr error
		text, aerr = c.once(actx, body)
		return aerr
	})
	if err != nil {
		c.log.Warn("generation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", err
	}
	c.log.Debug("generation succeeded",
		zap.Int("prompt_chars", len([]rune(prompt))),
		zap.Int("output_chars", len([]rune(text))),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func (c *Client) once(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", types.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling %s: %v", types.ErrTransient, serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s response: %v", types.ErrTransient, serviceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = string(raw)
		}
		return "", httputil.NewStatusError(serviceName, resp.StatusCode, msg)
	}

	return ExtractText(raw)
}

// ExtractText pulls candidates[0].content.parts[0].text out of a
// generateContent response body. An error object, an unparsable body, or an
// empty text are all reported as types.ErrTransient.
func ExtractText(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: %s returned an unparsable body", types.ErrTransient, serviceName)
	}
	res := gjson.ParseBytes(raw)
	if e := res.Get("error"); e.Exists() {
		return "", fmt.Errorf("%w: %s error: %s", types.ErrTransient, serviceName, e.Get("message").String())
	}
	text := res.Get("candidates.0.content.parts.0.text").String()
	if strings.TrimSpace(text) == "" {
		reason := res.Get("candidates.0.finishReason").String()
		if reason == "" {
			reason = res.Get("promptFeedback.blockReason").String()
		}
		if reason != "" {
			return "", fmt.Errorf("%w: %s returned no text (reason %s)", types.ErrTransient, serviceName, reason)
		}
		return "", fmt.Errorf("%w: %s returned no text", types.ErrTransient, serviceName)
	}
	return text, nil
}
