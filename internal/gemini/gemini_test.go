// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-engine/pkg/types"
)

const okBody = `{"candidates":[{"content":{"parts":[{"text":"1. 量子コンピュータ\n2. quantum computing"}]},"finishReason":"STOP"}]}`

func testConfig(endpoint string) types.GenerationConfig {
	cfg := types.DefaultPipelineConfig().Generation
	cfg.APIKey = "test-key"
	cfg.Endpoint = endpoint
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 4 * time.Millisecond
	return cfg
}

func TestGenerate_Success(t *testing.T) {
	var got generateRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-1.5-flash-latest:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(okBody))
	}))
	defer ts.Close()

	c := New(testConfig(ts.URL), ts.Client(), nil)
	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "1. 量子コンピュータ\n2. quantum computing", text)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.7, got.GenerationConfig.Temperature)
	assert.Equal(t, 40, got.GenerationConfig.TopK)
	assert.Equal(t, 0.95, got.GenerationConfig.TopP)
	assert.Equal(t, 8192, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	c := New(testConfig("http://unused"), nil, nil)
	_, err := c.Generate(context.Background(), "   ")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestGenerate_MissingKeyMakesNoCall(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.APIKey = ""
	_, err := New(cfg, ts.Client(), nil).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(okBody))
	}))
	defer ts.Close()

	c := New(testConfig(ts.URL), ts.Client(), nil)
	var retries int32
	c.OnRetry = func(int, error, time.Duration) { atomic.AddInt32(&retries, 1) }

	_, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&retries))
}

func TestGenerate_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{"forbidden not retried", http.StatusForbidden, types.ErrAuth, 1},
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimit, 3},
		{"server error", http.StatusInternalServerError, types.ErrTransient, 3},
		{"invalid key not retried", http.StatusBadRequest, types.ErrRequestFailed, 1},
		{"not found not retried", http.StatusNotFound, types.ErrRequestFailed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"code":1,"message":"upstream says no"}}`))
			}))
			defer ts.Close()

			_, err := New(testConfig(ts.URL), ts.Client(), nil).Generate(context.Background(), "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "upstream says no")
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestGenerate_AttemptTimeout(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.Timeout = 20 * time.Millisecond
	cfg.Retry.MaxAttempts = 2
	_, err := New(cfg, ts.Client(), nil).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, types.ErrTransient)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerate_ParentCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(ts.URL), ts.Client(), nil).Generate(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"ok", okBody, "1. 量子コンピュータ\n2. quantum computing", false},
		{"error object", `{"error":{"message":"quota"}}`, "", true},
		{"not json", `<html>`, "", true},
		{"no candidates", `{"candidates":[]}`, "", true},
		{"blank text", `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, "", true},
		{"safety block", `{"candidates":[{"finishReason":"SAFETY"}]}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrTransient)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
