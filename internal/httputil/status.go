// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/report-engine/pkg/types"
)

const maxBodyInMessage = 300

// StatusError is a non-2xx response from an upstream API. It unwraps to one
// of the classification sentinels in pkg/types.
type StatusError struct {
	Service string
	Code    int
	Body    string
	kind    error
}

// NewStatusError classifies an HTTP status code:
// 403 → ErrAuth, 429 → ErrRateLimit, 5xx → ErrTransient, anything else →
// ErrRequestFailed.
func NewStatusError(service string, code int, body string) *StatusError {
	var kind error
	switch {
	case code == http.StatusForbidden:
		kind = types.ErrAuth
	case code == http.StatusTooManyRequests:
		kind = types.ErrRateLimit
	case code >= 500:
		kind = types.ErrTransient
	default:
		kind = types.ErrRequestFailed
	}
	body = strings.TrimSpace(body)
	if r := []rune(body); len(r) > maxBodyInMessage {
		body = string(r[:maxBodyInMessage]) + "..."
	}
	return &StatusError{Service: service, Code: code, Body: body, kind: kind}
}

func (e *StatusError) Error() string {
	var hint string
	switch e.Code {
	case http.StatusForbidden:
		hint = " (access denied: check the API key restrictions or quota)"
	case http.StatusTooManyRequests:
		hint = " (rate limit exceeded)"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d%s: %v", e.Service, e.Code, hint, e.kind)
	}
	return fmt.Sprintf("%s: HTTP %d%s: %v: %s", e.Service, e.Code, hint, e.kind, e.Body)
}

func (e *StatusError) Unwrap() error { return e.kind }
