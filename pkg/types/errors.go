// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors shared by all stages. Stages wrap them with context via
// fmt.Errorf("...: %w", Err...) and callers test with errors.Is.
var (
	// ErrConfiguration indicates a missing or invalid credential or setting.
	// Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransient indicates a timeout, 5xx, or malformed response body.
	ErrTransient = errors.New("transient network error")

	// ErrRateLimit indicates an HTTP 429 from an upstream API.
	ErrRateLimit = errors.New("rate limited")

	// ErrAuth indicates an HTTP 403: rejected credential or exhausted quota.
	ErrAuth = errors.New("authorization failed")

	// ErrRequestFailed indicates any other non-2xx response.
	ErrRequestFailed = errors.New("request failed")

	// ErrEmptyPlan indicates the planner produced no search terms.
	ErrEmptyPlan = errors.New("no search terms produced")

	// ErrDraftGeneration indicates no draft could be produced at all.
	ErrDraftGeneration = errors.New("draft generation failed")

	// ErrValidation indicates invalid input to a stage (empty topic, draft, prompt).
	ErrValidation = errors.New("validation failed")

	// ErrRunInProgress indicates a second concurrent Run on the same pipeline.
	ErrRunInProgress = errors.New("a report run is already in progress")
)
