package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single attempt (not the whole retry sequence).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "report-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig describes how many attempts a client makes and how long it
// waits between them.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay caps exponential growth. Zero disables the cap.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`

	// Exponential doubles the delay on every retry when true; otherwise
	// every retry waits BaseDelay.
	Exponential bool `json:"exponential" yaml:"exponential" mapstructure:"exponential"`
}

// Provider names a generative-text backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// GenerationConfig holds settings for the text-generation client. The
// sampling settings are fixed per process, never per call.
type GenerationConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// Provider selects the backend: gemini (default) or openai.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "gemini-1.5-flash-latest").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the credential for the generative-text endpoint.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	Temperature     float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	TopK            int     `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
	TopP            float64 `json:"top_p" yaml:"top_p" mapstructure:"top_p"`
	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
}

// SearchConfig holds settings for the web search client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// APIKey is the search API credential.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// EngineID is the search-scope identifier (Custom Search "cx").
	EngineID string `json:"engine_id,omitempty" yaml:"engine_id,omitempty" mapstructure:"engine_id"`

	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// MaxResults is the number of results requested per query (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// RequestsPerSecond paces successive requests. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CollectConfig holds the evidence collector's per-term retry guard.
type CollectConfig struct {
	// TermRetries is the number of extra attempts per term (default 1).
	TermRetries int `json:"term_retries" yaml:"term_retries" mapstructure:"term_retries"`

	// RetryPause is the wait before a term is retried (default 1s).
	RetryPause time.Duration `json:"retry_pause" yaml:"retry_pause" mapstructure:"retry_pause"`
}

// ReviewConfig holds settings for the quality reviewer.
type ReviewConfig struct {
	// PassThreshold is the lowest passing score (default 70).
	PassThreshold int `json:"pass_threshold" yaml:"pass_threshold" mapstructure:"pass_threshold"`
}

// RunConfig holds settings for a whole pipeline run.
type RunConfig struct {
	// Timeout bounds the whole run. Zero means no bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// StallTimeout cancels a run that publishes no event for this long.
	StallTimeout time.Duration `json:"stall_timeout" yaml:"stall_timeout" mapstructure:"stall_timeout"`

	// Retries is the number of caller-side re-invocations after a retryable failure.
	Retries int `json:"retries" yaml:"retries" mapstructure:"retries"`

	// RetryPause is the wait before a re-invocation (default 2s).
	RetryPause time.Duration `json:"retry_pause" yaml:"retry_pause" mapstructure:"retry_pause"`
}

// HistoryConfig holds settings for the run history store.
type HistoryConfig struct {
	// Dir is the base directory for history (contains index/).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Disabled skips persisting runs.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`

	// MaxResults is the default list size (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// OutputConfig holds settings for writing finished reports.
type OutputConfig struct {
	// Dir is the directory for report files (e.g. "output/reports").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// HTML additionally renders each report to HTML.
	HTML bool `json:"html" yaml:"html" mapstructure:"html"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Collect    CollectConfig    `json:"collect" yaml:"collect" mapstructure:"collect"`
	Review     ReviewConfig     `json:"review" yaml:"review" mapstructure:"review"`
	Run        RunConfig        `json:"run" yaml:"run" mapstructure:"run"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Defaults   Constraints      `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
}

// DefaultPipelineConfig returns the settings used when no config file
// overrides them.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Generation: GenerationConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "report-engine/0.1"},
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   time.Second,
				MaxDelay:    8 * time.Second,
				Exponential: true,
			},
			Provider:        ProviderGemini,
			Model:           "gemini-1.5-flash-latest",
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 8192,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{Timeout: 15 * time.Second, UserAgent: "report-engine/0.1"},
			Retry: RetryConfig{
				MaxAttempts: 2,
				BaseDelay:   time.Second,
			},
			MaxResults: 10,
		},
		Collect: CollectConfig{
			TermRetries: 1,
			RetryPause:  time.Second,
		},
		Review: ReviewConfig{PassThreshold: 70},
		Run: RunConfig{
			Timeout:      10 * time.Minute,
			StallTimeout: 5 * time.Minute,
			RetryPause:   2 * time.Second,
		},
		History: HistoryConfig{Dir: "history", MaxResults: 20},
		Output:  OutputConfig{Dir: "output/reports"},
		Defaults: Constraints{
			AcademicLevel: "大学学部",
			TargetLength:  "1500",
		},
	}
}

// Apply fills empty constraint fields from the configured defaults.
func (d Constraints) Apply(c Constraints) Constraints {
	if c.AcademicLevel == "" {
		c.AcademicLevel = d.AcademicLevel
	}
	if c.TargetLength == "" {
		c.TargetLength = d.TargetLength
	}
	return c
}
