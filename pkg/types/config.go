// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ResearchConfig holds settings for the concrete research tools.
type ResearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of search results formatted into a
	// single tool observation (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableDuckDuckGo controls whether the DuckDuckGo backend is registered.
	EnableDuckDuckGo bool `json:"enable_duckduckgo" yaml:"enable_duckduckgo"`

	// EnableWikipedia controls whether the Wikipedia backend is registered.
	EnableWikipedia bool `json:"enable_wikipedia" yaml:"enable_wikipedia"`
}

// AIConfig holds shared settings for calls to the reasoning model API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for transient API failures
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AgentConfig holds settings for the agent control loop.
type AgentConfig struct {
	AIConfig `yaml:",inline"`

	// MaxSteps bounds the number of reasoning steps per run (default 10).
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// ToolTimeout is the caller-imposed timeout on a single tool invocation.
	// A tool that exceeds it is recorded as a failed observation (default 30s).
	ToolTimeout time.Duration `json:"tool_timeout" yaml:"tool_timeout"`
}

// NotesConfig holds settings for artifact persistence.
type NotesConfig struct {
	// OutputDir is the directory for saved notes and reports (default "outputs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// IndexDir is the directory for the notes index database. Empty disables
	// indexing; notes are still written as plain files.
	IndexDir string `json:"index_dir,omitempty" yaml:"index_dir,omitempty"`

	// MaxResults is the default maximum number of index query results
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all component configurations for the agent.
type Config struct {
	Agent    AgentConfig    `json:"agent" yaml:"agent"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Notes    NotesConfig    `json:"notes" yaml:"notes"`
}
