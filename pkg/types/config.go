package types

import "time"

// AIProvider selects the extraction oracle backend.
type AIProvider string

const (
	ProviderAnthropic AIProvider = "anthropic"
	ProviderOpenAI    AIProvider = "openai"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the oracle backend: anthropic or openai.
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "claude-haiku-4-5-20251001").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens bounds the size of each oracle response (default 500).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed oracle calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// IngestConfig holds settings for the ingestion stage.
type IngestConfig struct {
	AIConfig `yaml:",inline"`

	// TranscriptsDir holds one plain-text transcript per guest.
	TranscriptsDir string `json:"transcripts_dir" yaml:"transcripts_dir"`

	// IndexPath is the advice index JSON file written after every transcript.
	IndexPath string `json:"index_path" yaml:"index_path"`

	// Sample restricts the run to SampleFiles (or the first three transcripts).
	Sample bool `json:"sample" yaml:"sample"`

	// SampleFiles names the transcripts processed in sample mode.
	SampleFiles []string `json:"sample_files" yaml:"sample_files"`

	// Delay is the pause between consecutive oracle calls (default 100ms).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// ChunkTargetWords is the soft chunk size (default 500).
	ChunkTargetWords int `json:"chunk_target_words" yaml:"chunk_target_words"`

	// ChunkMaxWords is the hard chunk cap (default 800).
	ChunkMaxWords int `json:"chunk_max_words" yaml:"chunk_max_words"`

	// ExtraAdPatterns are appended to the built-in sponsor markers.
	ExtraAdPatterns []string `json:"extra_ad_patterns,omitempty" yaml:"extra_ad_patterns,omitempty"`

	// MetricsTextfile, when set, receives Prometheus metrics after the batch.
	MetricsTextfile string `json:"metrics_textfile,omitempty" yaml:"metrics_textfile,omitempty"`
}

// SearchConfig holds settings for the lookup side.
type SearchConfig struct {
	// IndexPath is the preferred advice index location.
	IndexPath string `json:"index_path" yaml:"index_path"`

	// MaxResults is the default number of records returned (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// KnowledgeBaseConfig holds settings for the SQLite advice mirror.
type KnowledgeBaseConfig struct {
	// KnowledgeDir is the base directory for the mirror (contains index/).
	KnowledgeDir string `json:"knowledge_dir" yaml:"knowledge_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Ingest        IngestConfig        `json:"ingest" yaml:"ingest"`
	Search        SearchConfig        `json:"search" yaml:"search"`
	KnowledgeBase KnowledgeBaseConfig `json:"knowledge_base" yaml:"knowledge_base"`
}
