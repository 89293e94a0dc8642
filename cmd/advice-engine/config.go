// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/internal/secrets"
	"github.com/pdiddy/advice-engine/pkg/types"
)

const (
	defaultClaudeModel = "claude-haiku-4-5-20251001"
	defaultOpenAIModel = "gpt-5-mini"
	defaultIndexPath   = "data/advice-index.json"
)

// oracleTimeout bounds a single HTTP exchange with the Claude API.
const oracleTimeout = 2 * time.Minute

// mustBind ties a viper key to a flag. Binding only fails for a nil flag,
// which is a programming error.
func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding %s: %v", key, err))
	}
}

// aiConfig reads the oracle settings under prefix (e.g. "ingest").
func aiConfig(prefix string) types.AIConfig {
	cfg := types.AIConfig{
		Provider:   types.AIProvider(viper.GetString(prefix + ".provider")),
		Model:      viper.GetString(prefix + ".model"),
		MaxTokens:  viper.GetInt(prefix + ".max_tokens"),
		MaxRetries: viper.GetInt(prefix + ".max_retries"),
	}
	if cfg.Provider == "" {
		cfg.Provider = types.ProviderAnthropic
	}
	if cfg.Model == "" || (cfg.Provider == types.ProviderOpenAI && cfg.Model == defaultClaudeModel) {
		cfg.Model = defaultModel(cfg.Provider)
	}
	return cfg
}

func defaultModel(p types.AIProvider) string {
	if p == types.ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultClaudeModel
}

// ingestConfig assembles the ingest stage configuration from viper.
func ingestConfig() types.IngestConfig {
	return types.IngestConfig{
		AIConfig:         aiConfig("ingest"),
		TranscriptsDir:   viper.GetString("ingest.transcripts_dir"),
		IndexPath:        viper.GetString("ingest.index_path"),
		Sample:           viper.GetBool("ingest.sample"),
		SampleFiles:      viper.GetStringSlice("ingest.sample_files"),
		Delay:            viper.GetDuration("ingest.delay"),
		ChunkTargetWords: viper.GetInt("ingest.chunk_target_words"),
		ChunkMaxWords:    viper.GetInt("ingest.chunk_max_words"),
		ExtraAdPatterns:  viper.GetStringSlice("ingest.extra_ad_patterns"),
		MetricsTextfile:  viper.GetString("ingest.metrics_textfile"),
	}
}

// searchConfig assembles the lookup configuration from viper.
func searchConfig() types.SearchConfig {
	return types.SearchConfig{
		IndexPath:  viper.GetString("search.index_path"),
		MaxResults: viper.GetInt("search.max_results"),
	}
}

// knowledgeConfig assembles the SQLite mirror configuration from viper.
func knowledgeConfig() types.KnowledgeBaseConfig {
	return types.KnowledgeBaseConfig{
		KnowledgeDir: viper.GetString("knowledge.dir"),
		MaxResults:   viper.GetInt("knowledge.max_results"),
	}
}

// buildOracle returns the backend for cfg.Provider, authenticated from
// .secrets/ or the environment.
func buildOracle(cfg *types.AIConfig) (extract.Oracle, error) {
	keyName, err := secrets.KeyFor(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		cfg.APIKey = secrets.Resolve(loadedSecrets, keyName)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider %s: write .secrets/%s or set the environment variable", cfg.Provider, keyName)
	}

	switch cfg.Provider {
	case types.ProviderOpenAI:
		return extract.NewOpenAIBackend(cfg.APIKey), nil
	default:
		return &extract.ClaudeBackend{
			APIKey: cfg.APIKey,
			Client: &http.Client{Timeout: oracleTimeout},
		}, nil
	}
}
