// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/pkg/types"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestAIConfigDefaults(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		model     string
		wantProv  types.AIProvider
		wantModel string
	}{
		{"empty uses claude", "", "", types.ProviderAnthropic, defaultClaudeModel},
		{"explicit model kept", "anthropic", "claude-sonnet-4-5", types.ProviderAnthropic, "claude-sonnet-4-5"},
		{"openai default", "openai", "", types.ProviderOpenAI, defaultOpenAIModel},
		{"openai replaces claude default", "openai", defaultClaudeModel, types.ProviderOpenAI, defaultOpenAIModel},
		{"openai explicit model", "openai", "gpt-4.1", types.ProviderOpenAI, "gpt-4.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			viper.Set("ingest.provider", tt.provider)
			viper.Set("ingest.model", tt.model)

			cfg := aiConfig("ingest")
			assert.Equal(t, tt.wantProv, cfg.Provider)
			assert.Equal(t, tt.wantModel, cfg.Model)
		})
	}
}

func TestIngestModelEnvFallback(t *testing.T) {
	resetViper(t)
	t.Setenv("INGEST_MODEL", "claude-opus-test")
	require.NoError(t, viper.BindEnv("ingest.model", "ADVICE_ENGINE_INGEST_MODEL", "INGEST_MODEL"))

	assert.Equal(t, "claude-opus-test", aiConfig("ingest").Model)
}

func TestIngestConfig(t *testing.T) {
	resetViper(t)
	viper.Set("ingest.transcripts_dir", "transcripts")
	viper.Set("ingest.index_path", defaultIndexPath)
	viper.Set("ingest.delay", "250ms")
	viper.Set("ingest.chunk_target_words", 400)
	viper.Set("ingest.extra_ad_patterns", []string{"promo code"})

	cfg := ingestConfig()
	assert.Equal(t, "transcripts", cfg.TranscriptsDir)
	assert.Equal(t, defaultIndexPath, cfg.IndexPath)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay)
	assert.Equal(t, 400, cfg.ChunkTargetWords)
	assert.Equal(t, []string{"promo code"}, cfg.ExtraAdPatterns)
	assert.Equal(t, defaultClaudeModel, cfg.Model)
}

func TestBuildOracle(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	loadedSecrets = map[string]string{"anthropic-api-key": "ak"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg := types.AIConfig{Provider: types.ProviderAnthropic}
	o, err := buildOracle(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &extract.ClaudeBackend{}, o)
	assert.Equal(t, "ak", cfg.APIKey)

	cfg = types.AIConfig{Provider: types.ProviderOpenAI}
	_, err = buildOracle(&cfg)
	assert.ErrorContains(t, err, "openai-api-key")

	t.Setenv("OPENAI_API_KEY", "ok")
	o, err = buildOracle(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &extract.OpenAIBackend{}, o)

	cfg = types.AIConfig{Provider: "gemini"}
	_, err = buildOracle(&cfg)
	assert.ErrorContains(t, err, "unknown AI provider")
}
