// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file holds one secret: the filename is the key name and the trimmed
// contents are the value. Environment variables serve as a fallback.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// Key file names recognised in the secrets directory.
const (
	KeyAnthropic = "anthropic-api-key"
	KeyOpenAI    = "openai-api-key"
)

// envFallback maps key file names to the environment variable consulted
// when the file is absent.
var envFallback = map[string]string{
	KeyAnthropic: "ANTHROPIC_API_KEY",
	KeyOpenAI:    "OPENAI_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are
// reported on warn and skipped.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	if warn == nil {
		warn = io.Discard
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Resolve returns the secret for key from loaded, falling back to the
// key's environment variable. The empty string means neither is set.
func Resolve(loaded map[string]string, key string) string {
	if v := loaded[key]; v != "" {
		return v
	}
	if env, ok := envFallback[key]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// KeyFor names the secret that authenticates provider.
func KeyFor(provider types.AIProvider) (string, error) {
	switch provider {
	case types.ProviderAnthropic, "":
		return KeyAnthropic, nil
	case types.ProviderOpenAI:
		return KeyOpenAI, nil
	}
	return "", fmt.Errorf("unknown AI provider %q (want %s or %s)", provider, types.ProviderAnthropic, types.ProviderOpenAI)
}
