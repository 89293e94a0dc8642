// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index reads and writes the advice index JSON file. Writes replace
// the whole file atomically so a reader never observes a partial index.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// DefaultPath is the index location relative to a project root.
var DefaultPath = filepath.Join("data", "advice-index.json")

// ErrNotFound is returned by Locate when no candidate path holds an index.
var ErrNotFound = errors.New("advice index not found")

// New returns an empty index stamped with the current version.
func New() *types.AdviceIndex {
	return &types.AdviceIndex{
		Version: types.IndexVersion,
		Chunks:  []types.AdviceRecord{},
	}
}

// Load reads and decodes the index at path.
func Load(path string) (*types.AdviceIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}
	var idx types.AdviceIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", path, err)
	}
	if idx.Chunks == nil {
		idx.Chunks = []types.AdviceRecord{}
	}
	return &idx, nil
}

// LoadOrNew loads the index at path, or returns an empty index when the file
// does not exist yet. Any other failure is returned.
func LoadOrNew(path string) (*types.AdviceIndex, error) {
	idx, err := Load(path)
	if err == nil {
		return idx, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return nil, err
}

// Candidates returns the default search locations for the index, most
// specific first: the configured path (if any), data/advice-index.json next
// to the executable's parent directory, and relative to the working directory.
func Candidates(configured string) []string {
	var out []string
	if configured != "" {
		out = append(out, configured)
	}
	if exe, err := os.Executable(); err == nil {
		out = append(out, filepath.Join(filepath.Dir(filepath.Dir(exe)), DefaultPath))
	}
	if wd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(wd, DefaultPath))
	}
	return dedupe(out)
}

// Locate loads the first candidate that exists. When none exists the error
// wraps ErrNotFound and lists every path tried. A candidate that exists but
// cannot be decoded is returned as an error immediately.
func Locate(candidates []string) (*types.AdviceIndex, string, error) {
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		idx, err := Load(p)
		if err != nil {
			return nil, p, err
		}
		return idx, p, nil
	}
	return nil, "", fmt.Errorf("%w; tried: %s", ErrNotFound, strings.Join(candidates, ", "))
}

// Save stamps the index with a fresh generation time and distinct guest
// count, then writes it to path via a temp file in the same directory.
func Save(path string, idx *types.AdviceIndex) error {
	if idx.Version == "" {
		idx.Version = types.IndexVersion
	}
	if idx.Chunks == nil {
		idx.Chunks = []types.AdviceRecord{}
	}
	idx.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	idx.TranscriptCount = idx.DistinctGuests()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".advice-index-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// Removing after a successful rename is a no-op.
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ProcessedGuests returns the set of transcripts already ingested: every
// guest with at least one record plus every name in ProcessedTranscripts.
func ProcessedGuests(idx *types.AdviceIndex) map[string]bool {
	done := make(map[string]bool, len(idx.ProcessedTranscripts))
	for _, r := range idx.Chunks {
		done[r.Guest] = true
	}
	for _, name := range idx.ProcessedTranscripts {
		done[name] = true
	}
	return done
}

// MarkProcessed records guest as finished, keeping the list sorted and unique.
func MarkProcessed(idx *types.AdviceIndex, guest string) {
	i := sort.SearchStrings(idx.ProcessedTranscripts, guest)
	if i < len(idx.ProcessedTranscripts) && idx.ProcessedTranscripts[i] == guest {
		return
	}
	idx.ProcessedTranscripts = append(idx.ProcessedTranscripts, "")
	copy(idx.ProcessedTranscripts[i+1:], idx.ProcessedTranscripts[i:])
	idx.ProcessedTranscripts[i] = guest
}

// TopicCount is one row of a topic distribution.
type TopicCount struct {
	Topic types.Topic `json:"topic" yaml:"topic"`
	Count int         `json:"count" yaml:"count"`
}

// TopicDistribution counts records per topic, sorted by descending count.
// Ties keep taxonomy order; topics with no records are omitted.
func TopicDistribution(idx *types.AdviceIndex) []TopicCount {
	counts := make(map[types.Topic]int)
	for _, r := range idx.Chunks {
		for _, t := range r.Topics {
			counts[t]++
		}
	}
	var out []TopicCount
	for _, t := range types.Topics {
		if counts[t] > 0 {
			out = append(out, TopicCount{Topic: t, Count: counts[t]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
