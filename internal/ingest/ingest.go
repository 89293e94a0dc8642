// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest drives transcripts through segmentation, ad filtering,
// chunking, and extraction, checkpointing the advice index after every
// transcript so an interrupted batch resumes where it stopped.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/internal/index"
	"github.com/pdiddy/advice-engine/internal/metrics"
	"github.com/pdiddy/advice-engine/internal/transcript"
	"github.com/pdiddy/advice-engine/pkg/types"
)

// ErrNoTranscripts is returned when the transcript directory is missing or
// holds no transcript files.
var ErrNoTranscripts = errors.New("no transcripts found")

// DefaultSampleFiles are the transcripts processed in sample mode.
var DefaultSampleFiles = []string{"Ami Vora.txt", "Shreyas Doshi.txt", "Lenny Rachitsky.txt"}

const (
	transcriptExt = ".txt"
	sampleSize    = 3

	// DefaultDelay spaces consecutive oracle calls.
	DefaultDelay = 100 * time.Millisecond
)

// Extractor turns one chunk into a classified extraction result.
// *extract.Client implements it.
type Extractor interface {
	Extract(ctx context.Context, chunk, guest, episode string) extract.Result
}

// Options configures a Pipeline.
type Options struct {
	TranscriptsDir string
	IndexPath      string
	Sample         bool
	SampleFiles    []string

	// Delay is the minimum spacing between oracle calls. Zero disables it.
	Delay time.Duration

	Chunk     transcript.ChunkOptions
	AdFilter  *transcript.AdFilter
	Model     string // metrics label only
	Metrics   *metrics.Ingest
	Logger    *slog.Logger
}

// OptionsFromConfig maps the ingest configuration onto Options.
func OptionsFromConfig(cfg types.IngestConfig) Options {
	return Options{
		TranscriptsDir: cfg.TranscriptsDir,
		IndexPath:      cfg.IndexPath,
		Sample:         cfg.Sample,
		SampleFiles:    cfg.SampleFiles,
		Delay:          cfg.Delay,
		Chunk: transcript.ChunkOptions{
			TargetWords: cfg.ChunkTargetWords,
			MaxWords:    cfg.ChunkMaxWords,
		},
		AdFilter: transcript.NewAdFilter(cfg.ExtraAdPatterns...),
		Model:    cfg.Model,
	}
}

// Pipeline runs ingestion. It is not safe for concurrent use: the index
// file has a single writer.
type Pipeline struct {
	extractor Extractor
	opts      Options
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New returns a Pipeline that extracts with ex.
func New(ex Extractor, opts Options) *Pipeline {
	if opts.AdFilter == nil {
		opts.AdFilter = transcript.NewAdFilter()
	}
	if len(opts.SampleFiles) == 0 {
		opts.SampleFiles = DefaultSampleFiles
	}
	if opts.IndexPath == "" {
		opts.IndexPath = index.DefaultPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Pipeline{
		extractor: ex,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// TranscriptResult reports what one transcript produced.
type TranscriptResult struct {
	Guest      string
	Segments   int
	AdSegments int
	Chunks     int
	Records    []types.AdviceRecord

	// Outcomes counts chunks by extraction outcome, plus "dropped" for
	// advice whose topics were all outside the taxonomy.
	Outcomes map[string]int
}

const outcomeDropped = "dropped"

// Incomplete reports whether any chunk failed at the oracle. Such a
// transcript must be extracted again, so it is not checkpointed.
func (r TranscriptResult) Incomplete() bool {
	return r.Outcomes[extract.OutcomeFailed.String()] > 0
}

// GuestName derives the guest (and episode) name from a transcript path.
func GuestName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug lowercases guest and replaces whitespace runs with hyphens.
func Slug(guest string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(guest), "-")
}

// RecordID is the id of the advice record drawn from the n-th chunk
// (1-based, counting every chunk) of guest's transcript.
func RecordID(guest string, n int) string {
	return fmt.Sprintf("%s-%d", Slug(guest), n)
}

// ProcessTranscript runs one transcript end to end. Per-chunk extraction
// failures are logged and counted, never returned. An error means the file
// could not be read or ctx was cancelled; partial records are discarded.
func (p *Pipeline) ProcessTranscript(ctx context.Context, path string, w io.Writer) (TranscriptResult, error) {
	guest := GuestName(path)
	res := TranscriptResult{Guest: guest, Outcomes: make(map[string]int)}

	content, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("reading transcript %s: %w", path, err)
	}

	segments := transcript.Segment(string(content))
	filtered, ads := p.opts.AdFilter.Filter(segments)
	chunks := transcript.Chunk(filtered, guest, p.opts.Chunk)
	res.Segments, res.AdSegments, res.Chunks = len(segments), ads, len(chunks)

	fmt.Fprintf(w, "  parsed %d segments (%d ads removed)\n", len(segments), ads)
	fmt.Fprintf(w, "  created %d chunks\n", len(chunks))

	for i, c := range chunks {
		if err := p.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("waiting for oracle slot: %w", err)
		}

		start := time.Now()
		result := p.extractor.Extract(ctx, c.Text, guest, guest)
		elapsed := time.Since(start)
		if err := ctx.Err(); err != nil {
			return res, err
		}

		outcome := result.Outcome.String()
		if result.Outcome == extract.OutcomeAdvice && !result.Keep() {
			outcome = outcomeDropped
		}
		res.Outcomes[outcome]++
		p.opts.Metrics.ObserveChunk(outcome, elapsed)
		p.opts.Metrics.ObserveTokens(p.opts.Model, result.Usage.InputTokens, result.Usage.OutputTokens)

		if !result.Keep() {
			fmt.Fprintf(w, "  chunk %d/%d [skip]%s\n", i+1, len(chunks), skipNote(outcome))
			continue
		}

		res.Records = append(res.Records, types.AdviceRecord{
			ID:        RecordID(guest, i+1),
			Guest:     guest,
			Episode:   guest,
			Topics:    result.Advice.Topics,
			Insight:   result.Advice.Insight,
			Quote:     result.Advice.Quote,
			Context:   result.Advice.Context,
			Timestamp: c.Timestamp,
		})
		fmt.Fprintf(w, "  chunk %d/%d [ADVICE] %s\n", i+1, len(chunks), joinTopics(result.Advice.Topics))
	}

	fmt.Fprintf(w, "  extracted %d advice records\n", len(res.Records))
	return res, nil
}

func skipNote(outcome string) string {
	if outcome == extract.OutcomeNoAdvice.String() {
		return ""
	}
	return " (" + outcome + ")"
}

func joinTopics(ts []types.Topic) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
