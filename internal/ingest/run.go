// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/internal/index"
	"github.com/pdiddy/advice-engine/pkg/types"
)

// Summary holds the outcome of a corpus run.
type Summary struct {
	Candidates       int
	AlreadyProcessed int
	Processed        int
	Failed           int
	NewRecords       int
	TotalRecords     int
	TranscriptCount  int
	IndexPath        string
	Outcomes         map[string]int
	Distribution     []index.TopicCount
}

// HasFailures reports whether any transcript could not be read or was left
// unsaved after oracle failures.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// ListTranscripts returns the transcript files in dir in directory order.
// A missing directory or one without transcripts yields ErrNoTranscripts.
func ListTranscripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrNoTranscripts, dir)
		}
		return nil, fmt.Errorf("reading transcript directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), transcriptExt) {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoTranscripts, transcriptExt, dir)
	}
	return files, nil
}

// SelectSample keeps the sample files present in available. When fewer than
// all of them exist it falls back to the first three available files.
func SelectSample(available, sample []string) []string {
	have := make(map[string]bool, len(available))
	for _, f := range available {
		have[f] = true
	}

	var picked []string
	for _, f := range sample {
		if have[f] {
			picked = append(picked, f)
		}
	}
	if len(picked) >= len(sample) && len(picked) > 0 {
		return picked
	}
	return available[:min(sampleSize, len(available))]
}

// Run ingests every pending transcript. The existing index is loaded first
// and transcripts already represented in it are skipped. After each
// transcript the whole index is rewritten, so an interruption loses at most
// the transcript in flight.
func (p *Pipeline) Run(ctx context.Context, w io.Writer) (Summary, error) {
	summary := Summary{IndexPath: p.opts.IndexPath, Outcomes: make(map[string]int)}

	idx, err := index.LoadOrNew(p.opts.IndexPath)
	if err != nil {
		return summary, fmt.Errorf("loading existing index: %w", err)
	}

	files, err := ListTranscripts(p.opts.TranscriptsDir)
	if err != nil {
		return summary, err
	}
	if p.opts.Sample {
		files = SelectSample(files, p.opts.SampleFiles)
		fmt.Fprintf(w, "sample mode: %d transcripts\n", len(files))
	}

	done := index.ProcessedGuests(idx)
	var pending []string
	for _, f := range files {
		if done[GuestName(f)] {
			summary.AlreadyProcessed++
			continue
		}
		pending = append(pending, f)
	}
	summary.Candidates = len(files)

	fmt.Fprintf(w, "found %d transcripts, %d already processed, %d remaining\n",
		len(files), summary.AlreadyProcessed, len(pending))
	if len(idx.Chunks) > 0 {
		fmt.Fprintf(w, "resuming with %d existing records\n", len(idx.Chunks))
	}

	for i, f := range pending {
		path := filepath.Join(p.opts.TranscriptsDir, f)
		fmt.Fprintf(w, "\n[%d/%d] processing %s\n", i+1, len(pending), GuestName(f))

		res, err := p.ProcessTranscript(ctx, path, w)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.finish(idx, &summary)
				return summary, fmt.Errorf("ingestion interrupted during %s: %w", res.Guest, ctxErr)
			}
			p.logger.Error("skipping transcript", "path", path, "err", err)
			summary.Failed++
			continue
		}

		if res.Incomplete() {
			failed := res.Outcomes[extract.OutcomeFailed.String()]
			p.logger.Warn("oracle failures, transcript left for the next run",
				"guest", res.Guest, "failed_chunks", failed)
			fmt.Fprintf(w, "  [RETRY] %d/%d chunks failed, %s not saved\n", failed, res.Chunks, res.Guest)
			summary.Failed++
			for k, v := range res.Outcomes {
				summary.Outcomes[k] += v
			}
			continue
		}

		idx.Chunks = append(idx.Chunks, res.Records...)
		index.MarkProcessed(idx, res.Guest)
		if err := index.Save(p.opts.IndexPath, idx); err != nil {
			return summary, fmt.Errorf("checkpointing after %s: %w", res.Guest, err)
		}

		summary.Processed++
		summary.NewRecords += len(res.Records)
		for k, v := range res.Outcomes {
			summary.Outcomes[k] += v
		}
		p.opts.Metrics.ObserveTranscript(len(res.Records))

		fmt.Fprintf(w, "  [SAVED] %d/%d transcripts, %d records\n",
			summary.AlreadyProcessed+summary.Processed, len(files), len(idx.Chunks))
	}

	p.finish(idx, &summary)
	return summary, nil
}

func (p *Pipeline) finish(idx *types.AdviceIndex, s *Summary) {
	s.TotalRecords = len(idx.Chunks)
	s.TranscriptCount = idx.DistinctGuests()
	s.Distribution = index.TopicDistribution(idx)
}

// PrintSummary writes the end-of-run report.
func PrintSummary(s Summary, w io.Writer) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nIngestion complete\n%s\n", rule, rule)
	fmt.Fprintf(w, "transcripts processed: %d (skipped %d, failed %d)\n", s.Processed, s.AlreadyProcessed, s.Failed)
	fmt.Fprintf(w, "guests in index:       %d\n", s.TranscriptCount)
	fmt.Fprintf(w, "new advice records:    %d\n", s.NewRecords)
	fmt.Fprintf(w, "total advice records:  %d\n", s.TotalRecords)
	fmt.Fprintf(w, "output:                %s\n", s.IndexPath)

	if len(s.Outcomes) > 0 {
		fmt.Fprintln(w, "\nchunk outcomes:")
		for _, k := range []string{"advice", "no_advice", "dropped", "unparseable", "failed"} {
			if n := s.Outcomes[k]; n > 0 {
				fmt.Fprintf(w, "  %s: %d\n", k, n)
			}
		}
	}

	if len(s.Distribution) > 0 {
		fmt.Fprintln(w, "\ntopic distribution:")
		for _, tc := range s.Distribution {
			fmt.Fprintf(w, "  %s: %d\n", tc.Topic, tc.Count)
		}
	}
}
