// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/internal/index"
	"github.com/pdiddy/advice-engine/internal/metrics"
	"github.com/pdiddy/advice-engine/pkg/types"
)

// --- mock extractor ---

// scriptedExtractor answers based on markers in the chunk text:
// ADVICE → growth advice, BADTOPIC → advice with no valid topics,
// GARBAGE → unparseable, BOOM → failed, anything else → no advice.
type scriptedExtractor struct {
	mu     sync.Mutex
	guests []string
	onCall func(guest string)
}

func (s *scriptedExtractor) Extract(_ context.Context, chunk, guest, episode string) extract.Result {
	s.mu.Lock()
	s.guests = append(s.guests, guest)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(guest)
	}

	usage := extract.Completion{InputTokens: 50, OutputTokens: 10}
	switch {
	case strings.Contains(chunk, "ADVICE"):
		return extract.Result{
			Outcome: extract.OutcomeAdvice,
			Advice: extract.AdviceFields{
				Topics:  []types.Topic{types.TopicGrowth},
				Insight: "insight from " + episode,
				Quote:   "quote",
				Context: "context",
			},
			Usage: usage,
		}
	case strings.Contains(chunk, "BADTOPIC"):
		return extract.Result{Outcome: extract.OutcomeAdvice, Advice: extract.AdviceFields{Topics: []types.Topic{}, Insight: "x"}, Usage: usage}
	case strings.Contains(chunk, "GARBAGE"):
		return extract.Result{Outcome: extract.OutcomeUnparseable, Err: errors.New("no JSON"), Usage: usage}
	case strings.Contains(chunk, "BOOM"):
		return extract.Result{Outcome: extract.OutcomeFailed, Err: errors.New("503")}
	}
	return extract.Result{Outcome: extract.OutcomeNoAdvice, Usage: usage}
}

// outageExtractor fails every call for the guests in down (all guests when
// down is empty) and defers to scriptedExtractor otherwise.
type outageExtractor struct {
	scriptedExtractor
	down map[string]bool
}

func (o *outageExtractor) Extract(ctx context.Context, chunk, guest, episode string) extract.Result {
	if len(o.down) == 0 || o.down[guest] {
		o.mu.Lock()
		o.guests = append(o.guests, guest)
		o.mu.Unlock()
		return extract.Result{Outcome: extract.OutcomeFailed, Err: errors.New("after 2 retries: 529 overloaded")}
	}
	return o.scriptedExtractor.Extract(ctx, chunk, guest, episode)
}

func (s *scriptedExtractor) calledGuests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, g := range s.guests {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// --- helpers ---

// turn builds one speaker turn with n filler words plus an optional marker.
func turn(speaker, ts, marker string, n int) string {
	return fmt.Sprintf("%s (%s):\n%s %s\n\n", speaker, ts, strings.TrimSpace(strings.Repeat("word ", n)), marker)
}

func writeTranscript(t *testing.T, dir, guest string, turns ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, guest+".txt"), []byte(strings.Join(turns, "")), 0o644))
}

type fixture struct {
	dir       string
	indexPath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "transcripts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return fixture{dir: dir, indexPath: filepath.Join(root, "data", "advice-index.json")}
}

func (f fixture) options() Options {
	return Options{
		TranscriptsDir: f.dir,
		IndexPath:      f.indexPath,
		Logger:         slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
}

// threeGuests writes three one-chunk transcripts, each with advice.
func threeGuests(t *testing.T, f fixture) {
	t.Helper()
	for i, g := range []string{"Alice Able", "Bob Baker", "Cara Cole"} {
		first := strings.Fields(g)[0]
		writeTranscript(t, f.dir, g,
			turn("Lenny", "00:00:01", "", 5),
			turn(first, fmt.Sprintf("00:0%d:00", i+1), "ADVICE", 5),
		)
	}
}

// --- naming ---

func TestSlugAndRecordID(t *testing.T) {
	assert.Equal(t, "ami-vora", Slug("Ami Vora"))
	assert.Equal(t, "dr.-jane-smith", Slug("Dr.  Jane\tSmith"))
	assert.Equal(t, "ami-vora-3", RecordID("Ami Vora", 3))
	assert.Equal(t, "Shreyas Doshi", GuestName("/x/transcripts/Shreyas Doshi.txt"))
}

// --- ProcessTranscript ---

func TestProcessTranscriptOutcomes(t *testing.T) {
	f := newFixture(t)
	// Each guest turn reaches the 500-word target so every turn closes a chunk.
	writeTranscript(t, f.dir, "Ami Vora",
		turn("Ami Vora", "00:01:00", "ADVICE", 500),
		turn("Ami Vora", "00:02:00", "", 500),
		turn("Ami Vora", "00:03:00", "BADTOPIC", 500),
		turn("Lenny", "00:04:00", "this episode is brought to you by Acme", 20),
		turn("Ami Vora", "00:05:00", "GARBAGE", 500),
		turn("Ami Vora", "00:06:00", "BOOM", 500),
		turn("Ami Vora", "00:07:00", "ADVICE", 500),
	)

	m := metrics.NewIngest()
	opts := f.options()
	opts.Metrics = m
	opts.Model = "test-model"
	p := New(&scriptedExtractor{}, opts)

	var out bytes.Buffer
	res, err := p.ProcessTranscript(context.Background(), filepath.Join(f.dir, "Ami Vora.txt"), &out)
	require.NoError(t, err)

	assert.Equal(t, 7, res.Segments)
	assert.Equal(t, 1, res.AdSegments)
	assert.Equal(t, 6, res.Chunks)
	assert.Equal(t, map[string]int{"advice": 2, "no_advice": 1, "dropped": 1, "unparseable": 1, "failed": 1}, res.Outcomes)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "ami-vora-1", res.Records[0].ID)
	assert.Equal(t, "00:01:00", res.Records[0].Timestamp)
	assert.Equal(t, "ami-vora-6", res.Records[1].ID, "ids count every chunk, not just kept ones")
	assert.Equal(t, "Ami Vora", res.Records[1].Episode)

	log := out.String()
	assert.Contains(t, log, "parsed 7 segments (1 ads removed)")
	assert.Contains(t, log, "chunk 1/6 [ADVICE] growth")
	assert.Contains(t, log, "chunk 2/6 [skip]\n")
	assert.Contains(t, log, "chunk 3/6 [skip] (dropped)")
	assert.Contains(t, log, "chunk 5/6 [skip] (failed)")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Chunks.WithLabelValues("advice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Chunks.WithLabelValues("dropped")))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.TokensUsed.WithLabelValues("test-model", "input")))
}

func TestProcessTranscriptAdsNeverReachOracle(t *testing.T) {
	f := newFixture(t)
	writeTranscript(t, f.dir, "Ami Vora",
		turn("Lenny", "00:00:01", "THIS EPISODE IS BROUGHT TO YOU BY Acme. ADVICE", 10),
	)

	ex := &scriptedExtractor{}
	res, err := New(ex, f.options()).ProcessTranscript(context.Background(), filepath.Join(f.dir, "Ami Vora.txt"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Chunks)
	assert.Empty(t, ex.guests)
	assert.Empty(t, res.Records)
}

func TestProcessTranscriptMissingFile(t *testing.T) {
	f := newFixture(t)
	_, err := New(&scriptedExtractor{}, f.options()).ProcessTranscript(context.Background(), filepath.Join(f.dir, "Nobody.txt"), &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// --- ListTranscripts / SelectSample ---

func TestListTranscripts(t *testing.T) {
	f := newFixture(t)
	writeTranscript(t, f.dir, "b", "x")
	writeTranscript(t, f.dir, "a", "x")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "sub.txt"), 0o755))

	files, err := ListTranscripts(f.dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
}

func TestListTranscriptsErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := ListTranscripts(missing)
	require.ErrorIs(t, err, ErrNoTranscripts)
	assert.Contains(t, err.Error(), missing)

	empty := t.TempDir()
	_, err = ListTranscripts(empty)
	require.ErrorIs(t, err, ErrNoTranscripts)
	assert.Contains(t, err.Error(), empty)
}

func TestSelectSample(t *testing.T) {
	all := []string{"A.txt", "Ami Vora.txt", "Lenny Rachitsky.txt", "Shreyas Doshi.txt", "Z.txt"}
	assert.Equal(t, DefaultSampleFiles, SelectSample(all, DefaultSampleFiles))

	partial := []string{"A.txt", "Ami Vora.txt", "B.txt", "C.txt"}
	assert.Equal(t, []string{"A.txt", "Ami Vora.txt", "B.txt"}, SelectSample(partial, DefaultSampleFiles))

	assert.Equal(t, []string{"A.txt"}, SelectSample([]string{"A.txt"}, DefaultSampleFiles))
}

// --- Run ---

func TestRunWritesIndex(t *testing.T) {
	f := newFixture(t)
	threeGuests(t, f)

	m := metrics.NewIngest()
	opts := f.options()
	opts.Metrics = m

	var out bytes.Buffer
	summary, err := New(&scriptedExtractor{}, opts).Run(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, summary.NewRecords)
	assert.Equal(t, 3, summary.TotalRecords)
	assert.Equal(t, 3, summary.TranscriptCount)
	assert.Equal(t, []index.TopicCount{{Topic: types.TopicGrowth, Count: 3}}, summary.Distribution)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Transcripts))

	idx, err := index.Load(f.indexPath)
	require.NoError(t, err)
	assert.Equal(t, types.IndexVersion, idx.Version)
	assert.Equal(t, 3, idx.TranscriptCount)
	assert.Equal(t, []string{"alice-able-1", "bob-baker-1", "cara-cole-1"},
		[]string{idx.Chunks[0].ID, idx.Chunks[1].ID, idx.Chunks[2].ID})
	assert.Equal(t, 3, strings.Count(out.String(), "[SAVED]"))
	assert.Contains(t, out.String(), "[SAVED] 3/3 transcripts, 3 records")
}

func TestRunResumesAfterInterruption(t *testing.T) {
	f := newFixture(t)
	threeGuests(t, f)

	// First run: cancel as soon as the second transcript reaches the oracle.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := &scriptedExtractor{onCall: func(guest string) {
		if guest == "Bob Baker" {
			cancel()
		}
	}}
	summary, err := New(first, f.options()).Run(ctx, &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Processed)

	idx, err := index.Load(f.indexPath)
	require.NoError(t, err)
	require.Len(t, idx.Chunks, 1)
	assert.Equal(t, "Alice Able", idx.Chunks[0].Guest)
	assert.Equal(t, 1, idx.TranscriptCount)

	// Second run processes only the remaining two transcripts.
	second := &scriptedExtractor{}
	summary, err = New(second, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob Baker", "Cara Cole"}, second.calledGuests())
	assert.Equal(t, 1, summary.AlreadyProcessed)
	assert.Equal(t, 2, summary.Processed)

	idx, err = index.Load(f.indexPath)
	require.NoError(t, err)
	assert.Len(t, idx.Chunks, 3)
	assert.Equal(t, 3, idx.TranscriptCount)

	ids := map[string]int{}
	for _, r := range idx.Chunks {
		ids[r.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "record %s duplicated", id)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	threeGuests(t, f)

	_, err := New(&scriptedExtractor{}, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	before, err := os.ReadFile(f.indexPath)
	require.NoError(t, err)

	again := &scriptedExtractor{}
	summary, err := New(again, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, again.guests)
	assert.Equal(t, 3, summary.AlreadyProcessed)
	assert.Equal(t, 0, summary.Processed)

	after, err := os.ReadFile(f.indexPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "index must not be rewritten when nothing is pending")
}

func TestRunDoesNotRebillZeroAdviceTranscripts(t *testing.T) {
	f := newFixture(t)
	writeTranscript(t, f.dir, "Quiet Guest", turn("Quiet", "00:00:01", "", 10))

	_, err := New(&scriptedExtractor{}, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)

	again := &scriptedExtractor{}
	_, err = New(again, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, again.guests)

	idx, err := index.Load(f.indexPath)
	require.NoError(t, err)
	assert.Empty(t, idx.Chunks)
	assert.Equal(t, 0, idx.TranscriptCount)
	assert.Equal(t, []string{"Quiet Guest"}, idx.ProcessedTranscripts)
}

func TestRunRetriesTranscriptsAfterOracleOutage(t *testing.T) {
	f := newFixture(t)
	threeGuests(t, f)

	var out bytes.Buffer
	summary, err := New(&outageExtractor{}, f.options()).Run(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 3, summary.Failed)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, map[string]int{"failed": 3}, summary.Outcomes)
	assert.Contains(t, out.String(), "[RETRY] 1/1 chunks failed, Alice Able not saved")

	idx, err := index.LoadOrNew(f.indexPath)
	require.NoError(t, err)
	assert.Empty(t, index.ProcessedGuests(idx))

	healthy := &scriptedExtractor{}
	summary, err = New(healthy, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Able", "Bob Baker", "Cara Cole"}, healthy.calledGuests())
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	idx, err = index.Load(f.indexPath)
	require.NoError(t, err)
	assert.Len(t, idx.Chunks, 3)
	assert.Equal(t, 3, idx.TranscriptCount)
}

func TestRunPartialOutageRetriesOnlyAffectedTranscript(t *testing.T) {
	f := newFixture(t)
	threeGuests(t, f)

	first := &outageExtractor{down: map[string]bool{"Bob Baker": true}}
	summary, err := New(first, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	idx, err := index.Load(f.indexPath)
	require.NoError(t, err)
	assert.Len(t, idx.Chunks, 2)
	assert.False(t, index.ProcessedGuests(idx)["Bob Baker"])

	second := &scriptedExtractor{}
	summary, err = New(second, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob Baker"}, second.calledGuests())
	assert.Equal(t, 2, summary.AlreadyProcessed)
	assert.Equal(t, 1, summary.Processed)

	idx, err = index.Load(f.indexPath)
	require.NoError(t, err)
	assert.Len(t, idx.Chunks, 3)
}

func TestRunSkipsUnreadableTranscript(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	f := newFixture(t)
	threeGuests(t, f)
	bad := filepath.Join(f.dir, "Bob Baker.txt")
	require.NoError(t, os.Chmod(bad, 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	summary, err := New(&scriptedExtractor{}, f.options()).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasFailures())
}

func TestRunSampleMode(t *testing.T) {
	f := newFixture(t)
	for _, g := range []string{"A One", "B Two", "C Three", "D Four"} {
		writeTranscript(t, f.dir, g, turn(strings.Fields(g)[0], "00:00:01", "ADVICE", 5))
	}

	opts := f.options()
	opts.Sample = true
	ex := &scriptedExtractor{}
	summary, err := New(ex, opts).Run(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Candidates)
	assert.Equal(t, []string{"A One", "B Two", "C Three"}, ex.calledGuests())
}

func TestRunNoTranscripts(t *testing.T) {
	f := newFixture(t)
	_, err := New(&scriptedExtractor{}, f.options()).Run(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoTranscripts)
}

func TestRunCorruptIndexIsFatal(t *testing.T) {
	f := newFixture(t)
	threeGuests(t, f)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.indexPath), 0o755))
	require.NoError(t, os.WriteFile(f.indexPath, []byte("{broken"), 0o644))

	ex := &scriptedExtractor{}
	_, err := New(ex, f.options()).Run(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "loading existing index")
	assert.Empty(t, ex.guests)
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	PrintSummary(Summary{
		Processed:       2,
		NewRecords:      3,
		TotalRecords:    5,
		TranscriptCount: 4,
		IndexPath:       "data/advice-index.json",
		Outcomes:        map[string]int{"advice": 3, "failed": 1},
		Distribution:    []index.TopicCount{{Topic: types.TopicAI, Count: 4}, {Topic: types.TopicGrowth, Count: 1}},
	}, &out)

	got := out.String()
	assert.Contains(t, got, "total advice records:  5")
	assert.Contains(t, got, "output:                data/advice-index.json")
	assert.Contains(t, got, "  failed: 1")
	assert.Less(t, strings.Index(got, "ai: 4"), strings.Index(got, "growth: 1"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := types.IngestConfig{
		AIConfig:         types.AIConfig{Model: "m"},
		TranscriptsDir:   "t",
		IndexPath:        "i.json",
		ChunkTargetWords: 10,
		ChunkMaxWords:    20,
		ExtraAdPatterns:  []string{"promo code"},
	}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "m", opts.Model)
	assert.Equal(t, 10, opts.Chunk.TargetWords)
	assert.True(t, opts.AdFilter.IsAd(types.Segment{Text: "use PROMO CODE lenny"}))
	assert.True(t, opts.AdFilter.IsAd(types.Segment{Text: "Sponsored by Acme"}))
}
