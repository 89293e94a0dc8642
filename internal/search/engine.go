// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search answers multi-topic queries over a loaded advice index.
// An Engine is immutable after New and safe for concurrent use.
package search

import (
	"sort"

	"github.com/pdiddy/advice-engine/internal/topics"
	"github.com/pdiddy/advice-engine/pkg/types"
)

// DefaultMaxResults is used when a query does not set a positive limit.
const DefaultMaxResults = 5

// Engine holds the advice records and a topic → records map built once.
type Engine struct {
	records []types.AdviceRecord
	byTopic map[types.Topic][]int // indexes into records, in index order
}

// New builds an Engine from idx. Every taxonomy topic gets a bucket, and
// record topics outside the taxonomy are ignored. The records slice is
// copied so later changes to idx do not leak into the engine.
func New(idx *types.AdviceIndex) *Engine {
	e := &Engine{byTopic: make(map[types.Topic][]int, len(types.Topics))}
	for _, t := range types.Topics {
		e.byTopic[t] = nil
	}
	if idx == nil {
		return e
	}

	e.records = make([]types.AdviceRecord, len(idx.Chunks))
	copy(e.records, idx.Chunks)
	for i, r := range e.records {
		for _, t := range r.Topics {
			if _, ok := e.byTopic[t]; !ok {
				continue
			}
			e.byTopic[t] = append(e.byTopic[t], i)
		}
	}
	return e
}

// Response is the result of one search.
type Response struct {
	Advice        []types.AdviceRecord `json:"advice" yaml:"advice"`
	TopicsMatched []types.Topic        `json:"topicsMatched" yaml:"topics_matched"`
	TotalMatches  int                  `json:"totalMatches" yaml:"total_matches"`
}

// Search normalizes the requested topics and returns records ranked by the
// number of requested topics they carry. Ties keep the order in which
// records were first matched. An empty or fully unknown topic list yields an
// empty response, not an error.
func (e *Engine) Search(requested []string, maxResults int) Response {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	canonical, _ := topics.NormalizeAll(requested)
	if len(canonical) == 0 {
		return Response{Advice: []types.AdviceRecord{}, TopicsMatched: []types.Topic{}}
	}

	type hit struct {
		rec   int
		score int
	}
	var hits []hit
	pos := make(map[int]int) // record index → position in hits
	for _, t := range canonical {
		for _, ri := range e.byTopic[t] {
			if p, ok := pos[ri]; ok {
				hits[p].score++
				continue
			}
			pos[ri] = len(hits)
			hits = append(hits, hit{rec: ri, score: 1})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	n := min(len(hits), maxResults)
	advice := make([]types.AdviceRecord, n)
	for i := range n {
		advice[i] = e.records[hits[i].rec]
	}
	return Response{
		Advice:        advice,
		TopicsMatched: canonical,
		TotalMatches:  len(hits),
	}
}

// AdviceRequest mirrors the get_product_advice lookup arguments. PlanSummary
// is carried for the caller's benefit and does not affect matching.
type AdviceRequest struct {
	Topics      []string `json:"topics" yaml:"topics"`
	PlanSummary string   `json:"planSummary,omitempty" yaml:"plan_summary,omitempty"`
	MaxResults  int      `json:"maxResults,omitempty" yaml:"max_results,omitempty"`
}

// GetProductAdvice runs Search for req.
func (e *Engine) GetProductAdvice(req AdviceRequest) Response {
	return e.Search(req.Topics, req.MaxResults)
}

// Stats summarizes the loaded index.
type Stats struct {
	TotalChunks   int                 `json:"totalChunks" yaml:"total_chunks"`
	ChunksByTopic map[types.Topic]int `json:"chunksByTopic" yaml:"chunks_by_topic"`
}

// Stats returns the record count and the per-topic bucket sizes. Every
// taxonomy topic is present, with zero for empty buckets.
func (e *Engine) Stats() Stats {
	s := Stats{
		TotalChunks:   len(e.records),
		ChunksByTopic: make(map[types.Topic]int, len(e.byTopic)),
	}
	for t, recs := range e.byTopic {
		s.ChunksByTopic[t] = len(recs)
	}
	return s
}
