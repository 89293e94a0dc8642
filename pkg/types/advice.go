// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the advice-engine pipeline:
// the topic taxonomy, transcript segments and chunks, and the persisted
// advice index consumed by search.
package types

// Topic is one identifier from the closed advice taxonomy.
type Topic string

const (
	TopicGrowth           Topic = "growth"             // user acquisition, virality, growth loops
	TopicPricing          Topic = "pricing"            // pricing strategy, monetization, packaging
	TopicProductMarketFit Topic = "product-market-fit" // PMF signals, validation, pivots
	TopicRoadmap          Topic = "roadmap"            // prioritization, planning, saying no
	TopicMetrics          Topic = "metrics"            // KPIs, measurement, north star metrics
	TopicHiring           Topic = "hiring"             // team building, interviews, culture
	TopicLeadership       Topic = "leadership"         // management, communication, influence
	TopicStrategy         Topic = "strategy"           // vision, positioning, competition
	TopicEnterprise       Topic = "enterprise"         // B2B sales, enterprise features
	TopicConsumer         Topic = "consumer"           // B2C, marketplaces, social
	TopicAI               Topic = "ai"                 // AI products, LLMs, AI strategy
	TopicExecution        Topic = "execution"          // shipping, speed, iteration
	TopicCulture          Topic = "culture"            // company culture, values, remote work
	TopicFundraising      Topic = "fundraising"        // raising money, investors, pitching
	TopicDesign           Topic = "design"             // product design, UX, user research
	TopicAnalytics        Topic = "analytics"          // data, experimentation, A/B testing
)

// Topics lists the taxonomy in its canonical order. Callers must not modify it.
var Topics = []Topic{
	TopicGrowth,
	TopicPricing,
	TopicProductMarketFit,
	TopicRoadmap,
	TopicMetrics,
	TopicHiring,
	TopicLeadership,
	TopicStrategy,
	TopicEnterprise,
	TopicConsumer,
	TopicAI,
	TopicExecution,
	TopicCulture,
	TopicFundraising,
	TopicDesign,
	TopicAnalytics,
}

var topicSet = func() map[Topic]bool {
	m := make(map[Topic]bool, len(Topics))
	for _, t := range Topics {
		m[t] = true
	}
	return m
}()

// Valid reports whether t is a member of the taxonomy.
func (t Topic) Valid() bool {
	return topicSet[t]
}

// TopicStrings returns the taxonomy as plain strings, in canonical order.
func TopicStrings() []string {
	out := make([]string, len(Topics))
	for i, t := range Topics {
		out[i] = string(t)
	}
	return out
}

// FilterTopics keeps the entries of raw that are exact taxonomy members,
// dropping duplicates and preserving first-seen order. The result is never nil.
func FilterTopics(raw []string) []Topic {
	out := make([]Topic, 0, len(raw))
	seen := make(map[Topic]bool, len(raw))
	for _, s := range raw {
		t := Topic(s)
		if !t.Valid() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Segment is one contiguous speaker turn from a transcript. Segments are
// never persisted.
type Segment struct {
	Speaker   string `json:"speaker" yaml:"speaker"`
	Timestamp string `json:"timestamp" yaml:"timestamp"` // HH:MM:SS
	Text      string `json:"text" yaml:"text"`
}

// Chunk is a word-bounded block of concatenated segments sent to the
// extraction oracle in one call.
type Chunk struct {
	// Text holds one "Speaker: text" paragraph per segment.
	Text string `json:"text" yaml:"text"`

	// Timestamp is the timestamp of the first segment in the chunk.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Words is the summed word count of the chunk's segment texts.
	Words int `json:"words" yaml:"words"`

	// Segments are the source segments, in order.
	Segments []Segment `json:"-" yaml:"-"`
}

// AdviceRecord is one persisted, topic-tagged piece of extracted guidance.
// Records are immutable once written to the index.
type AdviceRecord struct {
	// ID is derived from the guest slug and a per-transcript sequence number.
	ID string `json:"id" yaml:"id"`

	// Guest is the interviewee, taken from the transcript file name.
	Guest string `json:"guest" yaml:"guest"`

	// Episode identifies the episode; currently the same as Guest.
	Episode string `json:"episode" yaml:"episode"`

	// Topics is a non-empty, duplicate-free subset of the taxonomy.
	Topics []Topic `json:"topics" yaml:"topics"`

	// Insight is a one or two sentence summary of the advice.
	Insight string `json:"insight" yaml:"insight"`

	// Quote is a verbatim excerpt from the transcript.
	Quote string `json:"quote" yaml:"quote"`

	// Context describes the question or situation that prompted the advice.
	Context string `json:"context" yaml:"context"`

	// Timestamp is where the source chunk starts in the episode.
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// HasTopic reports whether the record is tagged with t.
func (r AdviceRecord) HasTopic(t Topic) bool {
	for _, rt := range r.Topics {
		if rt == t {
			return true
		}
	}
	return false
}

// IndexVersion is the format version written to new advice indexes.
const IndexVersion = "1.0.0"

// AdviceIndex is the durable output of ingestion and the sole input of search.
type AdviceIndex struct {
	Version     string `json:"version" yaml:"version"`
	GeneratedAt string `json:"generatedAt" yaml:"generated_at"` // RFC 3339

	// TranscriptCount is the number of distinct guests represented in Chunks.
	TranscriptCount int `json:"transcriptCount" yaml:"transcript_count"`

	Chunks []AdviceRecord `json:"chunks" yaml:"chunks"`

	// ProcessedTranscripts names every transcript that finished ingestion,
	// including those that produced no records.
	ProcessedTranscripts []string `json:"processedTranscripts,omitempty" yaml:"processed_transcripts,omitempty"`
}

// DistinctGuests returns the number of distinct guest values in the index.
func (idx AdviceIndex) DistinctGuests() int {
	seen := make(map[string]bool)
	for _, r := range idx.Chunks {
		seen[r.Guest] = true
	}
	return len(seen)
}
