// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// FormatAdvice renders a response as markdown for the calling agent.
// requested is echoed back when nothing matched.
func FormatAdvice(resp Response, requested []string, w io.Writer) {
	if len(resp.Advice) == 0 {
		fmt.Fprintf(w, "No advice found for topics: %s\n\n", strings.Join(requested, ", "))
		fmt.Fprintf(w, "Try different topics from: %s\n", strings.Join(types.TopicStrings(), ", "))
		return
	}

	fmt.Fprintf(w, "Found %d relevant advice chunks (showing top %d).\n\n", resp.TotalMatches, len(resp.Advice))
	fmt.Fprintf(w, "Topics matched: %s\n\n---\n", joinTopics(resp.TopicsMatched))

	for i, r := range resp.Advice {
		if i > 0 {
			fmt.Fprint(w, "\n---\n")
		}
		fmt.Fprintf(w, "\n## %d. %s\n", i+1, r.Guest)
		fmt.Fprintf(w, "**Topics:** %s\n", joinTopics(r.Topics))
		fmt.Fprintf(w, "**Context:** %s\n\n", r.Context)
		fmt.Fprintf(w, "**Insight:** %s\n\n", r.Insight)
		fmt.Fprintf(w, "> \"%s\"\n\n", r.Quote)
		episode := r.Episode
		if r.Timestamp != "" {
			episode += " (" + r.Timestamp + ")"
		}
		fmt.Fprintf(w, "*Episode: %s*\n", episode)
	}

	fmt.Fprint(w, "---\n\n")
	fmt.Fprintln(w, "**How to use this advice:**")
	fmt.Fprintln(w, "Synthesize these insights against your specific plan. Consider:")
	fmt.Fprintln(w, "- Which advice directly applies to decisions you're making?")
	fmt.Fprintln(w, "- Are there conflicting perspectives? How do you reconcile them?")
	fmt.Fprintln(w, "- What context from your situation changes how this advice applies?")
}

// FormatTopics renders the record count and per-topic counts in taxonomy order.
func FormatTopics(stats Stats, w io.Writer) {
	fmt.Fprintln(w, "# Available Topics")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total advice chunks: %d\n\n", stats.TotalChunks)
	for _, t := range types.Topics {
		fmt.Fprintf(w, "- **%s**: %d advice chunks\n", t, stats.ChunksByTopic[t])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use these topics with the `search` command to find relevant insights.")
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinTopics(ts []types.Topic) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
