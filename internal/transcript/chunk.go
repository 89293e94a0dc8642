// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcript

import (
	"fmt"
	"strings"

	"github.com/pdiddy/advice-engine/pkg/types"
)

const (
	DefaultTargetWords = 500
	DefaultMaxWords    = 800
)

// ChunkOptions bounds chunk sizes in words. Zero values use the defaults.
type ChunkOptions struct {
	TargetWords int
	MaxWords    int
}

func (o ChunkOptions) withDefaults() ChunkOptions {
	if o.TargetWords <= 0 {
		o.TargetWords = DefaultTargetWords
	}
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	return o
}

// Chunk groups segments into chunks. A chunk is closed before a segment
// that would push it past MaxWords, and right after a guest turn once it
// has reached TargetWords, so that chunks tend to end on the guest's answer
// rather than the interviewer's question. A single segment longer than
// MaxWords becomes its own oversized chunk; segments are never split.
func Chunk(segments []types.Segment, guestName string, opts ChunkOptions) []types.Chunk {
	opts = opts.withDefaults()
	firstName := guestFirstName(guestName)

	var (
		chunks []types.Chunk
		buf    strings.Builder
		cur    types.Chunk
	)

	flush := func() {
		if text := strings.TrimSpace(buf.String()); text != "" {
			cur.Text = text
			chunks = append(chunks, cur)
		}
		buf.Reset()
		cur = types.Chunk{}
	}

	for _, seg := range segments {
		words := wordCount(seg.Text)

		if cur.Words > 0 && cur.Words+words > opts.MaxWords {
			flush()
		}

		if len(cur.Segments) == 0 {
			cur.Timestamp = seg.Timestamp
		}

		fmt.Fprintf(&buf, "%s: %s\n\n", seg.Speaker, seg.Text)
		cur.Words += words
		cur.Segments = append(cur.Segments, seg)

		if cur.Words >= opts.TargetWords && isGuestTurn(seg.Speaker, firstName) {
			flush()
		}
	}

	flush()
	return chunks
}

// guestFirstName returns the lowercased first whitespace token of the name.
func guestFirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// isGuestTurn reports whether the speaker label contains the guest's first
// name. Labels like "Dr. Jane Smith" for guest "Jane Smith" still match;
// labels that omit the first name do not.
func isGuestTurn(speaker, firstName string) bool {
	if firstName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(speaker), firstName)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
