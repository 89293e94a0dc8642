// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcript

import (
	"strings"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// DefaultAdPatterns are the literal, case-insensitive phrases that mark a
// sponsor read. Missed ads are acceptable; false positives are not.
var DefaultAdPatterns = []string{
	"this episode is brought to you by",
	"let me tell you about",
	"our sponsor",
	"sidebar.com",
	"useanvil.com",
	"sponsored by",
}

// AdFilter classifies segments as advertisements by phrase matching.
type AdFilter struct {
	patterns []string
}

// NewAdFilter returns a filter over DefaultAdPatterns plus any extra phrases.
// Blank extra phrases are ignored.
func NewAdFilter(extra ...string) *AdFilter {
	patterns := make([]string, 0, len(DefaultAdPatterns)+len(extra))
	for _, p := range append(append([]string{}, DefaultAdPatterns...), extra...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return &AdFilter{patterns: patterns}
}

// IsAd reports whether the segment text contains any sponsor marker.
func (f *AdFilter) IsAd(seg types.Segment) bool {
	text := strings.ToLower(seg.Text)
	for _, p := range f.patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Filter returns the segments that are not advertisements, in order, and
// the number removed.
func (f *AdFilter) Filter(segments []types.Segment) ([]types.Segment, int) {
	kept := make([]types.Segment, 0, len(segments))
	for _, seg := range segments {
		if f.IsAd(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	return kept, len(segments) - len(kept)
}
