// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcript turns raw interview transcripts into speaker segments
// and groups them into extraction-sized chunks.
package transcript

import (
	"regexp"
	"strings"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// speakerPattern matches a speaker marker line: a name followed by a
// (HH:MM:SS) timestamp, an optional trailing colon, and nothing else.
var speakerPattern = regexp.MustCompile(`^(.+?)\s*\((\d{2}:\d{2}:\d{2})\):?\s*$`)

// Segment splits transcript content into ordered speaker segments. Text
// before the first speaker marker is discarded, and a marker whose turn has
// no text produces no segment. Content without markers yields nil.
func Segment(content string) []types.Segment {
	var (
		segments  []types.Segment
		speaker   string
		timestamp string
		text      strings.Builder
	)

	flush := func() {
		body := strings.TrimSpace(text.String())
		if speaker != "" && body != "" {
			segments = append(segments, types.Segment{
				Speaker:   speaker,
				Timestamp: timestamp,
				Text:      body,
			})
		}
		text.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if name, ts, ok := parseSpeakerLine(line); ok {
			flush()
			speaker = name
			timestamp = ts
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			text.WriteByte(' ')
			text.WriteString(trimmed)
		}
	}

	flush()
	return segments
}

// parseSpeakerLine extracts the speaker name and timestamp from a marker line.
func parseSpeakerLine(line string) (name, timestamp string, ok bool) {
	m := speakerPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name = strings.TrimSpace(m[1])
	if name == "" {
		return "", "", false
	}
	return name, m[2], true
}

// Excerpt returns a slice of content suitable for a quick model comparison:
// lines 50 through 149 (skipping the introduction), capped at maxChars bytes.
func Excerpt(content string, maxChars int) string {
	lines := strings.Split(content, "\n")
	start, end := 50, 150
	if start > len(lines) {
		start = len(lines)
	}
	if end > len(lines) {
		end = len(lines)
	}
	s := strings.Join(lines[start:end], "\n")
	if maxChars > 0 && len(s) > maxChars {
		s = s[:maxChars]
	}
	return s
}
