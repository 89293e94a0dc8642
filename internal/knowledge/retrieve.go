// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/advice-engine/internal/transcript"
	"github.com/pdiddy/advice-engine/pkg/types"
)

// QueryOptions holds parameters for mirror queries.
type QueryOptions struct {
	// Query is a case-insensitive substring matched against insight,
	// quote, and context.
	Query string

	// Topics filters with AND semantics.
	Topics []types.Topic

	// Guest filters by guest name, case-insensitively.
	Guest string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && len(q.Topics) == 0 && q.Guest == ""
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Retrieve returns mirrored records matching opts in index order.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]types.AdviceRecord, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT r.id, r.guest, r.episode, r.topics, r.insight, r.quote, r.context, r.timestamp
		FROM records r
		WHERE 1=1`)

	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(q) + "%"
		qb.WriteString(` AND (r.insight LIKE ? ESCAPE '\' OR r.quote LIKE ? ESCAPE '\' OR r.context LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if opts.Guest != "" {
		qb.WriteString(` AND r.guest = ? COLLATE NOCASE`)
		args = append(args, opts.Guest)
	}

	for _, t := range opts.Topics {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM record_topics rt WHERE rt.record_id = r.id AND rt.topic = ?)`)
		args = append(args, string(t))
	}

	qb.WriteString(` ORDER BY r.rowid LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying advice mirror: %w", err)
	}
	defer rows.Close()

	var results []types.AdviceRecord
	for rows.Next() {
		var (
			r          types.AdviceRecord
			topicsJSON string
			episode    sql.NullString
			quote      sql.NullString
			situation  sql.NullString
			timestamp  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Guest, &episode, &topicsJSON, &r.Insight, &quote, &situation, &timestamp); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(topicsJSON), &r.Topics); err != nil {
			return nil, fmt.Errorf("decoding topics for %s: %w", r.ID, err)
		}
		r.Episode = episode.String
		r.Quote = quote.String
		r.Context = situation.String
		r.Timestamp = timestamp.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// traceWords bounds how much transcript text Trace returns.
const traceWords = 500

// Trace returns the transcript passage a record was extracted from: the
// segments starting at the record's timestamp, up to roughly one chunk of
// text. It reads transcriptsDir/<guest>.txt.
func (s *Store) Trace(ctx context.Context, recordID string) (string, error) {
	var guest string
	var ts sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT guest, timestamp FROM records WHERE id = ?`, recordID,
	).Scan(&guest, &ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("record %s not found", recordID)
		}
		return "", fmt.Errorf("looking up record: %w", err)
	}
	if ts.String == "" {
		return "", fmt.Errorf("record %s has no timestamp", recordID)
	}

	path := filepath.Join(s.transcriptsDir, guest+".txt")
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return passageAt(transcript.Segment(string(content)), ts.String, traceWords), nil
}

// passageAt renders segments from the first one stamped ts until at least
// maxWords words have been collected.
func passageAt(segments []types.Segment, ts string, maxWords int) string {
	start := -1
	for i, seg := range segments {
		if seg.Timestamp == ts {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	var b strings.Builder
	words := 0
	for _, seg := range segments[start:] {
		if words >= maxWords {
			break
		}
		fmt.Fprintf(&b, "%s (%s): %s\n\n", seg.Speaker, seg.Timestamp, seg.Text)
		words += len(strings.Fields(seg.Text))
	}
	return strings.TrimSpace(b.String())
}
