// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge mirrors the advice index into SQLite for ad-hoc
// retrieval by text, topic, and guest, and exports it as YAML or JSON.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/advice-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "advice.db"
)

// Store manages the advice mirror database.
type Store struct {
	db             *sql.DB
	knowledgeDir   string
	transcriptsDir string
	maxResults     int
}

// NewStore opens or creates the mirror database at
// knowledgeDir/index/advice.db and creates the schema if needed.
// transcriptsDir is used by Trace to read source text.
func NewStore(cfg types.KnowledgeBaseConfig, transcriptsDir string) (*Store, error) {
	dbDir := filepath.Join(cfg.KnowledgeDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:             db,
		knowledgeDir:   cfg.KnowledgeDir,
		transcriptsDir: transcriptsDir,
		maxResults:     maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			guest TEXT NOT NULL,
			episode TEXT,
			topics TEXT NOT NULL,
			insight TEXT NOT NULL,
			quote TEXT,
			context TEXT,
			timestamp TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_guest ON records(guest)`,
		`CREATE TABLE IF NOT EXISTS record_topics (
			record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			topic TEXT NOT NULL,
			PRIMARY KEY (record_id, topic)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_record_topics_topic ON record_topics(topic)`,
		`CREATE TABLE IF NOT EXISTS sync_status (
			index_path TEXT PRIMARY KEY,
			generated_at TEXT,
			record_count INTEGER
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SyncSummary holds counts from one Sync run.
type SyncSummary struct {
	Added     int
	Existing  int
	Unchanged bool
}

// Sync copies records from idx into the mirror. Records already present
// (by id) are left alone, since index records are immutable. When the
// index generation recorded for indexPath has not changed, nothing is
// read. On additions it refreshes export.yaml.
func (s *Store) Sync(ctx context.Context, idx *types.AdviceIndex, indexPath string, w io.Writer) (SyncSummary, error) {
	var storedGen string
	err := s.db.QueryRowContext(ctx,
		`SELECT generated_at FROM sync_status WHERE index_path = ?`, indexPath,
	).Scan(&storedGen)
	if err == nil && storedGen != "" && storedGen == idx.GeneratedAt {
		fmt.Fprintf(w, "unchanged %s (generated %s)\n", indexPath, storedGen)
		return SyncSummary{Unchanged: true}, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return SyncSummary{}, fmt.Errorf("reading sync status: %w", err)
	}

	summary, err := s.syncRecords(ctx, idx, indexPath)
	if err != nil {
		return summary, err
	}

	fmt.Fprintf(w, "synced %s: added %d, existing %d\n", indexPath, summary.Added, summary.Existing)

	if summary.Added > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}
	return summary, nil
}

func (s *Store) syncRecords(ctx context.Context, idx *types.AdviceIndex, indexPath string) (SyncSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	insRecord, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO records (id, guest, episode, topics, insight, quote, context, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("preparing record insert: %w", err)
	}
	defer insRecord.Close()

	insTopic, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO record_topics (record_id, topic) VALUES (?, ?)`)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("preparing topic insert: %w", err)
	}
	defer insTopic.Close()

	var summary SyncSummary
	for _, r := range idx.Chunks {
		topicsJSON, err := json.Marshal(r.Topics)
		if err != nil {
			return summary, fmt.Errorf("encoding topics for %s: %w", r.ID, err)
		}
		res, err := insRecord.ExecContext(ctx,
			r.ID, r.Guest, r.Episode, string(topicsJSON),
			r.Insight, r.Quote, r.Context, r.Timestamp,
		)
		if err != nil {
			return summary, fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			summary.Existing++
			continue
		}
		summary.Added++

		for _, t := range r.Topics {
			if _, err := insTopic.ExecContext(ctx, r.ID, string(t)); err != nil {
				return summary, fmt.Errorf("inserting topic %s for %s: %w", t, r.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_status (index_path, generated_at, record_count) VALUES (?, ?, ?)
		 ON CONFLICT(index_path) DO UPDATE SET
			generated_at=excluded.generated_at, record_count=excluded.record_count`,
		indexPath, idx.GeneratedAt, len(idx.Chunks),
	)
	if err != nil {
		return summary, fmt.Errorf("updating sync status: %w", err)
	}

	return summary, tx.Commit()
}

// TopicCounts returns the number of mirrored records per taxonomy topic.
func (s *Store) TopicCounts(ctx context.Context) (map[types.Topic]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, count(*) FROM record_topics GROUP BY topic`)
	if err != nil {
		return nil, fmt.Errorf("counting topics: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Topic]int, len(types.Topics))
	for _, t := range types.Topics {
		counts[t] = 0
	}
	for rows.Next() {
		var (
			topic string
			n     int
		)
		if err := rows.Scan(&topic, &n); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		counts[types.Topic(topic)] = n
	}
	return counts, rows.Err()
}
