// Package history is the append-only creation ledger, kept in SQLite so
// it survives queue state resets and stays queryable after catalogs are
// swapped out. Every item the engine finishes, success or failure, gets
// one row.
package history

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"croon/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS creations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	queue_id TEXT NOT NULL,
	account TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	title TEXT NOT NULL,
	song_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_creations_account ON creations(account);
CREATE INDEX IF NOT EXISTS idx_creations_queue ON creations(queue_id);
`

// Record is one finished item.
type Record struct {
	ID        int64
	QueueID   string
	Account   string
	ItemIndex int
	Title     string
	SongID    string
	Status    string
	Error     string
	CreatedAt time.Time
}

// Store is the SQLite-backed creation ledger. Safe for concurrent use;
// database/sql serializes access.
type Store struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, nowFunc: time.Now}, nil
}

// SetNowFunc overrides the clock (for testing).
func (s *Store) SetNowFunc(now func() time.Time) { s.nowFunc = now }

// Close releases the database connection. Safe to call multiple times.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add appends one record.
func (s *Store) Add(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO creations (queue_id, account, item_index, title, song_id, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.QueueID, r.Account, r.ItemIndex, r.Title, r.SongID, r.Status, r.Error,
		s.nowFunc().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// ByAccount returns the account's records, newest first.
func (s *Store) ByAccount(ctx context.Context, account string) ([]Record, error) {
	return s.query(ctx, "WHERE account = ? ORDER BY id DESC", account)
}

// Search returns records whose title, song ID or status contains the
// keyword, case-insensitively, newest first.
func (s *Store) Search(ctx context.Context, keyword string) ([]Record, error) {
	like := "%" + strings.ToLower(keyword) + "%"
	return s.query(ctx,
		"WHERE lower(title) LIKE ? OR lower(song_id) LIKE ? OR lower(status) LIKE ? ORDER BY id DESC",
		like, like, like)
}

// Recent returns up to limit records, newest first. limit <= 0 means no
// limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	q := "ORDER BY id DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.query(ctx, q)
}

func (s *Store) query(ctx context.Context, tail string, args ...any) ([]Record, error) {
	q := "SELECT id, queue_id, account, item_index, title, song_id, status, error, created_at FROM creations " + tail
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var createdAt string
		if err := rows.Scan(&r.ID, &r.QueueID, &r.Account, &r.ItemIndex, &r.Title, &r.SongID, &r.Status, &r.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		if createdAt != "" {
			t, err := time.Parse(time.RFC3339, createdAt)
			if err != nil {
				return nil, fmt.Errorf("parse created_at: %w", err)
			}
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// ExportCSV writes every record to w in chronological order.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	records, err := s.query(ctx, "ORDER BY id ASC")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "account", "title", "song_id", "status", "error"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{r.CreatedAt.Format(time.RFC3339), r.Account, r.Title, r.SongID, r.Status, r.Error}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Recorder adapts the store to the engine's outcome hook. Failures are
// logged by the caller's policy, not surfaced into the run.
type Recorder struct {
	store  *Store
	onErr  func(error)
	nowCtx func() context.Context
}

// NewRecorder wraps the store for the engine. onErr receives insert
// failures; nil means they are dropped.
func NewRecorder(store *Store, onErr func(error)) *Recorder {
	return &Recorder{
		store:  store,
		onErr:  onErr,
		nowCtx: context.Background,
	}
}

// RecordOutcome implements engine.Recorder.
func (r *Recorder) RecordOutcome(o engine.Outcome) {
	err := r.store.Add(r.nowCtx(), Record{
		QueueID:   o.QueueID,
		Account:   o.AccountName,
		ItemIndex: o.ItemIndex,
		Title:     o.Title,
		SongID:    o.SubmissionID,
		Status:    o.Status,
		Error:     o.Error,
	})
	if err != nil && r.onErr != nil {
		r.onErr(err)
	}
}
