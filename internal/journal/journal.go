// Package journal records every remote write of an import run in SQLite so a
// later run can tell which profiles already have dependents.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Kind is the type of remote write.
type Kind string

const (
	KindProfileCreated Kind = "profile_created"
	KindProfileUpdated Kind = "profile_updated"
	KindProperty       Kind = "property"
	KindTimeline       Kind = "timeline"
	KindUpload         Kind = "upload"
	// KindDependentsDone marks a profile whose whole bundle was created.
	KindDependentsDone Kind = "dependents_done"
)

// keySpace namespaces derived step keys.
var keySpace = uuid.MustParse("6b1d7c52-3f0e-4b8e-9a57-0d2f6c1e8a44")

// Step is one completed remote write.
type Step struct {
	RunID string
	Row   int
	Kind  Kind
	// Key is the step's idempotency key. Record derives it with StepKey
	// when empty, so recording the same step twice stores it once.
	Key string
	// ProfileDocumentID is the consultant the step belongs to.
	ProfileDocumentID string
	RemoteID          int
	RemoteDocumentID  string
	// NaturalKey is property_uid or post_id for dependents.
	NaturalKey string
	CreatedAt  time.Time
}

// Store is a journal backed by a SQLite file.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the journal at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer; the import is sequential.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS steps (
		key TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		row_number INTEGER NOT NULL,
		kind TEXT NOT NULL,
		profile_document_id TEXT NOT NULL DEFAULT '',
		remote_id INTEGER NOT NULL DEFAULT 0,
		remote_document_id TEXT NOT NULL DEFAULT '',
		natural_key TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_steps_profile ON steps(profile_document_id, kind);
	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// StepKey derives a step's key from the run, the kind, the owning profile
// and whichever of natural key, remote id and row identify it.
func StepKey(step Step) string {
	name := fmt.Sprintf("%s|%s|%s|%s|%d|%d", step.RunID, step.Kind, step.ProfileDocumentID,
		step.NaturalKey, step.RemoteID, step.Row)
	return uuid.NewSHA1(keySpace, []byte(name)).String()
}

// Record stores step. A step whose key is already journaled is ignored.
func (s *Store) Record(ctx context.Context, step Step) error {
	if step.Key == "" {
		step.Key = StepKey(step)
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (key, run_id, row_number, kind, profile_document_id, remote_id, remote_document_id, natural_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		step.Key, step.RunID, step.Row, string(step.Kind), step.ProfileDocumentID,
		step.RemoteID, step.RemoteDocumentID, step.NaturalKey, step.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording %s step for row %d: %w", step.Kind, step.Row, err)
	}
	return nil
}

// HasDependents reports whether a run finished creating the profile's
// dependents. Steps of an aborted bundle do not count.
func (s *Store) HasDependents(ctx context.Context, profileDocumentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM steps
		WHERE profile_document_id = ? AND kind = ?
		LIMIT 1`,
		profileDocumentID, string(KindDependentsDone),
	).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("querying dependents of %s: %w", profileDocumentID, err)
	}
	return true, nil
}

// Summary counts the steps of a run by kind.
func (s *Store) Summary(ctx context.Context, runID string) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM steps WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("summarizing run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make(map[Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[Kind(kind)] = n
	}
	return out, rows.Err()
}

// Steps returns the steps recorded for a profile in insertion order.
func (s *Store) Steps(ctx context.Context, profileDocumentID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, run_id, row_number, kind, profile_document_id, remote_id, remote_document_id, natural_key, created_at
		FROM steps WHERE profile_document_id = ? ORDER BY rowid`, profileDocumentID)
	if err != nil {
		return nil, fmt.Errorf("listing steps of %s: %w", profileDocumentID, err)
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var st Step
		var kind string
		if err := rows.Scan(&st.Key, &st.RunID, &st.Row, &kind, &st.ProfileDocumentID,
			&st.RemoteID, &st.RemoteDocumentID, &st.NaturalKey, &st.CreatedAt); err != nil {
			return nil, err
		}
		st.Kind = Kind(kind)
		out = append(out, st)
	}
	return out, rows.Err()
}
