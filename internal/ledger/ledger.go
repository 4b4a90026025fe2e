// Package ledger keeps a per-project history of link and render runs in SQLite.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

var (
	// ErrNotFound is returned when a run id is unknown.
	ErrNotFound = errors.New("run not found")
	// ErrSchemaMismatch indicates a ledger written by an incompatible version.
	ErrSchemaMismatch = errors.New("ledger schema version mismatch")
)

// Run statuses.
const (
	StatusPlanned = "planned"
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Clip statuses.
const (
	ClipAnnotated  = "annotated"
	ClipSkipped    = "skipped"
	ClipFailed     = "failed"
	ClipUnresolved = "unresolved"
	ClipRaw        = "raw"
	ClipPlanned    = "planned"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Tracking   int       `json:"tracking"`
	Tagged     int       `json:"tagged"`
	Joined     int       `json:"joined"`
	Dropped    int       `json:"dropped"`
	Complete   bool      `json:"complete"`
	Annotated  int       `json:"annotated"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Output     string    `json:"output,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Clips      []Clip    `json:"clips,omitempty"`
}

// Clip is the outcome for one clip file within a run.
type Clip struct {
	Number int    `json:"number"`
	File   string `json:"file"`
	Key    string `json:"key,omitempty"`
	Output string `json:"output,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store wraps the ledger database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has v%d, expected v%d (remove %s to reset)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordRun stores run and its clips in one transaction. An empty ID is
// filled with a new one, which is returned.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.Status == "" {
		run.Status = StatusOK
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, command, mode, started_at, finished_at, tracking, tagged, joined, dropped,
            complete, annotated, failed, skipped, output, status, error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Command,
		run.Mode,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Tracking,
		run.Tagged,
		run.Joined,
		run.Dropped,
		boolToInt(run.Complete),
		run.Annotated,
		run.Failed,
		run.Skipped,
		nullableString(run.Output),
		run.Status,
		nullableString(run.Error),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, clip := range run.Clips {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_clips (run_id, number, file, clip_key, output, status, error)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			clip.Number,
			clip.File,
			nullableString(clip.Key),
			nullableString(clip.Output),
			clip.Status,
			nullableString(clip.Error),
		)
		if err != nil {
			return "", fmt.Errorf("insert clip %s: %w", clip.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `id, command, mode, started_at, finished_at, tracking, tagged, joined, dropped,
    complete, annotated, failed, skipped, output, status, error`

// Runs returns the most recent runs, newest first, without their clips.
// A non-positive limit returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run fetches one run with its clips. id may be a unique prefix.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id LIKE ? || '%' LIMIT 2", id)
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return Run{}, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate run: %w", err)
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}

	run := matches[0]
	clipRows, err := s.db.QueryContext(ctx,
		"SELECT number, file, clip_key, output, status, error FROM run_clips WHERE run_id = ? ORDER BY number, file",
		run.ID,
	)
	if err != nil {
		return Run{}, fmt.Errorf("query run clips: %w", err)
	}
	defer clipRows.Close()

	for clipRows.Next() {
		var (
			clip                    Clip
			key, output, errMessage sql.NullString
		)
		if err := clipRows.Scan(&clip.Number, &clip.File, &key, &output, &clip.Status, &errMessage); err != nil {
			return Run{}, fmt.Errorf("scan run clip: %w", err)
		}
		clip.Key = key.String
		clip.Output = output.String
		clip.Error = errMessage.String
		run.Clips = append(run.Clips, clip)
	}
	if err := clipRows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate run clips: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                  Run
		started, finished    string
		complete             int
		output, errorMessage sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.Command,
		&run.Mode,
		&started,
		&finished,
		&run.Tracking,
		&run.Tagged,
		&run.Joined,
		&run.Dropped,
		&complete,
		&run.Annotated,
		&run.Failed,
		&run.Skipped,
		&output,
		&run.Status,
		&errorMessage,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Complete = complete != 0
	run.Output = output.String
	run.Error = errorMessage.String
	return run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
