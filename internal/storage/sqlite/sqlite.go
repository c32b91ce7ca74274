package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/slogan-gen/internal/storage/migrations"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// SQLiteStorage keeps completed sessions in a SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and brings its
// schema up to date
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := migrations.NewManager(schemaMigrations...).Apply(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveSession inserts or replaces a completed session and its turns
func (s *SQLiteStorage) SaveSession(ctx context.Context, session *types.Session) error {
	if session == nil || !session.IsCompleted() {
		return fmt.Errorf("%w: only completed sessions can be stored", types.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Cascades to turns
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, session.ID()); err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}

	reason, _ := session.CompletionReason()
	completedAt, _ := session.CompletedAt()
	var finalArtifact sql.NullString
	if a, ok := session.FinalArtifact(); ok {
		finalArtifact = sql.NullString{String: a, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, request, model, round_budget, status, completion_reason,
		                      final_artifact, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID(), session.Request(), session.Model(), session.RoundBudget(),
		session.Status().Name(), string(reason), finalArtifact, session.Fault(),
		formatTime(session.StartedAt()), formatTime(completedAt))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, t := range session.Turns() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, sequence, artifact, critique, approved, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, session.ID(), t.Sequence(), t.Artifact(), t.Critique(), t.Approved(), formatTime(t.CreatedAt()))
		if err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", t.Sequence(), err)
		}
	}

	return tx.Commit()
}

// GetSession loads one session with its turns
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionColumns+` WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, rec)
}

// ListSessions returns sessions newest first. A zero limit means no limit;
// a non-empty reason filters by completion reason.
func (s *SQLiteStorage) ListSessions(ctx context.Context, limit int, reason types.CompletionReason) ([]*types.Session, error) {
	query := sessionColumns
	var args []any
	if reason != "" {
		query += ` WHERE completion_reason = ?`
		args = append(args, string(reason))
	}
	query += ` ORDER BY started_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var recs []*sessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	sessions := make([]*types.Session, 0, len(recs))
	for _, rec := range recs {
		sess, err := s.hydrate(ctx, rec)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// DeleteSession removes a session and its turns
func (s *SQLiteStorage) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return nil
}

// Prune deletes sessions started before cutoff, sparing the newest keep
// sessions regardless of age. It returns the number deleted.
func (s *SQLiteStorage) Prune(ctx context.Context, cutoff time.Time, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE started_at < ?
		  AND id NOT IN (SELECT id FROM sessions ORDER BY started_at DESC LIMIT ?)
	`, formatTime(cutoff), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ping checks the database connection
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const sessionColumns = `
	SELECT id, request, model, round_budget, status, completion_reason,
	       final_artifact, error, started_at, completed_at
	FROM sessions`

type sessionRecord struct {
	id, request, model, status, fault string
	roundBudget                       int
	reason, finalArtifact             sql.NullString
	startedAt                         string
	completedAt                       sql.NullString
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*sessionRecord, error) {
	var rec sessionRecord
	err := row.Scan(&rec.id, &rec.request, &rec.model, &rec.roundBudget, &rec.status,
		&rec.reason, &rec.finalArtifact, &rec.fault, &rec.startedAt, &rec.completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStorage) hydrate(ctx context.Context, rec *sessionRecord) (*types.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, artifact, critique, approved, created_at
		FROM turns WHERE session_id = ? ORDER BY sequence
	`, rec.id)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns for %s: %w", rec.id, err)
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var (
			seq                int
			artifact, critique string
			approved           bool
			createdAt          string
		)
		if err := rows.Scan(&seq, &artifact, &critique, &approved, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		at, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		t, err := types.NewTurn(seq, artifact, critique, approved, at)
		if err != nil {
			return nil, fmt.Errorf("stored turn %d of %s: %w", seq, rec.id, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	startedAt, err := parseTime(rec.startedAt)
	if err != nil {
		return nil, err
	}

	var status types.Status = types.InProgress{}
	if rec.status == types.StatusNameCompleted {
		completedAt, err := parseTime(rec.completedAt.String)
		if err != nil {
			return nil, err
		}
		status = types.Completed{
			Reason:        types.CompletionReason(rec.reason.String),
			FinalArtifact: rec.finalArtifact.String,
			CompletedAt:   completedAt,
			Fault:         rec.fault,
		}
	}

	return types.RestoreSession(rec.id, rec.request, rec.model, rec.roundBudget, startedAt, turns, status)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}
