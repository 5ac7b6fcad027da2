// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/examforge/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for attempts, progress and issue reports.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The recorder goroutine and the UI share one connection.
	db.SetMaxOpenConns(1)
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			score INTEGER NOT NULL,
			time_taken_s INTEGER NOT NULL,
			sequence_json TEXT NOT NULL,
			answers_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS progress (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			subject TEXT NOT NULL,
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			sequence_json TEXT NOT NULL,
			snapshot_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS issue_reports (
			id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL,
			question_text TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TEXT NOT NULL,
			status TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ended_at ON attempts(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_issue_reports_status ON issue_reports(status);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores a completed attempt and returns its id.
func (s *Store) InsertAttempt(ctx context.Context, a model.Attempt) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	seqJSON, err := json.Marshal(a.Sequence)
	if err != nil {
		return "", fmt.Errorf("encode sequence: %w", err)
	}
	ansJSON, err := json.Marshal(nonNilAnswers(a.Answers))
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, subject, started_at, ended_at, total, correct, incorrect, skipped, score, time_taken_s, sequence_json, answers_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Subject,
		formatTime(a.StartedAt),
		formatTime(a.EndedAt),
		a.Total(),
		a.Correct,
		a.Incorrect,
		a.Skipped,
		a.ScorePercent,
		a.TimeTakenSeconds,
		string(seqJSON),
		string(ansJSON),
	)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

// ListAttempts returns attempt summaries filtered by stats config, oldest first.
// Sequence and answers are not loaded.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.Attempt, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, cfg.Subject)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, subject, started_at, ended_at, correct, incorrect, skipped, score, time_taken_s
		FROM attempts
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		var startedAt, endedAt string
		if err := rows.Scan(&a.ID, &a.Subject, &startedAt, &endedAt, &a.Correct, &a.Incorrect, &a.Skipped, &a.ScorePercent, &a.TimeTakenSeconds); err != nil {
			return nil, err
		}
		if a.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if a.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}
	return attempts, nil
}

// GetAttempt loads a full attempt including its sequence and answers.
func (s *Store) GetAttempt(ctx context.Context, id string) (model.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, started_at, ended_at, correct, incorrect, skipped, score, time_taken_s, sequence_json, answers_json
		 FROM attempts WHERE id = ?`, id)
	return scanAttempt(row)
}

// LastAttempt loads the most recently finished attempt.
func (s *Store) LastAttempt(ctx context.Context) (model.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, started_at, ended_at, correct, incorrect, skipped, score, time_taken_s, sequence_json, answers_json
		 FROM attempts ORDER BY ended_at DESC LIMIT 1`)
	return scanAttempt(row)
}

func scanAttempt(row *sql.Row) (model.Attempt, error) {
	var a model.Attempt
	var startedAt, endedAt, seqJSON, ansJSON string
	err := row.Scan(&a.ID, &a.Subject, &startedAt, &endedAt, &a.Correct, &a.Incorrect, &a.Skipped, &a.ScorePercent, &a.TimeTakenSeconds, &seqJSON, &ansJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attempt{}, fmt.Errorf("attempt: %w", ErrNotFound)
	}
	if err != nil {
		return model.Attempt{}, err
	}
	if a.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return model.Attempt{}, err
	}
	if a.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return model.Attempt{}, err
	}
	if err := json.Unmarshal([]byte(seqJSON), &a.Sequence); err != nil {
		return model.Attempt{}, fmt.Errorf("decode sequence: %w", err)
	}
	if err := json.Unmarshal([]byte(ansJSON), &a.Answers); err != nil {
		return model.Attempt{}, fmt.Errorf("decode answers: %w", err)
	}
	return a, nil
}

// SaveProgress replaces the resumable session slot.
func (s *Store) SaveProgress(ctx context.Context, p model.Progress) error {
	seqJSON, err := json.Marshal(p.Sequence)
	if err != nil {
		return fmt.Errorf("encode sequence: %w", err)
	}
	snap := p.Snapshot
	snap.Answers = nonNilAnswers(snap.Answers)
	if snap.Marked == nil {
		snap.Marked = []int{}
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO progress (slot, subject, started_at, updated_at, sequence_json, snapshot_json)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
			subject = excluded.subject,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at,
			sequence_json = excluded.sequence_json,
			snapshot_json = excluded.snapshot_json`,
		p.Subject,
		formatTime(p.StartedAt),
		formatTime(updatedAt),
		string(seqJSON),
		string(snapJSON),
	)
	return err
}

// LoadProgress returns the saved in-progress session, or ErrNotFound.
func (s *Store) LoadProgress(ctx context.Context) (model.Progress, error) {
	var p model.Progress
	var startedAt, updatedAt, seqJSON, snapJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT subject, started_at, updated_at, sequence_json, snapshot_json FROM progress WHERE slot = 1`).
		Scan(&p.Subject, &startedAt, &updatedAt, &seqJSON, &snapJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Progress{}, fmt.Errorf("progress: %w", ErrNotFound)
	}
	if err != nil {
		return model.Progress{}, err
	}
	if p.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return model.Progress{}, err
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return model.Progress{}, err
	}
	if err := json.Unmarshal([]byte(seqJSON), &p.Sequence); err != nil {
		return model.Progress{}, fmt.Errorf("decode sequence: %w", err)
	}
	if err := json.Unmarshal([]byte(snapJSON), &p.Snapshot); err != nil {
		return model.Progress{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return p, nil
}

// ClearProgress removes the saved in-progress session.
func (s *Store) ClearProgress(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE slot = 1`)
	return err
}

// InsertIssue stores a pending issue report and returns its id.
func (s *Store) InsertIssue(ctx context.Context, r model.IssueReport) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO issue_reports (id, question_id, question_text, description, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.QuestionID, r.QuestionText, r.Description, formatTime(s.now()), model.IssuePending)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListIssues returns issue reports, newest first. An empty status lists all.
func (s *Store) ListIssues(ctx context.Context, status string) ([]model.StoredIssue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, question_text, description, created_at, status
		 FROM issue_reports
		 WHERE (? = '' OR status = ?)
		 ORDER BY created_at DESC`, status, status)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var issues []model.StoredIssue
	for rows.Next() {
		var is model.StoredIssue
		var createdAt string
		if err := rows.Scan(&is.ID, &is.QuestionID, &is.QuestionText, &is.Description, &createdAt, &is.Status); err != nil {
			return nil, err
		}
		if is.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return issues, nil
}

// ResolveIssue marks an issue report as resolved.
func (s *Store) ResolveIssue(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE issue_reports SET status = ? WHERE id = ?`, model.IssueResolved, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	return nil
}

// timeLayout keeps a fixed fraction width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nonNilAnswers(answers map[int]string) map[int]string {
	if answers == nil {
		return map[int]string{}
	}
	return answers
}
