// Package journal keeps a ledger of driver rounds so a long generation run can
// be inspected after the process exits.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Round struct {
	RunID         string
	Number        int
	PromptChars   int
	AppendedChars int // segment plus its newline
	Iterations    int // model calls the loop made
	Words         int
	FileChars     int // output file length after the round
	CreatedAt     time.Time
}

// Recorder persists rounds in the order they happen.
type Recorder interface {
	RecordRound(ctx context.Context, r Round) error
}

// Nop drops every round.
type Nop struct{}

func (Nop) RecordRound(context.Context, Round) error { return nil }

func NewRunID() string {
	return uuid.New().String()
}

type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rounds(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			prompt_chars INTEGER NOT NULL,
			appended_chars INTEGER NOT NULL,
			iterations INTEGER NOT NULL DEFAULT 0,
			words INTEGER NOT NULL,
			file_chars INTEGER NOT NULL,
			ts REAL NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create rounds table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) RecordRound(ctx context.Context, r Round) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rounds(run_id, round, prompt_chars, appended_chars, iterations, words, file_chars, ts) VALUES(?,?,?,?,?,?,?,?)",
		r.RunID, r.Number, r.PromptChars, r.AppendedChars, r.Iterations, r.Words, r.FileChars,
		float64(r.CreatedAt.UnixMilli())/1000.0)
	return err
}

// Rounds returns the rounds of one run in order.
func (s *SQLite) Rounds(ctx context.Context, runID string) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, round, prompt_chars, appended_chars, iterations, words, file_chars, ts FROM rounds WHERE run_id = ? ORDER BY id",
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var r Round
		var ts float64
		if err := rows.Scan(&r.RunID, &r.Number, &r.PromptChars, &r.AppendedChars, &r.Iterations, &r.Words, &r.FileChars, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(int64(ts * 1000))
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists run ids, most recent first.
func (s *SQLite) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_id FROM rounds GROUP BY run_id ORDER BY MAX(id) DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
