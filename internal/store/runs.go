package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusFound     Status = "found"
	StatusExhausted Status = "exhausted"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// Run is one journal entry.
type Run struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Mode       string     `json:"mode"`
	Alphabet   string     `json:"alphabet"`
	Min        int        `json:"min"`
	Max        int        `json:"max"`
	Start      int64      `json:"start"`
	End        int64      `json:"end"`
	Threads    int        `json:"threads"`
	Status     Status     `json:"status"`
	Emitted    int64      `json:"emitted"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Outcome is how a run finished.
type Outcome struct {
	Status  Status
	Emitted int64
	Err     error
}

// Hit is a candidate a run reported as found.
type Hit struct {
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Worker    int       `json:"worker"`
	Position  int64     `json:"position"`
	Candidate string    `json:"candidate"`
	FoundAt   time.Time `json:"found_at"`
}

// CreateRun records a new running run and returns it with its ID and start
// time filled in. ID, Status, StartedAt and FinishedAt of r are ignored.
func (s *Store) CreateRun(ctx context.Context, r Run) (Run, error) {
	r.ID = s.ids.Generate()
	r.Status = StatusRunning
	r.StartedAt = s.now().UTC()
	r.FinishedAt = nil
	r.Emitted = 0
	r.Error = ""

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, mode, alphabet, min_length, max_length, start_pos, end_pos, threads, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Name,
		r.Mode,
		r.Alphabet,
		r.Min,
		r.Max,
		r.Start,
		r.End,
		r.Threads,
		string(r.Status),
		r.StartedAt.UnixMilli(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// FinishRun stores the outcome of run id.
func (s *Store) FinishRun(ctx context.Context, id string, o Outcome) error {
	if o.Status == "" || o.Status == StatusRunning {
		return fmt.Errorf("finish run: invalid status %q", o.Status)
	}
	msg := ""
	if o.Err != nil {
		msg = o.Err.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, emitted = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, string(o.Status), o.Emitted, msg, s.now().UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// RecordHit appends a hit to run runID. A second hit at the same position is
// silently ignored.
func (s *Store) RecordHit(ctx context.Context, runID string, worker int, position int64, candidate string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hits (run_id, seq, worker, position, candidate, found_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM hits WHERE run_id = ?), ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, runID, runID, worker, position, candidate, s.now().UTC().UnixMilli())
	if err != nil {
		if isForeignKey(err) {
			return fmt.Errorf("record hit for %s: %w", runID, ErrRunNotFound)
		}
		return fmt.Errorf("record hit: %w", err)
	}
	return nil
}

// GetRun returns run id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Hits returns the hits of run runID in the order they were recorded.
func (s *Store) Hits(ctx context.Context, runID string) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, worker, position, candidate, found_at
		FROM hits
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		var foundAt int64
		if err := rows.Scan(&h.RunID, &h.Seq, &h.Worker, &h.Position, &h.Candidate, &foundAt); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.FoundAt = time.UnixMilli(foundAt).UTC()
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}

const runColumns = `id, name, mode, alphabet, min_length, max_length, start_pos, end_pos,
		threads, status, emitted, error, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var status string
	var startedAt int64
	var finishedAt sql.NullInt64
	err := row.Scan(
		&r.ID, &r.Name, &r.Mode, &r.Alphabet, &r.Min, &r.Max, &r.Start, &r.End,
		&r.Threads, &status, &r.Emitted, &r.Error, &startedAt, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Status = Status(status)
	r.StartedAt = time.UnixMilli(startedAt).UTC()
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64).UTC()
		r.FinishedAt = &t
	}
	return r, nil
}

func isForeignKey(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
