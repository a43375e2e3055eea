package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/highway.planner/internal/planner"
	"github.com/banshee-data/highway.planner/internal/version"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one planning session.
type Run struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
	GitSHA    string    `json:"git_sha"`
	Notes     string    `json:"notes"`
	Cycles    int       `json:"cycles"`
}

// RunRecorder appends cycles to one run. It implements planner.Recorder.
type RunRecorder struct {
	db    *DB
	runID string
}

var _ planner.Recorder = (*RunRecorder)(nil)

// StartRun inserts a new run row stamped with the build version.
func (db *DB) StartRun(ctx context.Context, notes string) (*RunRecorder, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, version, git_sha, notes) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UnixNano(), version.Version, version.GitSHA, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return &RunRecorder{db: db, runID: id}, nil
}

// RunID returns the run's uuid.
func (r *RunRecorder) RunID() string { return r.runID }

// RecordCycle stores one cycle summary.
func (r *RunRecorder) RecordCycle(ctx context.Context, rec planner.CycleRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cycles (
			run_id, cycle, s, d, speed, state, lane, target_speed, braking, points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, rec.Cycle, rec.S, rec.D, rec.Speed, rec.State, rec.Lane,
		rec.TargetSpeed, rec.Braking, rec.Points,
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle %d: %w", rec.Cycle, err)
	}
	return nil
}

// GetRun returns a run with its cycle count.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, `
		SELECT r.run_id, r.started_at, r.version, r.git_sha, r.notes, COUNT(c.cycle)
		FROM runs r LEFT JOIN cycles c ON c.run_id = r.run_id
		WHERE r.run_id = ?
		GROUP BY r.run_id`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, r.version, r.git_sha, r.notes, COUNT(c.cycle)
		FROM runs r LEFT JOIN cycles c ON c.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run     Run
		started int64
	)
	if err := s.Scan(&run.RunID, &started, &run.Version, &run.GitSHA, &run.Notes, &run.Cycles); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, started).UTC()
	return &run, nil
}

// RecentCycles returns the last limit cycles of a run in cycle order.
func (db *DB) RecentCycles(ctx context.Context, runID string, limit int) ([]planner.CycleRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT cycle, s, d, speed, state, lane, target_speed, braking, points FROM (
			SELECT * FROM cycles WHERE run_id = ? ORDER BY cycle DESC LIMIT ?
		) ORDER BY cycle ASC`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planner.CycleRecord
	for rows.Next() {
		var rec planner.CycleRecord
		if err := rows.Scan(
			&rec.Cycle,
			&rec.S,
			&rec.D,
			&rec.Speed,
			&rec.State,
			&rec.Lane,
			&rec.TargetSpeed,
			&rec.Braking,
			&rec.Points,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BrakingCounts returns how many cycles of a run ended in each braking mode.
func (db *DB) BrakingCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT braking, COUNT(*) FROM cycles WHERE run_id = ? GROUP BY braking`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, err
		}
		counts[mode] = n
	}
	return counts, rows.Err()
}
