// Package results persists finished sweep runs to SQLite so they can be
// compared across invocations.
package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/flow.report/internal/sweep"
)

// Store wraps the sweep results database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the results database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sweep_runs (
			run_id TEXT PRIMARY KEY,
			status TEXT,
			started_at BIGINT,
			completed_at BIGINT,
			total_combos INT,
			completed_combos INT,
			error TEXT,
			request_json TEXT,
			created_at BIGINT
		);
		CREATE TABLE IF NOT EXISTS sweep_results (
			run_id TEXT,
			vehicle_count INT,
			distracted_pct DOUBLE,
			trials INT,
			failed_trials INT,
			mean_speed_mean DOUBLE,
			mean_speed_variance DOUBLE,
			mean_speed_stderr DOUBLE,
			flow_mean DOUBLE,
			flow_variance DOUBLE,
			flow_stderr DOUBLE,
			density_mean DOUBLE,
			density_variance DOUBLE,
			density_stderr DOUBLE,
			exits_mean DOUBLE,
			exits_variance DOUBLE,
			exits_stderr DOUBLE,
			FOREIGN KEY(run_id) REFERENCES sweep_runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a finished sweep: one run row plus one result row per
// completed combination, atomically.
func (s *Store) SaveRun(state sweep.State) error {
	if state.RunID == "" {
		return fmt.Errorf("sweep state has no run ID")
	}

	var requestJSON interface{}
	if state.Request != nil {
		data, err := json.Marshal(state.Request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		requestJSON = string(data)
	}

	var startedAt, completedAt int64
	if state.StartedAt != nil {
		startedAt = state.StartedAt.UnixNano()
	}
	if state.CompletedAt != nil {
		completedAt = state.CompletedAt.UnixNano()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sweep_runs (
			run_id, status, started_at, completed_at,
			total_combos, completed_combos, error, request_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.RunID, string(state.Status), startedAt, completedAt,
		state.TotalCombos, state.CompletedCombos, state.Error, requestJSON,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, combo := range state.Results {
		_, err = tx.Exec(`
			INSERT INTO sweep_results (
				run_id, vehicle_count, distracted_pct, trials, failed_trials,
				mean_speed_mean, mean_speed_variance, mean_speed_stderr,
				flow_mean, flow_variance, flow_stderr,
				density_mean, density_variance, density_stderr,
				exits_mean, exits_variance, exits_stderr
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			state.RunID, combo.VehicleCount, combo.DistractedPct, combo.Trials, combo.FailedTrials,
			combo.MeanSpeed.Mean, combo.MeanSpeed.Variance, combo.MeanSpeed.Stderr,
			combo.Flow.Mean, combo.Flow.Variance, combo.Flow.Stderr,
			combo.Density.Mean, combo.Density.Variance, combo.Density.Stderr,
			combo.Exits.Mean, combo.Exits.Variance, combo.Exits.Stderr,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID           string
	Status          string
	StartedAt       time.Time
	TotalCombos     int
	CompletedCombos int
	Error           string
}

// ListRuns returns the stored runs, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT run_id, status, started_at, total_combos, completed_combos, error
		FROM sweep_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var startedAt int64
		if err := rows.Scan(&r.RunID, &r.Status, &startedAt, &r.TotalCombos, &r.CompletedCombos, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, startedAt)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Results returns the combination results stored for a run, in insertion
// order.
func (s *Store) Results(runID string) ([]sweep.ComboResult, error) {
	rows, err := s.db.Query(`
		SELECT vehicle_count, distracted_pct, trials, failed_trials,
			mean_speed_mean, mean_speed_variance, mean_speed_stderr,
			flow_mean, flow_variance, flow_stderr,
			density_mean, density_variance, density_stderr,
			exits_mean, exits_variance, exits_stderr
		FROM sweep_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []sweep.ComboResult
	for rows.Next() {
		var c sweep.ComboResult
		if err := rows.Scan(
			&c.VehicleCount, &c.DistractedPct, &c.Trials, &c.FailedTrials,
			&c.MeanSpeed.Mean, &c.MeanSpeed.Variance, &c.MeanSpeed.Stderr,
			&c.Flow.Mean, &c.Flow.Variance, &c.Flow.Stderr,
			&c.Density.Mean, &c.Density.Variance, &c.Density.Stderr,
			&c.Exits.Mean, &c.Exits.Variance, &c.Exits.Stderr,
		); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
