package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/dailyqa/internal/qa"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the scan.
type Run struct {
	ID         string     `json:"run_id"`
	Version    string     `json:"version"`
	ConfigPath string     `json:"config_path"`
	DailyRoot  string     `json:"daily_root"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Reported   int        `json:"reported"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	// Mean recovery percentages; NaN when no exposure defined them.
	MeanBGS    float64 `json:"-"`
	MeanBright float64 `json:"-"`
	MeanFaint  float64 `json:"-"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// CreateRun records the start of a scan and returns it with a fresh id.
func (db *DB) CreateRun(version, configPath, dailyRoot string, startedAt time.Time) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		Version:    version,
		ConfigPath: configPath,
		DailyRoot:  dailyRoot,
		StartedAt:  startedAt.UTC(),
		MeanBGS:    math.NaN(),
		MeanBright: math.NaN(),
		MeanFaint:  math.NaN(),
	}

	_, err := db.DB.Exec(
		`INSERT INTO runs (run_id, version, config_path, daily_root, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.ConfigPath, run.DailyRoot, unixSeconds(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun stores the totals of a completed scan.
func (db *DB) FinishRun(runID string, sum *qa.RunSummary, finishedAt time.Time) error {
	result, err := db.DB.Exec(
		`UPDATE runs
		SET finished_at = ?, reported = ?, skipped = ?, failed = ?,
			mean_bgs = ?, mean_bright = ?, mean_faint = ?
		WHERE run_id = ?`,
		unixSeconds(finishedAt), sum.Reported, sum.Skipped, sum.Failed,
		nullFloat(sum.MeanBGS), nullFloat(sum.MeanBright), nullFloat(sum.MeanFaint),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, version, config_path, daily_root, started_at, finished_at,
	reported, skipped, failed, mean_bgs, mean_bright, mean_faint`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var started float64
	var finished, meanBGS, meanBright, meanFaint sql.NullFloat64

	if err := row.Scan(
		&run.ID,
		&run.Version,
		&run.ConfigPath,
		&run.DailyRoot,
		&started,
		&finished,
		&run.Reported,
		&run.Skipped,
		&run.Failed,
		&meanBGS,
		&meanBright,
		&meanFaint,
	); err != nil {
		return nil, err
	}

	run.StartedAt = fromUnixSeconds(started)
	if finished.Valid {
		t := fromUnixSeconds(finished.Float64)
		run.FinishedAt = &t
	}
	run.MeanBGS = floatOrNaN(meanBGS)
	run.MeanBright = floatOrNaN(meanBright)
	run.MeanFaint = floatOrNaN(meanFaint)
	return &run, nil
}

// GetRun retrieves a run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	run, err := scanRun(db.DB.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.DB.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (*Run, error) {
	runs, err := db.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[0], nil
}
