package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/debounce"
	"github.com/banshee-data/rcintent/internal/monitoring"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/stats"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the stored summary of one decode run.
type Run struct {
	ID             string            `json:"run_id"`
	CreatedAt      time.Time         `json:"created_at"`
	Source         string            `json:"source"`
	Port           int               `json:"udp_port"`
	Neutral        int               `json:"neutral"`
	Deadband       int               `json:"deadband"`
	Window         float64           `json:"debounce_seconds"`
	Capture        capture.WalkStats `json:"capture"`
	FramesDecoded  int               `json:"frames_decoded"`
	Detections     int               `json:"detections"`
	FirstTimestamp float64           `json:"first_timestamp"`
	LastTimestamp  float64           `json:"last_timestamp"`
}

const runColumns = `run_id, created_unix_ns, source, udp_port, neutral, deadband,
	debounce_seconds, packets, udp_packets, matched, frames_decoded, detections,
	first_timestamp, last_timestamp`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var created int64
	err := row.Scan(&r.ID, &created, &r.Source, &r.Port, &r.Neutral, &r.Deadband,
		&r.Window, &r.Capture.Packets, &r.Capture.UDP, &r.Capture.Matched,
		&r.FramesDecoded, &r.Detections, &r.FirstTimestamp, &r.LastTimestamp)
	if err != nil {
		return Run{}, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// InsertRun stores res with its counts, counted events and axis summaries
// and returns the new run ID.
func (db *DB) InsertRun(ctx context.Context, res *pipeline.Result) (string, error) {
	id := uuid.NewString()
	created := db.clock.Now().UnixNano()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, created, res.Source, res.Port, res.Neutral, res.Deadband,
		res.Window, res.Capture.Packets, res.Capture.UDP, res.Capture.Matched,
		res.FramesDecoded, res.Detections, res.FirstTimestamp, res.LastTimestamp)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for label, n := range res.Counts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_counts (run_id, label, count) VALUES (?, ?, ?)`,
			id, string(label), n); err != nil {
			return "", fmt.Errorf("insert count %s: %w", label, err)
		}
	}

	if len(res.Events) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_events (run_id, seq, timestamp, label) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("prepare event insert: %w", err)
		}
		defer stmt.Close()
		for i, ev := range res.Events {
			if _, err := stmt.ExecContext(ctx, id, i, ev.Timestamp, string(ev.Label)); err != nil {
				return "", fmt.Errorf("insert event %d: %w", i, err)
			}
		}
	}

	for _, a := range res.Axes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_axes
			(run_id, axis, mean, stddev, min, max, p50, active_frames)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, a.Axis, a.Mean, a.StdDev, a.Min, a.Max, a.P50, a.Active); err != nil {
			return "", fmt.Errorf("insert axis %s: %w", a.Axis, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	monitoring.Debugf("stored run %s: %d frames, %d events", id, res.FramesDecoded, len(res.Events))
	return id, nil
}

// GetRun returns the run with the given ID.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created_unix_ns DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunCounts returns the stored count table of a run.
func (db *DB) RunCounts(ctx context.Context, id string) (debounce.CountTable, error) {
	rows, err := db.QueryContext(ctx, `SELECT label, count FROM run_counts WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := debounce.CountTable{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[classify.Label(label)] = n
	}
	return counts, rows.Err()
}

// RunEvents returns the counted events of a run in the order they occurred.
func (db *DB) RunEvents(ctx context.Context, id string) ([]debounce.Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT timestamp, label FROM run_events WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []debounce.Event
	for rows.Next() {
		var ev debounce.Event
		var label string
		if err := rows.Scan(&ev.Timestamp, &label); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Label = classify.Label(label)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RunAxes returns the per-axis summaries of a run in pitch, roll, throttle,
// yaw order.
func (db *DB) RunAxes(ctx context.Context, id string) ([]stats.AxisSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT axis, mean, stddev, min, max, p50, active_frames
		FROM run_axes WHERE run_id = ?
		ORDER BY CASE axis WHEN 'pitch' THEN 0 WHEN 'roll' THEN 1 WHEN 'throttle' THEN 2 ELSE 3 END`, id)
	if err != nil {
		return nil, fmt.Errorf("query axes: %w", err)
	}
	defer rows.Close()

	var axes []stats.AxisSummary
	for rows.Next() {
		var a stats.AxisSummary
		if err := rows.Scan(&a.Axis, &a.Mean, &a.StdDev, &a.Min, &a.Max, &a.P50, &a.Active); err != nil {
			return nil, fmt.Errorf("scan axis: %w", err)
		}
		axes = append(axes, a)
	}
	return axes, rows.Err()
}

// LoadResult rebuilds the pipeline result stored for a run. Frames are not
// stored, so FirstFrames and Frames are empty.
func (db *DB) LoadResult(ctx context.Context, id string) (*pipeline.Result, error) {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := db.RunCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := db.RunEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	axes, err := db.RunAxes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pipeline.Result{
		Source:         run.Source,
		Port:           run.Port,
		Neutral:        run.Neutral,
		Deadband:       run.Deadband,
		Window:         run.Window,
		Capture:        run.Capture,
		FramesDecoded:  run.FramesDecoded,
		Detections:     run.Detections,
		FirstTimestamp: run.FirstTimestamp,
		LastTimestamp:  run.LastTimestamp,
		Counts:         counts,
		Axes:           axes,
		Events:         events,
	}, nil
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
