package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"fitcal/internal/dateutil"
	"fitcal/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a workout ID does not exist.
var ErrNotFound = errors.New("workout not found")

// DB wraps the SQLite database holding the workout log.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database at dbPath and applies the
// schema.
func Open(dbPath string) (*DB, error) {
	// busy_timeout: wait up to 5s on a locked database.
	// journal_mode=WAL: readers do not block the single writer.
	dsn := dbPath + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

const workoutColumns = `id, name, notes, started_at, ended_at, exercises`

// GetWorkouts returns the workouts started on day's calendar date in cal,
// oldest first.
func (db *DB) GetWorkouts(ctx context.Context, day dateutil.Instant, cal dateutil.Calendar) ([]model.Workout, error) {
	from := cal.TruncateDay(day)
	to := cal.AddDays(from, 1)
	return db.ListWorkouts(ctx, from, to)
}

// ListWorkouts returns workouts with from <= started_at < to, oldest first.
func (db *DB) ListWorkouts(ctx context.Context, from, to dateutil.Instant) ([]model.Workout, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts
		 WHERE started_at >= ? AND started_at < ?
		 ORDER BY started_at, id`, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query workouts: %w", err)
	}
	defer rows.Close()

	out := make([]model.Workout, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workouts: %w", err)
	}
	return out, nil
}

// GetWorkout returns a single workout or ErrNotFound.
func (db *DB) GetWorkout(ctx context.Context, id string) (model.Workout, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id)
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w, err
}

// SaveWorkout validates and upserts w, assigning an ID when empty. The stored
// workout is returned.
func (db *DB) SaveWorkout(ctx context.Context, w model.Workout) (model.Workout, error) {
	if err := w.Validate(); err != nil {
		return model.Workout{}, err
	}
	if w.ID == "" {
		w.ID = model.NewID()
	}
	if w.Exercises == nil {
		w.Exercises = []model.Exercise{}
	}

	exercises, err := json.Marshal(w.Exercises)
	if err != nil {
		return model.Workout{}, fmt.Errorf("failed to encode exercises: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO workouts (id, name, notes, started_at, ended_at, exercises)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			notes = excluded.notes,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			exercises = excluded.exercises,
			updated_at = CURRENT_TIMESTAMP
	`, w.ID, w.Name, w.Notes, int64(w.StartedAt), int64(w.EndedAt), string(exercises))
	if err != nil {
		return model.Workout{}, fmt.Errorf("failed to save workout: %w", err)
	}
	return w, nil
}

// DeleteWorkout removes a workout or returns ErrNotFound.
func (db *DB) DeleteWorkout(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete workout: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountByDay counts workouts per calendar day in [from, to), keyed by the
// truncated day in cal.
func (db *DB) CountByDay(ctx context.Context, from, to dateutil.Instant, cal dateutil.Calendar) (map[dateutil.Instant]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT started_at FROM workouts WHERE started_at >= ? AND started_at < ?`, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("failed to count workouts: %w", err)
	}
	defer rows.Close()

	// Day boundaries depend on the zone, so grouping happens here rather
	// than in SQL.
	counts := make(map[dateutil.Instant]int)
	for rows.Next() {
		var started int64
		if err := rows.Scan(&started); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		counts[cal.TruncateDay(dateutil.Instant(started))]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workouts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkout(s scanner) (model.Workout, error) {
	var (
		w              model.Workout
		started, ended int64
		exercises      string
	)
	if err := s.Scan(&w.ID, &w.Name, &w.Notes, &started, &ended, &exercises); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("failed to scan workout: %w", err)
	}
	w.StartedAt = dateutil.Instant(started)
	w.EndedAt = dateutil.Instant(ended)
	if err := json.Unmarshal([]byte(exercises), &w.Exercises); err != nil {
		return w, fmt.Errorf("failed to decode exercises for %s: %w", w.ID, err)
	}
	return w, nil
}
