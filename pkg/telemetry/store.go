// Package telemetry records arm control ticks in SQLite for later tuning
// and plotting.
package telemetry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Tick is one control cycle as seen by the tracker
type Tick struct {
	RunID    string
	Seq      uint64
	Time     time.Time
	HasInput bool // false when the tick held the previous pose

	Raw      arm.Point2D
	Smoothed arm.Point2D
	Orbit    float64
	Pose     arm.Pose

	Command arm.ActuatorCommand
	Sent    bool
}

// RunSummary describes one recorded run
type RunSummary struct {
	RunID string
	Ticks int
	Sent  int
	Start time.Time
	End   time.Time
}

// Store is a SQLite-backed tick log
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// A single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Closing m would close db as well

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes ticks in a single transaction
func (s *Store) Insert(ctx context.Context, ticks ...Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO ticks (
			run_id, seq, ts_unix_ns, has_input,
			raw_x, raw_y, smoothed_x, smoothed_y,
			shoulder_x, shoulder_y, elbow_x, elbow_y, wrist_x, wrist_y, tip_x, tip_y,
			angle1, angle2, angle3, orbit_deg, reachable,
			cmd_angle1, cmd_angle2, sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		p := t.Pose
		_, err := stmt.ExecContext(ctx,
			t.RunID, int64(t.Seq), t.Time.UnixNano(), t.HasInput,
			t.Raw.X, t.Raw.Y, t.Smoothed.X, t.Smoothed.Y,
			p.Shoulder.X, p.Shoulder.Y, p.Elbow.X, p.Elbow.Y, p.Wrist.X, p.Wrist.Y, p.Tip.X, p.Tip.Y,
			p.Angles.Angle1, p.Angles.Angle2, p.Angles.Angle3, t.Orbit, p.Reachable,
			t.Command.Angle1, t.Command.Angle2, t.Sent,
		)
		if err != nil {
			return fmt.Errorf("insert tick %s/%d: %w", t.RunID, t.Seq, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit of the latest ticks of a run, oldest first.
// An empty runID selects the most recent run.
func (s *Store) Recent(ctx context.Context, runID string, limit int) ([]Tick, error) {
	if limit <= 0 {
		limit = 500
	}
	if runID == "" {
		latest, err := s.latestRun(ctx)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, nil
		}
		runID = latest
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, ts_unix_ns, has_input,
			raw_x, raw_y, smoothed_x, smoothed_y,
			shoulder_x, shoulder_y, elbow_x, elbow_y, wrist_x, wrist_y, tip_x, tip_y,
			angle1, angle2, angle3, orbit_deg, reachable,
			cmd_angle1, cmd_angle2, sent
		FROM ticks WHERE run_id = ? ORDER BY seq DESC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []Tick
	for rows.Next() {
		var (
			t  Tick
			p  = &t.Pose
			ns int64
			sq int64
		)
		if err := rows.Scan(
			&t.RunID, &sq, &ns, &t.HasInput,
			&t.Raw.X, &t.Raw.Y, &t.Smoothed.X, &t.Smoothed.Y,
			&p.Shoulder.X, &p.Shoulder.Y, &p.Elbow.X, &p.Elbow.Y, &p.Wrist.X, &p.Wrist.Y, &p.Tip.X, &p.Tip.Y,
			&p.Angles.Angle1, &p.Angles.Angle2, &p.Angles.Angle3, &t.Orbit, &p.Reachable,
			&t.Command.Angle1, &t.Command.Angle2, &t.Sent,
		); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Seq = uint64(sq)
		t.Time = time.Unix(0, ns)
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first
	for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
		ticks[i], ticks[j] = ticks[j], ticks[i]
	}
	return ticks, nil
}

// Runs lists recorded runs, newest first
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COUNT(*), SUM(sent), MIN(ts_unix_ns), MAX(ts_unix_ns)
		FROM ticks GROUP BY run_id ORDER BY MAX(ts_unix_ns) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r          RunSummary
			start, end int64
		)
		if err := rows.Scan(&r.RunID, &r.Ticks, &r.Sent, &start, &end); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Start = time.Unix(0, start)
		r.End = time.Unix(0, end)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) latestRun(ctx context.Context) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id FROM ticks ORDER BY ts_unix_ns DESC LIMIT 1").Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return runID, nil
}
