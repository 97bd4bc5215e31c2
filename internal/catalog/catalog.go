// Package catalog persists cubes, label point clouds and recorded grid plans
// in a sqlite database whose schema is managed by embedded migrations.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/grid"
	"github.com/banshee-data/crop.planner/internal/labels"
)

// ErrNotFound is returned when a requested plan is not in the catalog.
var ErrNotFound = errors.New("not found in catalog")

type DB struct {
	*sql.DB
}

// OpenDB opens the sqlite database at path without touching the schema.
// Use NewDB to open and migrate in one step.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection, so keep exactly one.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &DB{db}, nil
}

// NewDB opens the database at path and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// PutCube inserts c or updates its geometry. New cubes are appended to the
// registry order; existing ones keep their position.
func (db *DB) PutCube(c cube.Cube) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := db.Exec(`
		INSERT INTO cubes (cube_id, position, extent_i, extent_x, extent_h, offset_i, offset_x, offset_h)
		VALUES (?, (SELECT COALESCE(MAX(position) + 1, 0) FROM cubes), ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cube_id) DO UPDATE SET
			extent_i = excluded.extent_i,
			extent_x = excluded.extent_x,
			extent_h = excluded.extent_h,
			offset_i = excluded.offset_i,
			offset_x = excluded.offset_x,
			offset_h = excluded.offset_h`,
		c.ID,
		c.Extent[0], c.Extent[1], c.Extent[2],
		c.Offset[0], c.Offset[1], c.Offset[2],
	)
	if err != nil {
		return fmt.Errorf("failed to store cube %q: %w", c.ID, err)
	}
	return nil
}

// Cubes returns every stored cube in insertion order.
func (db *DB) Cubes() ([]cube.Cube, error) {
	rows, err := db.Query(`SELECT cube_id, extent_i, extent_x, extent_h, offset_i, offset_x, offset_h
		FROM cubes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cubes []cube.Cube
	for rows.Next() {
		var c cube.Cube
		if err := rows.Scan(
			&c.ID,
			&c.Extent[0], &c.Extent[1], &c.Extent[2],
			&c.Offset[0], &c.Offset[1], &c.Offset[2],
		); err != nil {
			return nil, err
		}
		cubes = append(cubes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cubes, nil
}

// Registry builds a cube registry from the stored cubes.
func (db *DB) Registry() (*cube.Registry, error) {
	cubes, err := db.Cubes()
	if err != nil {
		return nil, err
	}
	return cube.NewRegistry(cubes...)
}

// PutLabels replaces the label points of cubeID with cloud.
func (db *DB) PutLabels(cubeID string, cloud labels.Cloud) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM cubes WHERE cube_id = ?`, cubeID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %q", cube.ErrUnknownCube, cubeID)
	}

	if _, err := tx.Exec(`DELETE FROM label_points WHERE cube_id = ?`, cubeID); err != nil {
		return fmt.Errorf("failed to clear labels of cube %q: %w", cubeID, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO label_points (cube_id, i, x, h) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range cloud {
		if _, err := stmt.Exec(cubeID, p.I, p.X, p.H); err != nil {
			return fmt.Errorf("failed to store label of cube %q: %w", cubeID, err)
		}
	}
	return tx.Commit()
}

// Clouds returns the stored label clouds keyed by cube id. Cubes without
// labels are absent from the map.
func (db *DB) Clouds() (map[string]labels.Cloud, error) {
	rows, err := db.Query(`SELECT cube_id, i, x, h FROM label_points ORDER BY point_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clouds := make(map[string]labels.Cloud)
	for rows.Next() {
		var (
			id string
			p  labels.Point
		)
		if err := rows.Scan(&id, &p.I, &p.X, &p.H); err != nil {
			return nil, err
		}
		clouds[id] = append(clouds[id], p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clouds, nil
}

// PlanRecord is the stored form of a grid plan.
type PlanRecord struct {
	ID          string
	CubeID      string
	WindowShape [3]int
	Stride      [3]int
	Ranges      [3]grid.Span
	BatchSize   int
	NumWindows  int
	NumBatches  int
	Offset      [3]int
}

// RecordPlan stores the bookkeeping and the window anchors of p. It does
// not move the plan's batch cursor.
func (db *DB) RecordPlan(p *grid.Plan) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO grid_plans (
			plan_id, cube_id,
			window_i, window_x, window_h,
			stride_i, stride_x, stride_h,
			low_i, high_i, low_x, high_x, low_h, high_h,
			batch_size, num_windows, num_batches,
			offset_i, offset_x, offset_h
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CubeID,
		p.WindowShape[0], p.WindowShape[1], p.WindowShape[2],
		p.Stride[0], p.Stride[1], p.Stride[2],
		p.Ranges[0].Low, p.Ranges[0].High,
		p.Ranges[1].Low, p.Ranges[1].High,
		p.Ranges[2].Low, p.Ranges[2].High,
		p.BatchSize, p.Len(), p.NumBatches(),
		p.Offset[0], p.Offset[1], p.Offset[2],
	)
	if err != nil {
		return fmt.Errorf("failed to store plan %s: %w", p.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO grid_plan_windows (plan_id, seq, start_i, start_x, start_h)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for seq, w := range p.Windows() {
		if _, err := stmt.Exec(p.ID, seq, w.Start[0], w.Start[1], w.Start[2]); err != nil {
			return fmt.Errorf("failed to store window %d of plan %s: %w", seq, p.ID, err)
		}
	}
	return tx.Commit()
}

// Plans returns the recorded plans of cubeID, or of every cube when cubeID
// is empty, oldest first.
func (db *DB) Plans(cubeID string) ([]PlanRecord, error) {
	rows, err := db.Query(`
		SELECT plan_id, cube_id,
			window_i, window_x, window_h,
			stride_i, stride_x, stride_h,
			low_i, high_i, low_x, high_x, low_h, high_h,
			batch_size, num_windows, num_batches,
			offset_i, offset_x, offset_h
		FROM grid_plans
		WHERE ? = '' OR cube_id = ?
		ORDER BY created_at, rowid`, cubeID, cubeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []PlanRecord
	for rows.Next() {
		var r PlanRecord
		if err := rows.Scan(
			&r.ID, &r.CubeID,
			&r.WindowShape[0], &r.WindowShape[1], &r.WindowShape[2],
			&r.Stride[0], &r.Stride[1], &r.Stride[2],
			&r.Ranges[0].Low, &r.Ranges[0].High,
			&r.Ranges[1].Low, &r.Ranges[1].High,
			&r.Ranges[2].Low, &r.Ranges[2].High,
			&r.BatchSize, &r.NumWindows, &r.NumBatches,
			&r.Offset[0], &r.Offset[1], &r.Offset[2],
		); err != nil {
			return nil, err
		}
		plans = append(plans, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// PlanWindows returns the stored window anchors of planID in enumeration order.
func (db *DB) PlanWindows(planID string) ([]grid.Window, error) {
	var cubeID string
	err := db.QueryRow(`SELECT cube_id FROM grid_plans WHERE plan_id = ?`, planID).Scan(&cubeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT start_i, start_x, start_h FROM grid_plan_windows
		WHERE plan_id = ? ORDER BY seq`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []grid.Window
	for rows.Next() {
		w := grid.Window{CubeID: cubeID}
		if err := rows.Scan(&w.Start[0], &w.Start[1], &w.Start[2]); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}
