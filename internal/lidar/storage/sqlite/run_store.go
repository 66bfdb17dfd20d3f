package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// RunStore provides persistence for runs, their detections and crowns.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a run with its detections and crowns in one transaction.
// If RunID is empty, a UUID is generated; if CreatedAt is zero, now is used.
func (s *RunStore) Insert(run *Run, ds []l4tiles.Detection, crowns []l6crowns.Crown) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var notes interface{}
		if run.Notes != "" {
			notes = run.Notes
		}
		if _, err := tx.Exec(`
			INSERT INTO crown_runs (
				run_id, created_at, params_json, tiles, workers, input_points,
				ground_points, detections, non_converged, clusters, elapsed_ns, notes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAt, string(paramsJSON), run.Tiles, run.Workers, run.InputPoints,
			run.GroundPoints, run.Detections, run.NonConverged, run.Clusters, run.ElapsedNanos, notes,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if err := insertDetections(tx, run.RunID, ds); err != nil {
			return err
		}
		if err := insertCrowns(tx, run.RunID, crowns); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func insertDetections(tx *sql.Tx, runID string, ds []l4tiles.Detection) error {
	stmt, err := tx.Prepare(`
		INSERT INTO crown_detections (
			run_id, seq, tile_id, x, y, z, ctr_x, ctr_y, ctr_z,
			round_ctr_x, round_ctr_y, round_ctr_z, cluster_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare detection insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range ds {
		if _, err := stmt.Exec(runID, i, d.Tile, d.X, d.Y, d.Z, d.CtrX, d.CtrY, d.CtrZ,
			d.RoundCtrX, d.RoundCtrY, d.RoundCtrZ, d.ID); err != nil {
			return fmt.Errorf("insert detection %d: %w", i, err)
		}
	}
	return nil
}

func insertCrowns(tx *sql.Tx, runID string, crowns []l6crowns.Crown) error {
	stmt, err := tx.Prepare(`
		INSERT INTO crown_summaries (
			run_id, cluster_id, points, ctr_x, ctr_y, ctr_z, apex_x, apex_y, apex_z,
			height_p95, mean_height, radius
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare crown insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range crowns {
		if _, err := stmt.Exec(runID, c.ID, c.Points, c.CtrX, c.CtrY, c.CtrZ, c.ApexX, c.ApexY, c.ApexZ,
			c.HeightP95, c.MeanHeight, c.Radius); err != nil {
			return fmt.Errorf("insert crown %d: %w", c.ID, err)
		}
	}
	return nil
}

const runColumns = `run_id, created_at, params_json, tiles, workers, input_points,
	ground_points, detections, non_converged, clusters, elapsed_ns, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var paramsStr string
	var notes sql.NullString
	if err := row.Scan(
		&r.RunID, &r.CreatedAt, &paramsStr, &r.Tiles, &r.Workers, &r.InputPoints,
		&r.GroundPoints, &r.Detections, &r.NonConverged, &r.Clusters, &r.ElapsedNanos, &notes,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsStr), &r.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params for run %s: %w", r.RunID, err)
	}
	r.Notes = notes.String
	return &r, nil
}

// Get returns a single run by ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM crown_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *RunStore) List(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM crown_runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Detections returns a run's labelled detections in their original order.
func (s *RunStore) Detections(runID string) ([]l4tiles.Detection, error) {
	rows, err := s.db.Query(`
		SELECT tile_id, x, y, z, ctr_x, ctr_y, ctr_z, round_ctr_x, round_ctr_y, round_ctr_z, cluster_id
		FROM crown_detections
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var ds []l4tiles.Detection
	for rows.Next() {
		var d l4tiles.Detection
		if err := rows.Scan(&d.Tile, &d.X, &d.Y, &d.Z, &d.CtrX, &d.CtrY, &d.CtrZ,
			&d.RoundCtrX, &d.RoundCtrY, &d.RoundCtrZ, &d.ID); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		ds = append(ds, d)
	}
	return ds, rows.Err()
}

// Crowns returns a run's crown summaries ordered by cluster ID.
func (s *RunStore) Crowns(runID string) ([]l6crowns.Crown, error) {
	rows, err := s.db.Query(`
		SELECT cluster_id, points, ctr_x, ctr_y, ctr_z, apex_x, apex_y, apex_z,
		       height_p95, mean_height, radius
		FROM crown_summaries
		WHERE run_id = ?
		ORDER BY cluster_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query crowns: %w", err)
	}
	defer rows.Close()

	var crowns []l6crowns.Crown
	for rows.Next() {
		var c l6crowns.Crown
		if err := rows.Scan(&c.ID, &c.Points, &c.CtrX, &c.CtrY, &c.CtrZ, &c.ApexX, &c.ApexY, &c.ApexZ,
			&c.HeightP95, &c.MeanHeight, &c.Radius); err != nil {
			return nil, fmt.Errorf("scan crown: %w", err)
		}
		crowns = append(crowns, c)
	}
	return crowns, rows.Err()
}

// Delete removes a run and everything stored under it.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, table := range []string{"crown_detections", "crown_summaries"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		res, err := tx.Exec(`DELETE FROM crown_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return tx.Commit()
	})
}
