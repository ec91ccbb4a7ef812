package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reatured/handvis/internal/calib"
	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/landmark"
)

// CalibrationRepository persists calibration records. It implements
// calib.Store, so it plugs directly into the calibration manager.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Save inserts or replaces the calibration record for a hand side.
// Offsets and rest pose are stored as JSON; the timestamp as epoch
// milliseconds.
func (r *CalibrationRepository) Save(rec *calib.Record) error {
	offsets, err := json.Marshal(rec.Offsets)
	if err != nil {
		return fmt.Errorf("failed to marshal offsets: %w", err)
	}
	restPose, err := json.Marshal(rec.RestPose)
	if err != nil {
		return fmt.Errorf("failed to marshal rest pose: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO calibrations (side, id, offsets, rest_pose, timestamp_ms)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(side) DO UPDATE SET
		   id = excluded.id,
		   offsets = excluded.offsets,
		   rest_pose = excluded.rest_pose,
		   timestamp_ms = excluded.timestamp_ms`,
		string(rec.Side), rec.ID, string(offsets), string(restPose), rec.Timestamp.UnixMilli(),
	)
	return err
}

// Load retrieves the calibration record for a hand side.
func (r *CalibrationRepository) Load(side landmark.Side) (*calib.Record, error) {
	var (
		id          string
		offsetsJSON string
		restJSON    string
		timestampMs int64
	)
	err := r.db.QueryRow(
		`SELECT id, offsets, rest_pose, timestamp_ms FROM calibrations WHERE side = ?`,
		string(side),
	).Scan(&id, &offsetsJSON, &restJSON, &timestampMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, calib.ErrNotFound
		}
		return nil, err
	}

	rec := &calib.Record{
		ID:        id,
		Side:      side,
		Timestamp: time.UnixMilli(timestampMs),
	}
	if err := json.Unmarshal([]byte(offsetsJSON), &rec.Offsets); err != nil {
		return nil, fmt.Errorf("failed to parse offsets: %w", err)
	}
	rec.RestPose = make(extract.HandAngles)
	if err := json.Unmarshal([]byte(restJSON), &rec.RestPose); err != nil {
		return nil, fmt.Errorf("failed to parse rest pose: %w", err)
	}
	return rec, nil
}

// Delete removes the calibration record for a hand side.
func (r *CalibrationRepository) Delete(side landmark.Side) error {
	result, err := r.db.Exec(`DELETE FROM calibrations WHERE side = ?`, string(side))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return calib.ErrNotFound
	}
	return nil
}
