package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// PipelineRunRepository handles database operations for pipeline runs
type PipelineRunRepository struct {
	db *sql.DB
}

// NewPipelineRunRepository creates a new pipeline run repository
func NewPipelineRunRepository(db *sql.DB) *PipelineRunRepository {
	return &PipelineRunRepository{db: db}
}

const runColumns = `
	id, triggered_by, status, current_stage, progress_percent, params_json,
	input_rows, accurate_rows, linked_rows, road_names, unresolved_roads,
	start_time, end_time, result_summary, error_message, created_at, updated_at
`

// Create inserts a new run and sets its ID
func (r *PipelineRunRepository) Create(run *models.PipelineRun) error {
	now := time.Now().Unix()
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}
	run.CreatedAt, run.UpdatedAt = now, now

	query := `
		INSERT INTO pipeline_runs (
			triggered_by, status, current_stage, progress_percent, params_json,
			start_time, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		run.Trigger,
		run.Status,
		run.CurrentStage,
		run.ProgressPercent,
		run.ParamsJSON,
		run.StartTime,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// GetByID retrieves a run by ID
func (r *PipelineRunRepository) GetByID(id int64) (*models.PipelineRun, error) {
	row := r.db.QueryRow("SELECT "+runColumns+" FROM pipeline_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pipeline run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return run, nil
}

// List retrieves runs newest first, optionally filtered by status
func (r *PipelineRunRepository) List(status string, limit, offset int) ([]*models.PipelineRun, error) {
	query := "SELECT " + runColumns + " FROM pipeline_runs WHERE 1=1"
	args := []interface{}{}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunning marks a run as started
func (r *PipelineRunRepository) MarkRunning(id int64) error {
	now := time.Now().Unix()
	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET status = ?, start_time = ?, updated_at = ?
		WHERE id = ?
	`, models.RunStatusRunning, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	return nil
}

// UpdateProgress records the stage a run has reached
func (r *PipelineRunRepository) UpdateProgress(id int64, stage string, percent int) error {
	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET current_stage = ?, progress_percent = ?, updated_at = ?
		WHERE id = ?
	`, stage, percent, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

// MarkCompleted stores the row counts and summary of a finished run
func (r *PipelineRunRepository) MarkCompleted(run *models.PipelineRun) error {
	now := time.Now().Unix()
	run.Status = models.RunStatusCompleted
	run.ProgressPercent = 100
	run.EndTime, run.UpdatedAt = now, now

	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET status = ?, progress_percent = ?, input_rows = ?, accurate_rows = ?,
		    linked_rows = ?, road_names = ?, unresolved_roads = ?, end_time = ?,
		    result_summary = ?, updated_at = ?
		WHERE id = ?
	`,
		run.Status,
		run.ProgressPercent,
		run.InputRows,
		run.AccurateRows,
		run.LinkedRows,
		run.RoadNames,
		run.UnresolvedRoad,
		run.EndTime,
		run.ResultSummary,
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run completed: %w", err)
	}
	return nil
}

// MarkFailed marks a run as failed with an error message
func (r *PipelineRunRepository) MarkFailed(id int64, errorMsg string) error {
	now := time.Now().Unix()
	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET status = ?, error_message = ?, end_time = ?, updated_at = ?
		WHERE id = ?
	`, models.RunStatusFailed, errorMsg, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// FailInterrupted marks runs left pending or running by a previous process as failed
func (r *PipelineRunRepository) FailInterrupted() (int64, error) {
	now := time.Now().Unix()
	result, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET status = ?, error_message = 'interrupted by restart', end_time = ?, updated_at = ?
		WHERE status IN (?, ?)
	`, models.RunStatusFailed, now, now, models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to close interrupted runs: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.PipelineRun, error) {
	run := &models.PipelineRun{}
	err := s.Scan(
		&run.ID,
		&run.Trigger,
		&run.Status,
		&run.CurrentStage,
		&run.ProgressPercent,
		&run.ParamsJSON,
		&run.InputRows,
		&run.AccurateRows,
		&run.LinkedRows,
		&run.RoadNames,
		&run.UnresolvedRoad,
		&run.StartTime,
		&run.EndTime,
		&run.ResultSummary,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
