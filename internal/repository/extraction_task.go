package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// ExtractionTaskRepo is typed access to the extraction_tasks table.
type ExtractionTaskRepo struct {
	db *DB
}

func NewExtractionTaskRepo(db *DB) *ExtractionTaskRepo {
	return &ExtractionTaskRepo{db: db}
}

// Create inserts a new pending task and returns its id.
func (r *ExtractionTaskRepo) Create(ctx context.Context, tenantID string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO extraction_tasks (id, tenant_id, status, progress)
		VALUES ($1, $2, $3, 0)`, id, tenantID, models.TaskPending)
	if err != nil {
		return "", apperrors.NewPersistenceError(err, "create extraction task")
	}
	return id, nil
}

// MarkRunning transitions a task to running and stamps started_at.
func (r *ExtractionTaskRepo) MarkRunning(ctx context.Context, taskID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE extraction_tasks SET status = $1, started_at = NOW() WHERE id = $2`,
		models.TaskRunning, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "mark extraction task running")
	}
	return nil
}

// UpdateProgress sets the 0-100 progress value.
func (r *ExtractionTaskRepo) UpdateProgress(ctx context.Context, taskID string, progress int) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE extraction_tasks SET progress = $1 WHERE id = $2`, progress, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "update extraction task progress")
	}
	return nil
}

// Complete transitions a task to completed with its final summary.
func (r *ExtractionTaskRepo) Complete(ctx context.Context, taskID string, summary models.ExtractionSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return apperrors.NewPersistenceError(err, "marshal extraction summary")
	}
	_, err = r.db.Pool.Exec(ctx, `
		UPDATE extraction_tasks
		SET status = $1, progress = 100, finished_at = NOW(), result_summary = $2
		WHERE id = $3`, models.TaskCompleted, raw, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "complete extraction task")
	}
	return nil
}

// Fail transitions a task to failed with a reason. Reserved for
// run-level faults — per-process failures must never call this.
func (r *ExtractionTaskRepo) Fail(ctx context.Context, taskID string, reason string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE extraction_tasks SET status = $1, finished_at = NOW(), error_message = $2 WHERE id = $3`,
		models.TaskFailed, reason, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "fail extraction task")
	}
	return nil
}

// Get loads a task by id.
func (r *ExtractionTaskRepo) Get(ctx context.Context, taskID string) (*models.ExtractionTask, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, status, started_at, finished_at, progress, result_summary, error_message
		FROM extraction_tasks WHERE id = $1`, taskID)

	var t models.ExtractionTask
	var summaryRaw []byte
	err := row.Scan(&t.ID, &t.TenantID, &t.Status, &t.StartedAt, &t.FinishedAt, &t.Progress, &summaryRaw, &t.ErrorMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("extraction task")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get extraction task")
	}
	if len(summaryRaw) > 0 {
		var summary models.ExtractionSummary
		if err := json.Unmarshal(summaryRaw, &summary); err != nil {
			return nil, apperrors.NewPersistenceError(err, "unmarshal extraction summary")
		}
		t.ResultSummary = &summary
	}
	return &t, nil
}

// ListRunning returns every task currently marked running — used by
// the task control plane's startup reconciliation (orphan detection).
func (r *ExtractionTaskRepo) ListRunning(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM extraction_tasks WHERE status = $1`, models.TaskRunning)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "list running extraction tasks")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewPersistenceError(err, "scan extraction task id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
