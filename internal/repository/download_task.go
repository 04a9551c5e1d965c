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

// DownloadTaskRepo is typed access to the download_tasks table.
type DownloadTaskRepo struct {
	db *DB
}

func NewDownloadTaskRepo(db *DB) *DownloadTaskRepo {
	return &DownloadTaskRepo{db: db}
}

// Create inserts a new pending download task. An empty requestedDocuments
// means "download every pending document on the process".
func (r *DownloadTaskRepo) Create(ctx context.Context, processID string, requestedDocuments []string) (string, error) {
	id := uuid.New().String()
	docsRaw, err := json.Marshal(requestedDocuments)
	if err != nil {
		return "", apperrors.NewPersistenceError(err, "marshal requested documents")
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO download_tasks (id, process_id, status, requested_documents, results)
		VALUES ($1, $2, $3, $4, '{}'::jsonb)`, id, processID, models.TaskPending, docsRaw)
	if err != nil {
		return "", apperrors.NewPersistenceError(err, "create download task")
	}
	return id, nil
}

func (r *DownloadTaskRepo) MarkRunning(ctx context.Context, taskID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE download_tasks SET status = $1, started_at = NOW() WHERE id = $2`,
		models.TaskRunning, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "mark download task running")
	}
	return nil
}

// RecordResult merges one document's outcome into the task's results map.
// Called once per document as the downloader works through its sequence,
// so a crash mid-run leaves a readable partial record.
func (r *DownloadTaskRepo) RecordResult(ctx context.Context, taskID, documentNumber string, result models.DownloadResult) error {
	return r.db.WithTx(ctx, func(q querier) error {
		row := q.QueryRow(ctx, `SELECT results FROM download_tasks WHERE id = $1 FOR UPDATE`, taskID)

		var resultsRaw []byte
		if err := row.Scan(&resultsRaw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFoundError("download task")
			}
			return apperrors.NewPersistenceError(err, "lock download task for result update")
		}

		results := map[string]models.DownloadResult{}
		if len(resultsRaw) > 0 {
			if err := json.Unmarshal(resultsRaw, &results); err != nil {
				return apperrors.NewPersistenceError(err, "unmarshal download results")
			}
		}
		results[documentNumber] = result

		newRaw, err := json.Marshal(results)
		if err != nil {
			return apperrors.NewPersistenceError(err, "marshal download results")
		}

		_, err = q.Exec(ctx, `UPDATE download_tasks SET results = $1 WHERE id = $2`, newRaw, taskID)
		if err != nil {
			return apperrors.NewPersistenceError(err, "record download result")
		}
		return nil
	})
}

func (r *DownloadTaskRepo) Complete(ctx context.Context, taskID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE download_tasks SET status = $1, finished_at = NOW() WHERE id = $2`,
		models.TaskCompleted, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "complete download task")
	}
	return nil
}

func (r *DownloadTaskRepo) Fail(ctx context.Context, taskID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE download_tasks SET status = $1, finished_at = NOW() WHERE id = $2`,
		models.TaskFailed, taskID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "fail download task")
	}
	return nil
}

// Get loads a download task by id.
func (r *DownloadTaskRepo) Get(ctx context.Context, taskID string) (*models.DownloadTask, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, process_id, status, requested_documents, results, started_at, finished_at
		FROM download_tasks WHERE id = $1`, taskID)

	var t models.DownloadTask
	var docsRaw, resultsRaw []byte
	err := row.Scan(&t.ID, &t.ProcessID, &t.Status, &docsRaw, &resultsRaw, &t.StartedAt, &t.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("download task")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get download task")
	}
	if len(docsRaw) > 0 {
		if err := json.Unmarshal(docsRaw, &t.RequestedDocuments); err != nil {
			return nil, apperrors.NewPersistenceError(err, "unmarshal requested documents")
		}
	}
	t.Results = map[string]models.DownloadResult{}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &t.Results); err != nil {
			return nil, apperrors.NewPersistenceError(err, "unmarshal download results")
		}
	}
	return &t, nil
}
