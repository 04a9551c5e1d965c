package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// DocumentHistoryRepo appends to the append-only document_history audit log.
type DocumentHistoryRepo struct {
	db *DB
}

func NewDocumentHistoryRepo(db *DB) *DocumentHistoryRepo {
	return &DocumentHistoryRepo{db: db}
}

// Append records one download attempt. It runs directly on the
// connection pool, outside any transaction; the document-status update
// it accompanies is committed separately.
func (r *DocumentHistoryRepo) Append(ctx context.Context, h *models.DocumentHistory) error {
	return r.append(ctx, r.db.Pool, h)
}

func (r *DocumentHistoryRepo) append(ctx context.Context, q querier, h *models.DocumentHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	detailsRaw, err := json.Marshal(h.Details)
	if err != nil {
		return apperrors.NewPersistenceError(err, "marshal document history details")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO document_history (id, process_id, document_number, action, new_status, timestamp, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.ProcessID, h.DocumentNumber, h.Action, h.NewStatus, h.Timestamp, detailsRaw)
	if err != nil {
		return apperrors.NewPersistenceError(err, "append document history")
	}
	return nil
}

// CountDownloaded counts how many DocumentHistory rows with
// new_status=downloaded exist for (processID, documentNumber) — used
// by tests asserting the "exactly one upload" invariant.
func (r *DocumentHistoryRepo) CountDownloaded(ctx context.Context, processID, documentNumber string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM document_history
		WHERE process_id = $1 AND document_number = $2 AND new_status = $3`,
		processID, documentNumber, models.DocDownloaded).Scan(&count)
	if err != nil {
		return 0, apperrors.NewPersistenceError(err, "count document history")
	}
	return count, nil
}
