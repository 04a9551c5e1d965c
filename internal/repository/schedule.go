package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// ScheduleRepo is typed access to the extraction_schedules table, one
// row per tenant.
type ScheduleRepo struct {
	db *DB
}

func NewScheduleRepo(db *DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// ListActive returns every schedule with is_active = true, loaded at
// startup and on reload to (re)populate the running scheduler.
func (r *ScheduleRepo) ListActive(ctx context.Context) ([]models.ExtractionSchedule, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT tenant_id, kind, expression, is_active
		FROM extraction_schedules WHERE is_active = true`)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "list active schedules")
	}
	defer rows.Close()

	var schedules []models.ExtractionSchedule
	for rows.Next() {
		var s models.ExtractionSchedule
		if err := rows.Scan(&s.TenantID, &s.Kind, &s.Expression, &s.IsActive); err != nil {
			return nil, apperrors.NewPersistenceError(err, "scan schedule")
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Get loads a tenant's schedule, or nil if none has been configured.
func (r *ScheduleRepo) Get(ctx context.Context, tenantID string) (*models.ExtractionSchedule, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT tenant_id, kind, expression, is_active
		FROM extraction_schedules WHERE tenant_id = $1`, tenantID)

	var s models.ExtractionSchedule
	err := row.Scan(&s.TenantID, &s.Kind, &s.Expression, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get schedule")
	}
	return &s, nil
}

// Upsert creates or replaces a tenant's schedule.
func (r *ScheduleRepo) Upsert(ctx context.Context, s models.ExtractionSchedule) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO extraction_schedules (tenant_id, kind, expression, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE SET
		  kind = EXCLUDED.kind,
		  expression = EXCLUDED.expression,
		  is_active = EXCLUDED.is_active`,
		s.TenantID, s.Kind, s.Expression, s.IsActive)
	if err != nil {
		return apperrors.NewPersistenceError(err, "upsert schedule")
	}
	return nil
}

// SetActive flips a schedule on or off without touching its expression.
func (r *ScheduleRepo) SetActive(ctx context.Context, tenantID string, active bool) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE extraction_schedules SET is_active = $1 WHERE tenant_id = $2`, active, tenantID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "set schedule active")
	}
	return nil
}

// Delete removes a tenant's schedule entirely.
func (r *ScheduleRepo) Delete(ctx context.Context, tenantID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM extraction_schedules WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return apperrors.NewPersistenceError(err, "delete schedule")
	}
	return nil
}
