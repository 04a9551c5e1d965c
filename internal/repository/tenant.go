package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// TenantRepo reads tenant rows. Tenant mutation happens through the
// administrative API, out of scope here.
type TenantRepo struct {
	db *DB
}

func NewTenantRepo(db *DB) *TenantRepo {
	return &TenantRepo{db: db}
}

// GetByID loads a tenant by id, or a NotFound AppError if it doesn't exist.
func (r *TenantRepo) GetByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, upstream_url, scraper_version, is_active,
		       encrypted_credentials, extra_metadata, created_at, updated_at
		FROM tenants WHERE id = $1`, tenantID)

	var t models.Tenant
	var metaRaw []byte
	err := row.Scan(&t.ID, &t.Name, &t.UpstreamURL, &t.ScraperVersion, &t.IsActive,
		&t.EncryptedCredentials, &metaRaw, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("tenant")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get tenant")
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &t.ExtraMetadata); err != nil {
			return nil, apperrors.NewPersistenceError(err, "unmarshal tenant metadata")
		}
	}
	return &t, nil
}

// ListActive returns every tenant with is_active = true.
func (r *TenantRepo) ListActive(ctx context.Context) ([]models.Tenant, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, upstream_url, scraper_version, is_active,
		       encrypted_credentials, extra_metadata, created_at, updated_at
		FROM tenants WHERE is_active = true`)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "list active tenants")
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		var metaRaw []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.UpstreamURL, &t.ScraperVersion, &t.IsActive,
			&t.EncryptedCredentials, &metaRaw, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceError(err, "scan tenant")
		}
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &t.ExtraMetadata)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
