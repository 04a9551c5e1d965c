package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// SystemConfigRepo is typed access to the system_config key/value bag —
// global settings that aren't worth their own table. Plugin resolution
// does not read it; scraper.Registry is built from code at startup.
type SystemConfigRepo struct {
	db *DB
}

func NewSystemConfigRepo(db *DB) *SystemConfigRepo {
	return &SystemConfigRepo{db: db}
}

// Get loads one config value, or nil if the key has never been set.
func (r *SystemConfigRepo) Get(ctx context.Context, key string) (*models.SystemConfig, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT key, value, updated_at FROM system_config WHERE key = $1`, key)

	var c models.SystemConfig
	var valueRaw []byte
	err := row.Scan(&c.Key, &valueRaw, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get system config")
	}
	if err := json.Unmarshal(valueRaw, &c.Value); err != nil {
		return nil, apperrors.NewPersistenceError(err, "unmarshal system config value")
	}
	return &c, nil
}

// Set writes a config value, creating or replacing it.
func (r *SystemConfigRepo) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewPersistenceError(err, "marshal system config value")
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO system_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, raw)
	if err != nil {
		return apperrors.NewPersistenceError(err, "set system config")
	}
	return nil
}
