package repository

import (
	"context"
	"testing"

	"github.com/conectasei/core/internal/apperrors"
)

func TestTenantRepo_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()

	repo := NewTenantRepo(db)
	_, err := repo.GetByID(context.Background(), "missing-tenant")
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected an AppError, got %v", err)
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeNotFound {
		t.Errorf("got code %v, want %v", apperrors.CodeOf(err), apperrors.ErrCodeNotFound)
	}
}

func TestTenantRepo_ListActiveExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()

	seedTenant(t, db, "active-1")
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO tenants (id, name, upstream_url, scraper_version, is_active, encrypted_credentials)
		VALUES ('inactive-1', 'Inactive', 'https://example.test', '4.2.0', false, '\x00')`)
	if err != nil {
		t.Fatalf("seed inactive tenant: %v", err)
	}

	repo := NewTenantRepo(db)
	tenants, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	for _, tn := range tenants {
		if tn.ID == "inactive-1" {
			t.Error("ListActive returned an inactive tenant")
		}
	}
	found := false
	for _, tn := range tenants {
		if tn.ID == "active-1" {
			found = true
		}
	}
	if !found {
		t.Error("ListActive did not return the active tenant")
	}
}
