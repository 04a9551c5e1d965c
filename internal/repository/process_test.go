package repository

import (
	"context"
	"testing"

	"github.com/conectasei/core/internal/models"
)

func seedTenant(t *testing.T, db *DB, id string) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO tenants (id, name, upstream_url, scraper_version, is_active, encrypted_credentials)
		VALUES ($1, $2, 'https://example.test', '4.2.0', true, '\x00')`, id, "Tenant "+id)
	if err != nil {
		t.Fatalf("seedTenant: %v", err)
	}
}

func TestProcessRepo_UpsertAndGetByNumber(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewProcessRepo(db)
	p := &models.Process{
		TenantID:      "t1",
		ProcessNumber: "00001.000001/2024-01",
		AccessType:    models.AccessPartial,
		Links: map[string]models.LinkRecord{
			"https://example.test/p/1": {Status: models.LinkActive},
		},
		Documents: map[string]models.DocumentRecord{},
	}

	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.GetByNumber(context.Background(), "t1", "00001.000001/2024-01")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if got == nil {
		t.Fatal("GetByNumber returned nil for a just-upserted process")
	}
	if got.AccessType != models.AccessPartial {
		t.Errorf("got access type %q, want %q", got.AccessType, models.AccessPartial)
	}
	if len(got.Links) != 1 {
		t.Errorf("got %d links, want 1", len(got.Links))
	}
}

func TestProcessRepo_UpsertIsIdempotentOnConflict(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewProcessRepo(db)
	p := &models.Process{
		TenantID:      "t1",
		ProcessNumber: "00001.000001/2024-01",
		AccessType:    models.AccessPartial,
		Links:         map[string]models.LinkRecord{},
		Documents:     map[string]models.DocumentRecord{},
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	firstID := p.ID

	p.ID = ""
	p.AccessType = models.AccessIntegral
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := repo.GetByNumber(context.Background(), "t1", "00001.000001/2024-01")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if got.ID != firstID {
		t.Errorf("conflicting upsert created a new row: got id %q, want %q", got.ID, firstID)
	}
	if got.AccessType != models.AccessIntegral {
		t.Errorf("got access type %q, want %q after update", got.AccessType, models.AccessIntegral)
	}
}

func TestProcessRepo_GetByNumberReturnsNilWhenMissing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewProcessRepo(db)
	got, err := repo.GetByNumber(context.Background(), "t1", "99999.999999/2024-99")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown process, got %+v", got)
	}
}

func TestProcessRepo_KnownNumbers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewProcessRepo(db)
	for _, number := range []string{"00001.000001/2024-01", "00001.000002/2024-01"} {
		p := &models.Process{
			TenantID:      "t1",
			ProcessNumber: number,
			Links:         map[string]models.LinkRecord{},
			Documents:     map[string]models.DocumentRecord{},
		}
		if err := repo.Upsert(context.Background(), p); err != nil {
			t.Fatalf("Upsert(%s): %v", number, err)
		}
	}

	known, err := repo.KnownNumbers(context.Background(), "t1")
	if err != nil {
		t.Fatalf("KnownNumbers: %v", err)
	}
	if !known["00001.000001/2024-01"] || !known["00001.000002/2024-01"] {
		t.Errorf("KnownNumbers missing seeded numbers: %v", known)
	}
	if known["00001.000003/2024-01"] {
		t.Error("KnownNumbers reported an unseeded process number as known")
	}
}

func TestProcessRepo_UpdateDocumentStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewProcessRepo(db)
	p := &models.Process{
		TenantID:      "t1",
		ProcessNumber: "00001.000001/2024-01",
		Links:         map[string]models.LinkRecord{},
		Documents: map[string]models.DocumentRecord{
			"12345678": {Status: models.DocNotDownloaded},
		},
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := repo.UpdateDocumentStatus(context.Background(), p.ID, "12345678", models.DocDownloaded); err != nil {
		t.Fatalf("UpdateDocumentStatus: %v", err)
	}

	got, err := repo.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Documents["12345678"].Status != models.DocDownloaded {
		t.Errorf("got status %q, want %q", got.Documents["12345678"].Status, models.DocDownloaded)
	}
}
