package repository

import (
	"context"
	"testing"
	"time"

	"github.com/conectasei/core/internal/models"
)

func seedProcess(t *testing.T, db *DB, tenantID, number string) *models.Process {
	t.Helper()
	p := &models.Process{
		TenantID:      tenantID,
		ProcessNumber: number,
		Links:         map[string]models.LinkRecord{},
		Documents:     map[string]models.DocumentRecord{},
	}
	if err := NewProcessRepo(db).Upsert(context.Background(), p); err != nil {
		t.Fatalf("seedProcess: %v", err)
	}
	return p
}

func TestDocumentHistoryRepo_AppendAndCount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")
	p := seedProcess(t, db, "t1", "00001.000001/2024-01")

	repo := NewDocumentHistoryRepo(db)
	entry := &models.DocumentHistory{
		ProcessID:      p.ID,
		DocumentNumber: "12345678",
		Action:         "download",
		NewStatus:      models.DocDownloaded,
		Timestamp:      time.Unix(0, 0).UTC(),
	}
	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Error("Append did not assign an id")
	}

	count, err := repo.CountDownloaded(context.Background(), p.ID, "12345678")
	if err != nil {
		t.Fatalf("CountDownloaded: %v", err)
	}
	if count != 1 {
		t.Errorf("got count %d, want 1", count)
	}
}

func TestDocumentHistoryRepo_CountDownloadedIgnoresOtherStatuses(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")
	p := seedProcess(t, db, "t1", "00001.000001/2024-01")

	repo := NewDocumentHistoryRepo(db)
	err := repo.Append(context.Background(), &models.DocumentHistory{
		ProcessID:      p.ID,
		DocumentNumber: "12345678",
		Action:         "download",
		NewStatus:      models.DocError,
		Timestamp:      time.Unix(0, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	count, err := repo.CountDownloaded(context.Background(), p.ID, "12345678")
	if err != nil {
		t.Fatalf("CountDownloaded: %v", err)
	}
	if count != 0 {
		t.Errorf("got count %d, want 0 for a non-downloaded history entry", count)
	}
}
