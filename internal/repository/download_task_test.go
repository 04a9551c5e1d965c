package repository

import (
	"context"
	"testing"

	"github.com/conectasei/core/internal/models"
)

func TestDownloadTaskRepo_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")
	p := seedProcess(t, db, "t1", "00001.000001/2024-01")

	repo := NewDownloadTaskRepo(db)
	id, err := repo.Create(context.Background(), p.ID, []string{"12345678", "87654321"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.MarkRunning(context.Background(), id); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	if err := repo.RecordResult(context.Background(), id, "12345678", models.DownloadResult{Uploaded: true}); err != nil {
		t.Fatalf("RecordResult(12345678): %v", err)
	}
	if err := repo.RecordResult(context.Background(), id, "87654321", models.DownloadResult{Uploaded: false, Reason: "navigation timeout"}); err != nil {
		t.Fatalf("RecordResult(87654321): %v", err)
	}

	if err := repo.Complete(context.Background(), id); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	task, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != models.TaskCompleted {
		t.Errorf("got status %q, want %q", task.Status, models.TaskCompleted)
	}
	if len(task.RequestedDocuments) != 2 {
		t.Errorf("got %d requested documents, want 2", len(task.RequestedDocuments))
	}
	if !task.Results["12345678"].Uploaded {
		t.Error("expected 12345678 to be marked uploaded")
	}
	if task.Results["87654321"].Uploaded {
		t.Error("expected 87654321 to be marked not uploaded")
	}
	if task.Results["87654321"].Reason != "navigation timeout" {
		t.Errorf("got reason %q", task.Results["87654321"].Reason)
	}
}

func TestDownloadTaskRepo_Fail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")
	p := seedProcess(t, db, "t1", "00001.000001/2024-01")

	repo := NewDownloadTaskRepo(db)
	id, err := repo.Create(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Fail(context.Background(), id); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	task, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != models.TaskFailed {
		t.Errorf("got status %q, want %q", task.Status, models.TaskFailed)
	}
	if len(task.RequestedDocuments) != 0 {
		t.Errorf("expected no requested documents for a nil request, got %v", task.RequestedDocuments)
	}
}
