package repository

import (
	"context"
	"testing"

	"github.com/conectasei/core/internal/models"
)

func TestScheduleRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewScheduleRepo(db)
	s := models.ExtractionSchedule{
		TenantID:   "t1",
		Kind:       models.ScheduleCron,
		Expression: "0 */6 * * *",
		IsActive:   true,
	}
	if err := repo.Upsert(context.Background(), s); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for a just-upserted schedule")
	}
	if got.Expression != "0 */6 * * *" || got.Kind != models.ScheduleCron {
		t.Errorf("got %+v", got)
	}
}

func TestScheduleRepo_UpsertReplacesExisting(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewScheduleRepo(db)
	if err := repo.Upsert(context.Background(), models.ExtractionSchedule{
		TenantID: "t1", Kind: models.ScheduleInterval, Expression: "1h", IsActive: true,
	}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := repo.Upsert(context.Background(), models.ExtractionSchedule{
		TenantID: "t1", Kind: models.ScheduleCron, Expression: "0 0 * * *", IsActive: true,
	}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := repo.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != models.ScheduleCron || got.Expression != "0 0 * * *" {
		t.Errorf("second Upsert did not replace the schedule: got %+v", got)
	}
}

func TestScheduleRepo_ListActiveExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")
	seedTenant(t, db, "t2")

	repo := NewScheduleRepo(db)
	if err := repo.Upsert(context.Background(), models.ExtractionSchedule{
		TenantID: "t1", Kind: models.ScheduleInterval, Expression: "1h", IsActive: true,
	}); err != nil {
		t.Fatalf("Upsert t1: %v", err)
	}
	if err := repo.Upsert(context.Background(), models.ExtractionSchedule{
		TenantID: "t2", Kind: models.ScheduleInterval, Expression: "1h", IsActive: false,
	}); err != nil {
		t.Fatalf("Upsert t2: %v", err)
	}

	active, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].TenantID != "t1" {
		t.Errorf("got %+v, want exactly tenant t1", active)
	}
}

func TestScheduleRepo_SetActiveAndDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Pool.Close()
	seedTenant(t, db, "t1")

	repo := NewScheduleRepo(db)
	if err := repo.Upsert(context.Background(), models.ExtractionSchedule{
		TenantID: "t1", Kind: models.ScheduleInterval, Expression: "1h", IsActive: true,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.SetActive(context.Background(), "t1", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := repo.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsActive {
		t.Error("expected schedule to be inactive after SetActive(false)")
	}

	if err := repo.Delete(context.Background(), "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = repo.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get after Delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil schedule after Delete")
	}
}
