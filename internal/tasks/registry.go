// Package tasks is the in-memory task control plane: a mirror of the
// durable extraction_tasks rows kept in RAM for cheap status polling,
// generalized from an in-memory TTL job cache into a registry that
// mirrors every mutation to Postgres. Download tasks are not mirrored.
package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/repository"
)

// Status is the in-memory view of one extraction task's progress.
type Status struct {
	ID       uuid.UUID
	TenantID string
	State    models.TaskStatus
	Progress int
}

// Registry mirrors extraction task state in memory for fast reads,
// persisting every transition to the extraction_tasks table through
// repository.ExtractionTaskRepo so a process restart never loses a
// task's durable record. The in-memory mirror is not rebuilt after a
// restart: it holds only tasks created by the current process, and
// Reconcile touches the database rows alone.
type Registry struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Status

	repo *repository.ExtractionTaskRepo
	log  *logger.Logger
}

// NewRegistry builds an empty registry backed by repo.
func NewRegistry(repo *repository.ExtractionTaskRepo, log *logger.Logger) *Registry {
	return &Registry{
		tasks: make(map[uuid.UUID]*Status),
		repo:  repo,
		log:   log,
	}
}

// Create persists a new pending task and mirrors it in memory.
func (r *Registry) Create(ctx context.Context, tenantID string) (uuid.UUID, error) {
	idStr, err := r.repo.Create(ctx, tenantID)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, err
	}

	r.mu.Lock()
	r.tasks[id] = &Status{ID: id, TenantID: tenantID, State: models.TaskPending}
	r.mu.Unlock()
	return id, nil
}

// MarkRunning transitions a task to running, in the registry and the DB.
func (r *Registry) MarkRunning(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.MarkRunning(ctx, id.String()); err != nil {
		return err
	}
	r.mu.Lock()
	if s, ok := r.tasks[id]; ok {
		s.State = models.TaskRunning
	}
	r.mu.Unlock()
	return nil
}

// UpdateProgress sets the 0-100 progress value in both places.
func (r *Registry) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	if err := r.repo.UpdateProgress(ctx, id.String(), progress); err != nil {
		return err
	}
	r.mu.Lock()
	if s, ok := r.tasks[id]; ok {
		s.Progress = progress
	}
	r.mu.Unlock()
	return nil
}

// Complete transitions a task to completed with its final summary.
func (r *Registry) Complete(ctx context.Context, id uuid.UUID, summary models.ExtractionSummary) error {
	if err := r.repo.Complete(ctx, id.String(), summary); err != nil {
		return err
	}
	r.mu.Lock()
	if s, ok := r.tasks[id]; ok {
		s.State = models.TaskCompleted
		s.Progress = 100
	}
	r.mu.Unlock()
	return nil
}

// Fail transitions a task to failed. Reserved for run-level faults —
// per-process failures must never reach here.
func (r *Registry) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	if err := r.repo.Fail(ctx, id.String(), reason); err != nil {
		return err
	}
	r.mu.Lock()
	if s, ok := r.tasks[id]; ok {
		s.State = models.TaskFailed
	}
	r.mu.Unlock()
	return nil
}

// Get returns the in-memory status mirror, or nil if this process
// never saw the task (e.g. it predates the current process's start).
func (r *Registry) Get(id uuid.UUID) *Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks[id]
}

// Reconcile runs once at startup: every task still marked running in
// the database is orphaned by definition (the process that owned it
// is gone), so it is transitioned to failed before anything new runs.
func (r *Registry) Reconcile(ctx context.Context) error {
	running, err := r.repo.ListRunning(ctx)
	if err != nil {
		return err
	}
	for _, idStr := range running {
		if err := r.repo.Fail(ctx, idStr, "orphaned"); err != nil {
			r.log.LogError(ctx, err, "failed to reconcile orphaned task")
			continue
		}
		r.log.Scoped(ctx).Info("reconciled orphaned task", "task_id", idStr)
	}
	return nil
}
