package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockTTL = 2 * time.Hour

// tenantLock acquires the per-tenant advisory lock ("one active
// extraction per tenant") with a plain Redis SET NX PX, released by
// DEL. Acquire failing to get the lock means a run is already in
// flight for this tenant — the caller coalesces by simply not firing,
// not by queuing.
type tenantLock struct {
	client *redis.Client
}

func newTenantLock(client *redis.Client) *tenantLock {
	return &tenantLock{client: client}
}

func (l *tenantLock) key(tenantID string) string {
	return fmt.Sprintf("conectasei:extraction-lock:%s", tenantID)
}

// TryAcquire attempts to take the lock for tenantID, returning false
// (no error) if another run already holds it.
func (l *tenantLock) TryAcquire(ctx context.Context, tenantID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(tenantID), "1", lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire extraction lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock. Safe to call even if the lock was never
// held (a no-op DEL).
func (l *tenantLock) Release(ctx context.Context, tenantID string) error {
	if err := l.client.Del(ctx, l.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("release extraction lock: %w", err)
	}
	return nil
}
