package repository

import (
	"context"
	"time"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
)

// KeyPatch describes an update to an idempotency key record. Nil fields are
// left untouched.
type KeyPatch struct {
	RecoveryPoint *enum.RecoveryPoint
	ResponseCode  *int
	ResponseBody  *string
}

// IdempotencyRepository persists idempotency key records. It knows nothing
// about the business operation running under a key; it only guards the
// record's lifecycle: create-once, lock, compare-and-advance.
type IdempotencyRepository interface {
	// GetByKey retrieves a record by its key string, or nil when absent.
	GetByKey(ctx context.Context, key string) (*entity.IdempotencyKey, error)

	// CreateIfAbsent inserts the record unless one already exists for the
	// key, and returns the stored record along with whether this call
	// created it.
	CreateIfAbsent(ctx context.Context, rec *entity.IdempotencyKey) (*entity.IdempotencyKey, bool, error)

	// AcquireLock marks the key as executing. It fails with
	// apperror.ErrIdempotencyLocked when another holder's lock is younger
	// than staleAfter; an older lock is reclaimed.
	AcquireLock(ctx context.Context, key string, staleAfter time.Duration) (*entity.IdempotencyKey, error)

	// ReleaseLock clears the lock marker without advancing the record.
	// Used on the stage-failure path after the transaction rolled back.
	ReleaseLock(ctx context.Context, key string) error

	// AdvanceStage moves the recovery point forward and clears the lock in
	// one guarded update. It must run inside the stage's transaction (tx
	// carried in ctx) and fails with apperror.ErrIdempotencyConflict when
	// the stored point no longer equals expected.
	AdvanceStage(ctx context.Context, key string, expected enum.RecoveryPoint, patch KeyPatch) (*entity.IdempotencyKey, error)

	// Update overwrites record state directly. Administrative transitions
	// only, e.g. force-finishing a key stuck on an unknown recovery point.
	Update(ctx context.Context, key string, patch KeyPatch) (*entity.IdempotencyKey, error)

	// Delete removes a record outright. Used to release a claimed key
	// whose handler produced no cacheable response, so the client's retry
	// starts fresh.
	Delete(ctx context.Context, key string) error

	// DeleteOlderThan removes records older than age. Retention is an
	// external policy concern; nothing on the request path calls this.
	DeleteOlderThan(ctx context.Context, age time.Duration) error
}
