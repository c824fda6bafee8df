package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
	"github.com/sokoflow/commerce-api/pkg/utils"
)

// StageResult is what a stage function returns on success: either the next
// recovery point, or a terminal response which implicitly moves the key to
// "finished".
type StageResult struct {
	NextPoint    enum.RecoveryPoint
	ResponseCode int
	ResponseBody string
}

// IsTerminal reports whether the result carries the operation's final
// response.
func (r *StageResult) IsTerminal() bool {
	return r.ResponseCode != 0
}

// StageFunc performs one stage of work. The context carries the stage's
// transaction; every repository call made with it joins that transaction and
// commits together with the recovery-point advance.
type StageFunc func(txCtx context.Context) (*StageResult, error)

// IdempotencyService owns the lifecycle of idempotency keys: creation and
// lookup, exclusive execution of one stage at a time with automatic
// recovery-point advancement, and direct overwrites for defensive
// transitions.
type IdempotencyService struct {
	repo        repository.IdempotencyRepository
	txScope     repository.TransactionScope
	lockTimeout time.Duration
}

// NewIdempotencyService creates a new idempotency key service. lockTimeout is
// the stale-lock reclaim window and must exceed the worst-case stage
// duration.
func NewIdempotencyService(
	repo repository.IdempotencyRepository,
	txScope repository.TransactionScope,
	lockTimeout time.Duration,
) *IdempotencyService {
	if lockTimeout <= 0 {
		lockTimeout = time.Minute
	}
	return &IdempotencyService{
		repo:        repo,
		txScope:     txScope,
		lockTimeout: lockTimeout,
	}
}

// BuildRequestParams canonicalizes path params into a stable signature
// fragment, so the same params always compare equal regardless of map order.
func BuildRequestParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}

// InitializeRequest finds or creates the idempotency key for a request. An
// empty keyHint mints a fresh token. A reused token must match the stored
// request signature (method, path, path params; never the body) or the call
// fails with ErrMismatchedRequest. Losing a creation race fails with
// ErrIdempotencyConflict so the client retries and takes the lookup path.
func (s *IdempotencyService) InitializeRequest(ctx context.Context, keyHint, method, path string, params map[string]string) (*entity.IdempotencyKey, error) {
	signature := BuildRequestParams(params)

	if keyHint != "" {
		existing, err := s.repo.GetByKey(ctx, keyHint)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if !existing.MatchesRequest(method, path, signature) {
				return nil, apperror.ErrMismatchedRequest
			}
			return existing, nil
		}
	} else {
		keyHint = utils.GenerateIdempotencyToken()
	}

	rec := &entity.IdempotencyKey{
		Key:           keyHint,
		RequestMethod: method,
		RequestPath:   path,
		RequestParams: signature,
		RecoveryPoint: enum.RecoveryPointStarted,
	}
	stored, created, err := s.repo.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent first call won the insert between our lookup and
		// create. Surface it distinctly; the client's retry finds the record.
		return nil, apperror.ErrIdempotencyConflict
	}
	return stored, nil
}

// WorkStage executes one stage under the key's lock. The stage's writes and
// the recovery-point advance commit in a single transaction; on any stage
// error the transaction rolls back, the lock is released, the point stays
// put and the error is returned to the caller.
func (s *IdempotencyService) WorkStage(ctx context.Context, rec *entity.IdempotencyKey, fn StageFunc) (*entity.IdempotencyKey, error) {
	locked, err := s.repo.AcquireLock(ctx, rec.Key, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	// Another caller may have advanced the key between our read and the
	// lock. Re-dispatch from the durable point, not the stale one.
	if locked.RecoveryPoint != rec.RecoveryPoint {
		if relErr := s.repo.ReleaseLock(ctx, rec.Key); relErr != nil {
			log.Printf("idempotency: release lock for %s: %v", rec.Key, relErr)
		}
		return locked, nil
	}

	var updated *entity.IdempotencyKey
	txErr := s.txScope.Execute(ctx, func(txCtx context.Context) error {
		result, err := fn(txCtx)
		if err != nil {
			return err
		}
		updated, err = s.repo.AdvanceStage(txCtx, rec.Key, rec.RecoveryPoint, resultPatch(result))
		return err
	})
	if txErr != nil {
		if relErr := s.repo.ReleaseLock(ctx, rec.Key); relErr != nil {
			log.Printf("idempotency: release lock for %s: %v", rec.Key, relErr)
		}
		return nil, txErr
	}
	return updated, nil
}

// Update overwrites key state directly. This is the administrative escape
// hatch, e.g. force-finishing a key stuck on an unrecognized recovery point.
func (s *IdempotencyService) Update(ctx context.Context, key string, patch repository.KeyPatch) (*entity.IdempotencyKey, error) {
	return s.repo.Update(ctx, key, patch)
}

// LockTimeout exposes the configured stale-lock window.
func (s *IdempotencyService) LockTimeout() time.Duration {
	return s.lockTimeout
}

func resultPatch(result *StageResult) repository.KeyPatch {
	if result.IsTerminal() {
		point := enum.RecoveryPointFinished
		code := result.ResponseCode
		body := result.ResponseBody
		return repository.KeyPatch{
			RecoveryPoint: &point,
			ResponseCode:  &code,
			ResponseBody:  &body,
		}
	}
	point := result.NextPoint
	return repository.KeyPatch{RecoveryPoint: &point}
}
