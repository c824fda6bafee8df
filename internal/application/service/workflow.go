package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

// StageHandler runs one stage of a workflow for a given input. The context
// carries the stage's transaction.
type StageHandler[T any] func(txCtx context.Context, input T) (*StageResult, error)

// Workflow is a generic recovery-point stage loop. An operation declares its
// stages as a closed table keyed by recovery point; Run replays only the
// stages the key has not yet completed and returns the record holding the
// single cached response.
type Workflow[T any] struct {
	keys   *IdempotencyService
	stages map[enum.RecoveryPoint]StageHandler[T]
}

// NewWorkflow builds a workflow from its stage table. The table must contain
// the "started" stage and must not redefine "finished"; a malformed table is
// rejected here rather than discovered mid-operation.
func NewWorkflow[T any](keys *IdempotencyService, stages map[enum.RecoveryPoint]StageHandler[T]) (*Workflow[T], error) {
	if keys == nil {
		return nil, fmt.Errorf("workflow: idempotency service is required")
	}
	if _, ok := stages[enum.RecoveryPointStarted]; !ok {
		return nil, fmt.Errorf("workflow: stage table is missing the %q stage", enum.RecoveryPointStarted)
	}
	if _, ok := stages[enum.RecoveryPointFinished]; ok {
		return nil, fmt.Errorf("workflow: %q is terminal and cannot have a stage", enum.RecoveryPointFinished)
	}
	return &Workflow[T]{keys: keys, stages: stages}, nil
}

// Run drives the key through its remaining stages. Each iteration executes
// exactly one stage under the key's lock; a stage error stops the loop with
// the record unchanged, so a later retry with the same key re-attempts the
// identical stage. A key finished by an earlier call costs one lookup and no
// stage work.
func (w *Workflow[T]) Run(ctx context.Context, rec *entity.IdempotencyKey, input T) (*entity.IdempotencyKey, error) {
	// Each stage advances the point or the loop exits, so the stage count
	// bounds the iterations. Anything past that is a broken stage table.
	maxSteps := len(w.stages) + 1

	for steps := 0; !rec.IsFinished(); steps++ {
		if steps >= maxSteps {
			return rec, apperror.NewInvalidStateError("workflow did not reach a terminal state")
		}

		handler, ok := w.stages[rec.RecoveryPoint]
		if !ok {
			return w.forceFinish(ctx, rec)
		}

		updated, err := w.keys.WorkStage(ctx, rec, func(txCtx context.Context) (*StageResult, error) {
			return handler(txCtx, input)
		})
		if err != nil {
			return rec, err
		}
		rec = updated
	}
	return rec, nil
}

// forceFinish caches a 500-class response for a key persisted with a
// recovery point this build does not know, so retries do not loop forever.
// Legacy or corrupted data only; live tables are validated at construction.
func (w *Workflow[T]) forceFinish(ctx context.Context, rec *entity.IdempotencyKey) (*entity.IdempotencyKey, error) {
	point := enum.RecoveryPointFinished
	code := apperror.ErrUnknownRecoveryPoint.Code
	body, _ := json.Marshal(map[string]interface{}{
		"code":    code,
		"message": apperror.ErrUnknownRecoveryPoint.Message,
	})
	bodyStr := string(body)

	return w.keys.Update(ctx, rec.Key, repository.KeyPatch{
		RecoveryPoint: &point,
		ResponseCode:  &code,
		ResponseBody:  &bodyStr,
	})
}
