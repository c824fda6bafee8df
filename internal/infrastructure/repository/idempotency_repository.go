package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) domainRepo.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, key string) (*entity.IdempotencyKey, error) {
	var rec entity.IdempotencyKey
	err := dbFromContext(ctx, r.db).
		Where("key = ?", key).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *idempotencyRepository) CreateIfAbsent(ctx context.Context, rec *entity.IdempotencyKey) (*entity.IdempotencyKey, bool, error) {
	db := dbFromContext(ctx, r.db)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	// Re-read so the race loser observes the winner's record.
	stored, err := r.GetByKey(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, apperror.ErrIdempotencyConflict
	}
	return stored, created, nil
}

func (r *idempotencyRepository) AcquireLock(ctx context.Context, key string, staleAfter time.Duration) (*entity.IdempotencyKey, error) {
	db := dbFromContext(ctx, r.db)
	now := time.Now().UTC()
	staleBefore := now.Add(-staleAfter)

	// The lock is taken in the same guarded statement that checks it, so two
	// concurrent callers cannot both win.
	res := db.Model(&entity.IdempotencyKey{}).
		Where("key = ? AND (locked_at IS NULL OR locked_at < ?)", key, staleBefore).
		Update("locked_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperror.NewNotFoundError("Idempotency key")
		}
		return nil, apperror.ErrIdempotencyLocked
	}

	return r.GetByKey(ctx, key)
}

func (r *idempotencyRepository) ReleaseLock(ctx context.Context, key string) error {
	return dbFromContext(ctx, r.db).
		Model(&entity.IdempotencyKey{}).
		Where("key = ?", key).
		Update("locked_at", nil).Error
}

func (r *idempotencyRepository) AdvanceStage(ctx context.Context, key string, expected enum.RecoveryPoint, patch domainRepo.KeyPatch) (*entity.IdempotencyKey, error) {
	db := dbFromContext(ctx, r.db)

	updates := patchUpdates(patch)
	updates["locked_at"] = nil

	res := db.Model(&entity.IdempotencyKey{}).
		Where("key = ? AND recovery_point = ?", key, expected).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	// Zero rows means the stored point moved under us: a concurrent caller
	// already advanced this key.
	if res.RowsAffected == 0 {
		return nil, apperror.ErrIdempotencyConflict
	}

	return r.GetByKey(ctx, key)
}

func (r *idempotencyRepository) Update(ctx context.Context, key string, patch domainRepo.KeyPatch) (*entity.IdempotencyKey, error) {
	db := dbFromContext(ctx, r.db)

	res := db.Model(&entity.IdempotencyKey{}).
		Where("key = ?", key).
		Updates(patchUpdates(patch))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperror.NewNotFoundError("Idempotency key")
	}

	return r.GetByKey(ctx, key)
}

func (r *idempotencyRepository) Delete(ctx context.Context, key string) error {
	return dbFromContext(ctx, r.db).
		Where("key = ?", key).
		Delete(&entity.IdempotencyKey{}).Error
}

func (r *idempotencyRepository) DeleteOlderThan(ctx context.Context, age time.Duration) error {
	cutoff := time.Now().UTC().Add(-age)
	return dbFromContext(ctx, r.db).
		Where("created_at < ?", cutoff).
		Delete(&entity.IdempotencyKey{}).Error
}

func patchUpdates(patch domainRepo.KeyPatch) map[string]interface{} {
	updates := make(map[string]interface{})
	if patch.RecoveryPoint != nil {
		updates["recovery_point"] = *patch.RecoveryPoint
	}
	if patch.ResponseCode != nil {
		updates["response_code"] = *patch.ResponseCode
	}
	if patch.ResponseBody != nil {
		updates["response_body"] = *patch.ResponseBody
	}
	return updates
}
