package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/enum"
)

// IdempotencyKey tracks one logical multi-stage operation. One record exists
// per token; the recovery point marks the next stage to run, and once it
// reaches "finished" the cached response is the immutable answer for every
// further call with the same token.
type IdempotencyKey struct {
	ID  uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Key string    `gorm:"uniqueIndex;size:255;not null" json:"idempotency_key"`

	// Request signature: method + route path + path params. The body is
	// deliberately excluded, so a finished key replays its cached response
	// even when a retry carries a corrected body.
	RequestMethod string `gorm:"size:16;not null" json:"request_method"`
	RequestPath   string `gorm:"size:255;not null" json:"request_path"`
	RequestParams string `gorm:"size:512" json:"request_params"`

	RecoveryPoint enum.RecoveryPoint `gorm:"size:64;not null;default:'started'" json:"recovery_point"`

	// Populated only when RecoveryPoint is "finished".
	ResponseCode int    `json:"response_code,omitempty"`
	ResponseBody string `gorm:"type:text" json:"response_body,omitempty"`

	// LockedAt is non-null while a stage is executing under this key. A lock
	// older than the configured timeout is considered stale and reclaimable.
	LockedAt *time.Time `gorm:"index" json:"locked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new record
func (k *IdempotencyKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for IdempotencyKey
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// IsFinished reports whether the cached response is final.
func (k *IdempotencyKey) IsFinished() bool {
	return k.RecoveryPoint.IsTerminal()
}

// IsLocked reports whether the key currently holds a live lock, given the
// staleness window.
func (k *IdempotencyKey) IsLocked(staleAfter time.Duration, now time.Time) bool {
	return k.LockedAt != nil && now.Sub(*k.LockedAt) < staleAfter
}

// MatchesRequest reports whether an incoming request carries the same
// signature this key was created for.
func (k *IdempotencyKey) MatchesRequest(method, path, params string) bool {
	return k.RequestMethod == method && k.RequestPath == path && k.RequestParams == params
}
