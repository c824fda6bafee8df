package repository

import (
	"context"

	"gorm.io/gorm"

	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
)

type txCtxKey struct{}

// GormTransactionScope implements repository.TransactionScope on a GORM
// connection. The open transaction is stashed in the context handed to fn;
// repositories built in this package pick it up through dbFromContext, so
// all their writes join the same transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a transaction scope over a GORM connection
func NewGormTransactionScope(db *gorm.DB) domainRepo.TransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside one transaction, committing when fn returns nil
// and rolling back otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(txCtx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txCtxKey{}, tx))
	})
}

// dbFromContext returns the transaction carried by ctx, or fallback when the
// caller is not inside a transaction scope.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txCtxKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
