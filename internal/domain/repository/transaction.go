package repository

import "context"

// TransactionScope runs a function within a single database transaction.
// The transaction travels in the context it passes to fn; every repository
// call made with that context joins the same transaction, so a stage's
// domain writes and its recovery-point advance commit or roll back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(txCtx context.Context) error) error
}
