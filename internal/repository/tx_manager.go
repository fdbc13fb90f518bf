package repository

import "context"

// TxManager runs fn as one atomic unit. Repository calls made with the ctx
// passed to fn take part in the unit; if fn returns an error nothing it did
// is persisted. fn may be invoked more than once on transient conflicts.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
