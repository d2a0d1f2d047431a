package model

import "context"

// Transactor runs fn inside a single storage transaction. Stores called
// with the context passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
