package model

import "context"

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together. Backends without multi-document
// transactions run fn directly.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
