package memory

import (
	"context"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.Transactor = Transactor{}

// Transactor runs fn directly. The in-memory backend has no rollback, so
// checkout against it uses compensation.
type Transactor struct{}

func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
