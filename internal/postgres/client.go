package postgres

import "context"

// IClient is the transactional surface services depend on. The production
// implementation is *DB; tests substitute a pass-through client so the
// in-memory stores provide their own atomicity.
type IClient interface {
	// WithTx wraps the given function in a read-committed transaction
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// WithSerializableTx wraps the given function in a serializable
	// transaction
	WithSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ IClient = (*DB)(nil)
