package testutil

import (
	"context"

	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient is a pass-through postgres client for testing. The
// in-memory stores provide their own atomicity, so transactions reduce to
// executing the function.
type MockPostgresClient struct {
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{logger: logger}
}

// WithTx executes the given function without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// WithSerializableTx executes the given function without a real transaction
func (c *MockPostgresClient) WithSerializableTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
