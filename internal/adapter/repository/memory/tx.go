package memory

import "context"

// TxRunner runs the callback directly. The memory driver has no transactions.
type TxRunner struct{}

func (TxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
