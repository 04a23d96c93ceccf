package port

import "context"

type IdempotencyGuard interface {
	// Acquire sets a key for idempotency check, returns false if already taken.
	Acquire(ctx context.Context, key string) (bool, error)
}
