package port

import (
	"context"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

// AvailabilityStore is the durable backing store for the two availability
// maps. It is satisfied interchangeably by the MySQL, Redis, file and
// in-memory adapters; callers must treat any error as a connectivity signal.
type AvailabilityStore interface {
	// LoadAll returns the full persisted map for a kind. An empty map and
	// nil error means the kind has never been written.
	LoadAll(ctx context.Context, kind domain.Kind) (domain.AvailabilityMap, error)

	// SaveBulk upserts every key of patch. Partially-applied writes are the
	// adapter's problem to avoid; callers assume all-or-nothing.
	SaveBulk(ctx context.Context, kind domain.Kind, patch domain.AvailabilityMap, actor string) error

	// Clear removes every entry for a kind.
	Clear(ctx context.Context, kind domain.Kind) error

	// Ping is a lightweight liveness round-trip used by the supervisor.
	Ping(ctx context.Context) error
}
