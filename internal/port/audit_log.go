package port

import (
	"context"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

// AuditLog is an append-only record of accepted availability mutations.
// Append failures are logged by the caller, never surfaced to clients.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}
