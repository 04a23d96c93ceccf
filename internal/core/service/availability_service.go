package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brunovmr/acai-delivery/internal/core/cache"
	"github.com/brunovmr/acai-delivery/internal/core/domain"
	"github.com/brunovmr/acai-delivery/internal/obs"
	"github.com/brunovmr/acai-delivery/internal/port"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStorePersist     = errors.New("store persist failed")
)

// ConnectionMonitor is the only view of the supervisor the service needs:
// a non-blocking state snapshot plus a way to report failed operations.
type ConnectionMonitor interface {
	State() domain.ConnectionState
	ReportFailure(err error)
}

// AvailabilityService exposes the read and bulk-write operations over the
// sync cache. Reads always succeed from the cache; writes fail closed while
// the store is unreachable, so the cache never silently diverges from the
// store under a write the store will never see.
type AvailabilityService struct {
	cache     *cache.Cache
	store     port.AvailabilityStore
	monitor   ConnectionMonitor
	audit     port.AuditLog
	opTimeout time.Duration

	// one mutex per kind: concurrent bulk updates on the same kind are
	// serialized so two patches can never interleave at the key level
	kindMu map[domain.Kind]*sync.Mutex
}

func NewAvailabilityService(c *cache.Cache, store port.AvailabilityStore, monitor ConnectionMonitor, audit port.AuditLog, opTimeout time.Duration) *AvailabilityService {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	mus := make(map[domain.Kind]*sync.Mutex, 2)
	for _, k := range domain.Kinds() {
		mus[k] = &sync.Mutex{}
	}
	return &AvailabilityService{
		cache:     c,
		store:     store,
		monitor:   monitor,
		audit:     audit,
		opTimeout: opTimeout,
		kindMu:    mus,
	}
}

// GetAvailability returns the current map for a kind from the sync cache.
// It never fails; degraded=true signals the data may be stale because the
// backing store is unreachable.
func (s *AvailabilityService) GetAvailability(kind domain.Kind) (data domain.AvailabilityMap, lastUpdated time.Time, degraded bool) {
	data, lastUpdated = s.cache.Get(kind)
	degraded = !s.monitor.State().Connected
	return data, lastUpdated, degraded
}

// UpdateAvailability validates and persists a bulk patch, then merges it
// into the cache. Persist and cache-apply are one atomic unit from the
// caller's perspective: either both the store and the cache reflect the
// patch, or neither does.
func (s *AvailabilityService) UpdateAvailability(ctx context.Context, kind domain.Kind, patch domain.AvailabilityMap, actor string) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}
	if len(patch) == 0 {
		return 0, fmt.Errorf("%w: empty patch", ErrInvalidInput)
	}

	mu := s.kindMu[kind]
	mu.Lock()
	defer mu.Unlock()

	if !s.monitor.State().Connected {
		return 0, ErrStoreUnavailable
	}

	pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.store.SaveBulk(pctx, kind, patch, actor); err != nil {
		s.monitor.ReportFailure(err)
		return 0, fmt.Errorf("%w: %v", ErrStorePersist, err)
	}

	applied := s.cache.ApplyBulk(kind, patch)
	s.recordAudit(ctx, domain.AuditEntry{
		Action: "bulk_update",
		Kind:   kind,
		Actor:  actor,
		Count:  applied,
		At:     time.Now().UTC(),
	})
	return applied, nil
}

// ResetAll clears both maps in the store and then in the cache. The cache
// is only touched after every store clear succeeded.
func (s *AvailabilityService) ResetAll(ctx context.Context, actor string) error {
	for _, k := range domain.Kinds() {
		s.kindMu[k].Lock()
		defer s.kindMu[k].Unlock()
	}

	if !s.monitor.State().Connected {
		return ErrStoreUnavailable
	}

	for _, k := range domain.Kinds() {
		pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
		err := s.store.Clear(pctx, k)
		cancel()
		if err != nil {
			s.monitor.ReportFailure(err)
			return fmt.Errorf("%w: clear %s: %v", ErrStorePersist, k, err)
		}
	}

	for _, k := range domain.Kinds() {
		s.cache.Clear(k)
	}
	s.recordAudit(ctx, domain.AuditEntry{
		Action: "reset_all",
		Actor:  actor,
		At:     time.Now().UTC(),
	})
	return nil
}

// HydrateFromStore replaces both cached maps from the store. Wired as the
// supervisor's onConnect hook, so the cache is reconciled on startup and
// after every reconnect.
func (s *AvailabilityService) HydrateFromStore(ctx context.Context) error {
	for _, k := range domain.Kinds() {
		pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
		m, err := s.store.LoadAll(pctx, k)
		cancel()
		if err != nil {
			return fmt.Errorf("load %s: %w", k, err)
		}
		s.cache.Load(k, m)
	}
	return nil
}

// MapSizes reports the cached entry count per kind, for the health endpoint.
func (s *AvailabilityService) MapSizes() map[domain.Kind]int {
	out := make(map[domain.Kind]int, 2)
	for _, k := range domain.Kinds() {
		out[k] = s.cache.Len(k)
	}
	return out
}

func (s *AvailabilityService) recordAudit(ctx context.Context, entry domain.AuditEntry) {
	if s.audit == nil {
		return
	}
	actx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.audit.Append(actx, entry); err != nil {
		obs.Logger.Error("audit_append_failed", "action", entry.Action, "error", err)
	}
}
