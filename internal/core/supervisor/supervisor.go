// Package supervisor owns the lifecycle of the connection to the backing
// availability store: connect, bounded retry with backoff, periodic liveness
// probing and reconnect on failure. Request handling never blocks on it; the
// rest of the system only reads its last-known ConnectionState.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
	"github.com/brunovmr/acai-delivery/internal/obs"
	"github.com/brunovmr/acai-delivery/internal/port"
)

type Config struct {
	// BaseDelay scales the backoff: attempt n waits n*BaseDelay.
	BaseDelay time.Duration
	// MaxAttempts bounds one retry cycle; after it the supervisor stays
	// Disconnected until the next probe tick or an explicit Reconnect.
	MaxAttempts int
	// ProbeInterval is the liveness ping period while connected, and the
	// idle wait between exhausted retry cycles.
	ProbeInterval time.Duration
	// OpTimeout applies to every ping issued by the supervisor.
	OpTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseDelay:     500 * time.Millisecond,
		MaxAttempts:   5,
		ProbeInterval: 30 * time.Second,
		OpTimeout:     5 * time.Second,
	}
}

// Supervisor drives the Disconnected -> Connecting -> Connected state
// machine for a single store. onConnect runs after every successful connect
// (initial hydrate and reconcile-after-reconnect); if it fails the connect
// is treated as failed.
type Supervisor struct {
	store     port.AvailabilityStore
	cfg       Config
	onConnect func(ctx context.Context) error

	mu    sync.Mutex
	state domain.ConnectionState

	kick chan struct{}
	done chan struct{}
}

func New(store port.AvailabilityStore, cfg Config, onConnect func(ctx context.Context) error) *Supervisor {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	return &Supervisor{
		store:     store,
		cfg:       cfg,
		onConnect: onConnect,
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start begins connecting asynchronously. It returns immediately so the
// HTTP listener can bind before the store is ready.
func (s *Supervisor) Start(ctx context.Context) {
	go s.run(ctx)
}

// Done is closed once the supervisor goroutine has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// State returns the last-known connection state without blocking.
func (s *Supervisor) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReportFailure is called by the availability service when a store
// operation fails or times out while we believed we were connected. It
// flips the state to Disconnected and wakes the retry cycle.
func (s *Supervisor) ReportFailure(err error) {
	s.setDisconnected(err)
	s.wake()
}

// Reconnect asks for an immediate connection attempt. Used after the retry
// budget was exhausted.
func (s *Supervisor) Reconnect() {
	s.wake()
}

func (s *Supervisor) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Supervisor) setConnected() {
	s.mu.Lock()
	s.state = domain.ConnectionState{Connected: true}
	s.mu.Unlock()
}

func (s *Supervisor) setDisconnected(err error) {
	s.mu.Lock()
	s.state.Connected = false
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.mu.Unlock()
}

func (s *Supervisor) setRetry(attempt int, err error) {
	s.mu.Lock()
	s.state.Connected = false
	s.state.RetryCount = attempt
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.mu.Unlock()
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	for {
		if ctx.Err() != nil {
			return
		}
		if s.connectCycle(ctx) {
			s.probeLoop(ctx)
			continue
		}
		// Retry budget exhausted: stay Disconnected until the next probe
		// tick or an explicit Reconnect, never spin in a tight loop.
		obs.Logger.Warn("store_retry_exhausted", "max_attempts", s.cfg.MaxAttempts)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ProbeInterval):
		case <-s.kick:
		}
	}
}

// connectCycle runs one bounded retry cycle. Returns true once connected.
func (s *Supervisor) connectCycle(ctx context.Context) bool {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err := s.ping(ctx)
		if err == nil {
			if s.onConnect != nil {
				if herr := s.onConnect(ctx); herr != nil {
					obs.Logger.Error("store_hydrate_failed", "error", herr)
					err = herr
				}
			}
		}
		if err == nil {
			s.setConnected()
			obs.Logger.Info("store_connected", "attempt", attempt)
			return true
		}
		s.setRetry(attempt, err)
		obs.Logger.Warn("store_connect_failed", "attempt", attempt, "error", err)
		if attempt == s.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * s.cfg.BaseDelay):
		case <-s.kick:
		}
	}
	return false
}

// probeLoop pings the store on a fixed interval while connected. Returns on
// the first failure (or reported failure), leaving the state Disconnected.
func (s *Supervisor) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			// A request-path operation failed; state is already flipped.
			if !s.State().Connected {
				return
			}
		case <-ticker.C:
			if err := s.ping(ctx); err != nil {
				s.setDisconnected(err)
				obs.Logger.Warn("store_probe_failed", "error", err)
				return
			}
		}
	}
}

func (s *Supervisor) ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	return s.store.Ping(pctx)
}
