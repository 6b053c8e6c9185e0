package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SupervisorConfig bounds the restart behaviour of a Supervisor.
type SupervisorConfig struct {
	// MaxRestarts is the number of abnormal Coordinator exits tolerated
	// within Window before the Supervisor gives up. Must be >= 0.
	MaxRestarts int

	// Window is the rolling interval over which restarts are counted.
	// Must be > 0.
	Window time.Duration

	// MailboxSize is the mutation queue depth of each Coordinator the
	// Supervisor starts. Zero falls back to DefaultMailboxSize.
	MailboxSize int
}

// DefaultSupervisorConfig returns the restart policy used when the caller
// does not configure one.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MaxRestarts: 5,
		Window:      10 * time.Second,
		MailboxSize: DefaultMailboxSize,
	}
}

// Validate checks whether the configuration values are usable.
func (c SupervisorConfig) Validate() error {
	if c.MaxRestarts < 0 {
		return &ConfigError{Field: "MaxRestarts", Message: "must be >= 0"}
	}
	if c.Window <= 0 {
		return &ConfigError{Field: "Window", Message: "must be greater than 0"}
	}
	if c.MailboxSize < 0 {
		return &ConfigError{Field: "MailboxSize", Message: "must be >= 0"}
	}
	return nil
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

// Supervisor keeps exactly one live Coordinator running for its entity
// type (one-for-one; a crash here never touches another entity's cache).
// On an abnormal exit it starts a replacement Coordinator with a brand-new
// empty Store. A Coordinator that keeps crashing past the configured
// intensity is left down: a repeated-crash loop signals a systemic bug,
// not a transient fault worth masking. After a give-up the Supervisor
// installs an already-dead Coordinator over an empty Store so readers can
// never be served entries that no Clear could reach.
type Supervisor[V any] struct {
	name   string
	cfg    SupervisorConfig
	logger *zap.Logger

	current  atomic.Pointer[Coordinator[V]]
	down     atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewSupervisor creates a Supervisor for the named entity type. The first
// Coordinator exists immediately so handles obtained before Start are
// valid, but no mutation is acknowledged until Start runs.
func NewSupervisor[V any](name string, cfg SupervisorConfig, logger *zap.Logger) (*Supervisor[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor[V]{
		name:    name,
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.current.Store(NewCoordinator[V](name, NewStore[V](), cfg.MailboxSize, logger))
	return s, nil
}

// Start launches the current Coordinator and the supervision loop.
func (s *Supervisor[V]) Start() {
	s.current.Load().Start()
	go s.loop()
}

func (s *Supervisor[V]) loop() {
	defer close(s.stopped)

	var restarts []time.Time
	for {
		c := s.current.Load()
		select {
		case <-s.stop:
			c.Stop()
			<-c.Done()
			return

		case <-c.Done():
			reason := c.ExitReason()
			if reason == nil {
				return
			}

			now := time.Now()
			restarts = append(restarts, now)
			cutoff := now.Add(-s.cfg.Window)
			kept := restarts[:0]
			for _, ts := range restarts {
				if ts.After(cutoff) {
					kept = append(kept, ts)
				}
			}
			restarts = kept

			if len(restarts) > s.cfg.MaxRestarts {
				s.down.Store(true)
				s.current.Store(newDeadCoordinator[V](s.name, ErrCoordinatorDown, s.logger))
				s.logger.Error("coordinator exceeded restart intensity, leaving cache down",
					zap.String("coordinator", s.name),
					zap.Int("restarts", len(restarts)),
					zap.Duration("window", s.cfg.Window),
					zap.Error(reason))
				return
			}

			s.logger.Warn("coordinator exited, restarting with empty store",
				zap.String("coordinator", s.name),
				zap.Int("restarts", len(restarts)),
				zap.Error(reason))

			next := NewCoordinator[V](s.name, NewStore[V](), s.cfg.MailboxSize, s.logger)
			next.Start()
			s.current.Store(next)
		}
	}
}

// Stop shuts the current Coordinator down cleanly and waits for the
// supervision loop to exit. A clean stop never counts as a restart.
func (s *Supervisor[V]) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.stopped
}

// Coordinator returns the handle mutations should be dispatched through.
// The handle always exists; if the cache is down, mutations fail fast with
// ErrCoordinatorDown.
func (s *Supervisor[V]) Coordinator() *Coordinator[V] { return s.current.Load() }

// Store returns the current Coordinator's Store for lock-free reads.
// Callers must re-fetch the handle per request: after a restart the old
// Store is discarded along with everything in it.
func (s *Supervisor[V]) Store() *Store[V] { return s.current.Load().Store() }

// Name identifies the supervised entity type.
func (s *Supervisor[V]) Name() string { return s.name }

// Down reports whether the Supervisor has given up restarting.
func (s *Supervisor[V]) Down() bool { return s.down.Load() }

// Backlog reports the queued mutation count of the current Coordinator.
func (s *Supervisor[V]) Backlog() int { return s.current.Load().Backlog() }
