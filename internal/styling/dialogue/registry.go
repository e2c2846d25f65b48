package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/metrics"
	"styling-assistant/internal/styling/taxonomy"
)

var (
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
	ErrSessionLimit    = errors.New("SESSION_LIMIT_REACHED")
)

// Registry holds the live sessions of one worker process, keyed by
// conversation id.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	source      taxonomy.Source
	opts        Options
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time
	logger      logger.Logger
}

type entry struct {
	session *Session
	touched time.Time
}

// RegistryOption tunes a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL evicts sessions untouched for longer than ttl. Sessions with
// a handoff in flight are kept until it settles. Zero disables eviction.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry builds sessions with opts and a taxonomy from source. A
// maxSessions of zero means unbounded.
func NewRegistry(source taxonomy.Source, opts Options, maxSessions int, log logger.Logger, ropts ...RegistryOption) *Registry {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	r := &Registry{
		sessions:    make(map[string]*entry),
		source:      source,
		opts:        opts,
		maxSessions: maxSessions,
		now:         time.Now,
		logger:      log,
	}
	for _, o := range ropts {
		o(r)
	}
	return r
}

// GetOrCreate returns the session for id, creating it on first use. When the
// taxonomy cannot be loaded the session is still created but stays not ready;
// later calls retry the load. At the session limit idle sessions are evicted
// before the request is refused.
func (r *Registry) GetOrCreate(ctx context.Context, id, userID string) (*Session, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.touched = r.now()
	}
	var evicted []*Session
	if !ok && r.full() {
		evicted = r.evictIdleLocked()
	}
	full := !ok && r.full()
	r.mu.Unlock()
	r.closeEvicted(evicted)

	if full {
		return nil, fmt.Errorf("%w: limit %d", ErrSessionLimit, r.maxSessions)
	}

	if ok {
		s := e.session
		if !s.Ready() {
			if tax := r.load(ctx, id); tax != nil && s.Attach(tax) {
				r.logger.Info("taxonomy attached to waiting session", map[string]interface{}{"sessionId": id})
			}
		}
		return s, nil
	}

	tax := r.load(ctx, id)
	opts := r.opts
	opts.UserID = userID
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	created := NewSession(id, tax, opts)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		// Lost a creation race; keep the winner.
		created.Close()
		existing.touched = r.now()
		return existing.session, nil
	}
	if r.full() {
		created.Close()
		return nil, fmt.Errorf("%w: limit %d", ErrSessionLimit, r.maxSessions)
	}
	r.sessions[id] = &entry{session: created, touched: r.now()}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.logger.Info("session created", map[string]interface{}{
		"sessionId": id,
		"userId":    userID,
		"ready":     tax != nil,
	})
	return created, nil
}

func (r *Registry) full() bool {
	return r.maxSessions > 0 && len(r.sessions) >= r.maxSessions
}

func (r *Registry) load(ctx context.Context, id string) *taxonomy.Taxonomy {
	tax, err := r.source.Load(ctx)
	if err != nil {
		r.logger.Warn("taxonomy not available", map[string]interface{}{
			"sessionId": id,
			"error":     err,
		})
		return nil
	}
	return tax
}

// Get returns an existing session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.touched = r.now()
	return e.session, nil
}

// Remove closes and forgets a session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	if ok {
		e.session.Close()
	}
}

// Sweep evicts idle sessions and reports how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	evicted := r.evictIdleLocked()
	r.mu.Unlock()
	r.closeEvicted(evicted)
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("idle sessions evicted", map[string]interface{}{
					"evicted": n,
					"active":  r.Len(),
				})
			}
		}
	}
}

func (r *Registry) evictIdleLocked() []*Session {
	if r.idleTTL <= 0 {
		return nil
	}
	cutoff := r.now().Add(-r.idleTTL)
	var evicted []*Session
	for id, e := range r.sessions {
		if e.touched.After(cutoff) || e.session.handoffInFlight() {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, e.session)
	}
	if len(evicted) > 0 {
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
	}
	return evicted
}

func (r *Registry) closeEvicted(sessions []*Session) {
	for _, s := range sessions {
		s.Close()
		r.logger.Debug("session evicted", map[string]interface{}{"sessionId": s.ID()})
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes every session and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	metrics.ActiveSessions.Set(0)
	r.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
}
