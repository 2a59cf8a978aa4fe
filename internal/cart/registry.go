package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type entry struct {
	store    *Store
	lastSeen time.Time
	leases   int
}

// Registry maps session ids to carts. Carts are dropped after a period of
// inactivity by Sweep; a cart under lease is never dropped.
type Registry struct {
	mu     sync.Mutex
	carts  map[string]*entry
	policy MergePolicy
	now    func() time.Time
	logger *zap.Logger
}

type RegistryOption func(*Registry)

func WithPolicy(p MergePolicy) RegistryOption {
	return func(r *Registry) { r.policy = p }
}

func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		carts:  make(map[string]*entry),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the cart for sessionID, creating it if needed. Ids that are
// not UUIDs are replaced by a fresh one; the id actually used is returned.
func (r *Registry) Open(sessionID string) (string, *Store) {
	id, e := r.open(sessionID)
	r.mu.Unlock()
	return id, e.store
}

// Acquire is Open with a lease: the cart survives Sweep until release is
// called. release may be called more than once.
func (r *Registry) Acquire(sessionID string) (string, *Store, func()) {
	id, e := r.open(sessionID)
	e.leases++
	r.mu.Unlock()
	return id, e.store, r.releaser(e)
}

// open returns with mu held.
func (r *Registry) open(sessionID string) (string, *entry) {
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}
	r.mu.Lock()
	e, ok := r.carts[sessionID]
	if !ok {
		e = &entry{store: NewStore(WithMergePolicy(r.policy))}
		r.carts[sessionID] = e
	}
	e.lastSeen = r.now()
	return sessionID, e
}

// Get returns an existing cart without creating one.
func (r *Registry) Get(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.store, true
}

// AcquireExisting is Get with a lease, see Acquire.
func (r *Registry) AcquireExisting(sessionID string) (*Store, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[sessionID]
	if !ok {
		return nil, nil, false
	}
	e.lastSeen = r.now()
	e.leases++
	return e.store, r.releaser(e), true
}

func (r *Registry) releaser(e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			e.leases--
			e.lastSeen = r.now()
			r.mu.Unlock()
		})
	}
}

func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.carts, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Sweep drops carts not touched for longer than idle and not under lease,
// and reports how many were dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	dropped := 0
	for id, e := range r.carts {
		if e.leases == 0 && e.lastSeen.Before(cutoff) {
			delete(r.carts, id)
			dropped++
		}
	}
	left := len(r.carts)
	r.mu.Unlock()
	if dropped > 0 {
		r.logger.Info("idle carts dropped", zap.Int("dropped", dropped), zap.Int("active", left))
	}
	return dropped
}

// StartSweeper schedules Sweep on a cron spec such as "@every 1m". The
// caller stops the returned scheduler.
func (r *Registry) StartSweeper(spec string, idle time.Duration) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Sweep(idle) }); err != nil {
		return nil, errors.Wrapf(err, "schedule cart sweep %q", spec)
	}
	c.Start()
	return c, nil
}
