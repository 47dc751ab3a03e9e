package usage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"fumble-backend/internal/shared/util"
)

type store interface {
	EnsurePeriod(ctx context.Context, key string) (Usage, error)
	Consume(ctx context.Context, key string, n int) (Usage, error)
	Release(ctx context.Context, key string, n int) (Usage, error)
	Reset(ctx context.Context, key string) (Usage, error)
}

// Service manages per-client daily quotas via an underlying store.
// A nil *Service or a limit of zero disables quotas.
type Service struct {
	store store
	limit int
}

// Option tweaks the quota policy.
type Option func(*policy)

// WithWindow overrides the quota window length.
func WithWindow(d time.Duration) Option {
	return func(p *policy) {
		if d > 0 {
			p.window = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *policy) {
		if now != nil {
			p.now = now
		}
	}
}

func newPolicy(limit int, opts []Option) policy {
	p := policy{limit: limit, window: DefaultWindow, now: time.Now}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// NewService constructs a Service with in-memory store.
func NewService(limit int, opts ...Option) *Service {
	return &Service{store: newMemoryStore(newPolicy(limit, opts)), limit: limit}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(db *sql.DB, limit int, opts ...Option) *Service {
	return &Service{store: newPGStore(db, newPolicy(limit, opts)), limit: limit}
}

// Enabled reports whether quotas are enforced.
func (s *Service) Enabled() bool {
	return s != nil && s.limit > 0
}

// Limit returns the configured analyses per window.
func (s *Service) Limit() int {
	if s == nil {
		return 0
	}
	return s.limit
}

// EnsurePeriod returns the client's usage, starting a new window if the old one expired.
func (s *Service) EnsurePeriod(ctx context.Context, clientKey string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, storageKey(clientKey))
}

// CanConsume reports whether the client can consume n units.
func (s *Service) CanConsume(ctx context.Context, clientKey string, n int) (bool, Usage, error) {
	if !s.Enabled() {
		return true, Usage{}, nil
	}
	u, err := s.store.EnsurePeriod(ctx, storageKey(clientKey))
	if err != nil {
		return false, Usage{}, err
	}
	if n <= 0 {
		return true, u, nil
	}
	if u.Used+n > u.Limit {
		return false, u, nil
	}
	return true, u, nil
}

// Consume increments usage by n if within limit.
func (s *Service) Consume(ctx context.Context, clientKey string, n int) (Usage, error) {
	if !s.Enabled() {
		return Usage{}, nil
	}
	return s.store.Consume(ctx, storageKey(clientKey), n)
}

// Release gives back n units taken by Consume, for work that never ran.
// Usage never drops below zero.
func (s *Service) Release(ctx context.Context, clientKey string, n int) (Usage, error) {
	if !s.Enabled() || n <= 0 {
		return Usage{}, nil
	}
	return s.store.Release(ctx, storageKey(clientKey), n)
}

// RunJanitor drops expired in-memory windows every interval until ctx is
// done. Postgres-backed services return immediately.
func (s *Service) RunJanitor(ctx context.Context, every time.Duration) {
	if !s.Enabled() || every <= 0 {
		return
	}
	p, ok := s.store.(interface{ prune() int })
	if !ok {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune()
		}
	}
}

// Reset sets usage to zero and restarts the window.
func (s *Service) Reset(ctx context.Context, clientKey string) (Usage, error) {
	return s.store.Reset(ctx, storageKey(clientKey))
}

// Client identifiers are IPs or chat IDs; only their hash is stored.
func storageKey(clientKey string) string {
	return util.HashClientKey(strings.TrimSpace(clientKey))
}
