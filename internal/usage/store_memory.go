package usage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]Usage
	policy policy
}

func newMemoryStore(p policy) *memoryStore {
	return &memoryStore{
		data:   make(map[string]Usage),
		policy: p,
	}
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, key string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(key), nil
}

func (s *memoryStore) ensureLocked(key string) Usage {
	u, ok := s.data[key]
	if !ok {
		u = s.policy.fresh()
	}
	u, _ = s.policy.roll(u)
	s.data[key] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, key string, n int) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(key)
	if n <= 0 {
		return u, nil
	}
	if u.Used+n > u.Limit {
		return u, ErrLimitReached
	}
	u.Used += n
	s.data[key] = u
	return u, nil
}

func (s *memoryStore) Release(ctx context.Context, key string, n int) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(key)
	u.Used -= n
	if u.Used < 0 {
		u.Used = 0
	}
	s.data[key] = u
	return u, nil
}

// prune removes windows that have expired. A later lookup recreates them
// exactly as roll would.
func (s *memoryStore) prune() int {
	now := s.policy.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, u := range s.data {
		if !now.Before(u.ResetsAt) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

func (s *memoryStore) Reset(ctx context.Context, key string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.policy.fresh()
	s.data[key] = u
	return u, nil
}
