package redis

import (
	"context"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
)

// SessionStore decorates the in-memory registry with liveness keys in Redis.
// Sessions themselves stay in process memory (the engine is not persisted);
// the keys let operators see active join codes across the fleet and could be
// extended to route cross-instance traffic.
type SessionStore struct {
	inner  *memory.SessionStore
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		inner:  memory.NewSessionStore(),
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) Create() (string, *app.Session, error) {
	code, session, err := s.inner.Create()
	if err != nil {
		return "", nil, err
	}
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(code), "1", s.ttl).Err()
	return code, session, nil
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	return s.inner.Get(code)
}

func (s *SessionStore) Remove(code string) {
	s.inner.Remove(code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

// Sweep drops idle sessions and clears their markers.
func (s *SessionStore) Sweep(maxIdle time.Duration) []string {
	removed := s.inner.Sweep(maxIdle)
	for _, code := range removed {
		_ = s.client.Del(context.Background(), s.key(code)).Err()
	}
	return removed
}

func (s *SessionStore) key(code string) string {
	return "livequiz:session:" + code
}
