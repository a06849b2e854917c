package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/redis"
)

// Manager remembers which envelope ids a worker has already handed off, using
// Redis SETNX with a TTL. Keys look like
// `fo:idempotency:evt:published:<worker>:<event_id>`.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// Seen reports whether worker already marked the event.
func (m *Manager) Seen(ctx context.Context, worker, eventID string) (bool, error) {
	key, err := m.key(worker, eventID)
	if err != nil {
		return false, err
	}
	val, err := m.store.Get(ctx, key)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val != "", nil
}

// Mark records the event for worker. It returns true when the event had
// already been marked.
func (m *Manager) Mark(ctx context.Context, worker, eventID string) (bool, error) {
	key, err := m.key(worker, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release forgets a mark so the event can be handled again.
func (m *Manager) Release(ctx context.Context, worker, eventID string) error {
	key, err := m.key(worker, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(worker, eventID string) (string, error) {
	if strings.TrimSpace(worker) == "" {
		return "", errors.New("worker name is required")
	}
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:published:%s", worker), eventID), nil
}
