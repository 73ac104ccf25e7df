package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLineLocker struct {
	mu   sync.Mutex
	held map[string]string
}

// NewMemoryLineLocker returns an in-process LineLocker.
func NewMemoryLineLocker() LineLocker {
	return &memoryLineLocker{held: map[string]string{}}
}

func (m *memoryLineLocker) TryLock(_ context.Context, customerID string, id LineID) (string, bool, error) {
	key := lineLockKey(customerID, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	m.held[key] = token
	return token, true, nil
}

func (m *memoryLineLocker) Unlock(_ context.Context, customerID string, id LineID, token string) error {
	key := lineLockKey(customerID, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// KeyLocker is the subset of the redis client used for distributed line locks.
type KeyLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	LockKey(scope, id string) string
}

type redisLineLocker struct {
	store KeyLocker
	ttl   time.Duration
}

// NewRedisLineLocker returns a LineLocker shared across API instances. The TTL bounds
// how long a crashed holder can keep a line busy.
func NewRedisLineLocker(store KeyLocker, ttl time.Duration) (LineLocker, error) {
	if store == nil {
		return nil, fmt.Errorf("redis lock store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("line lock ttl must be positive")
	}
	return &redisLineLocker{store: store, ttl: ttl}, nil
}

func (r *redisLineLocker) TryLock(ctx context.Context, customerID string, id LineID) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.store.SetNX(ctx, r.key(customerID, id), token, r.ttl)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (r *redisLineLocker) Unlock(ctx context.Context, customerID string, id LineID, token string) error {
	_, err := r.store.CompareAndDelete(ctx, r.key(customerID, id), token)
	return err
}

func (r *redisLineLocker) key(customerID string, id LineID) string {
	return r.store.LockKey("cart_line", lineLockKey(customerID, id))
}

func lineLockKey(customerID string, id LineID) string {
	return fmt.Sprintf("%s:%d", customerID, id)
}
