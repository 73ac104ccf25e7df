package cartcount

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront-core/pkg/logger"
)

// Store is the subset of the redis client that persists counts.
type Store interface {
	SetCartCount(ctx context.Context, customerID string, count int, ttl time.Duration) error
	GetCartCount(ctx context.Context, customerID string) (int, bool, error)
}

// Cache keeps the latest count of every customer in redis so any API instance can
// serve the navigation badge without loading the cart.
type Cache struct {
	store Store
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCache builds a count cache.
func NewCache(store Store, ttl time.Duration, logg *logger.Logger) (*Cache, error) {
	if store == nil {
		return nil, errors.New("cart count store required")
	}
	if ttl <= 0 {
		return nil, errors.New("cart count ttl must be positive")
	}
	return &Cache{store: store, ttl: ttl, logg: logg}, nil
}

// Attach subscribes the cache to subject and returns the unsubscribe function.
func (c *Cache) Attach(subject *Subject) func() {
	return subject.Subscribe(c.record)
}

// Count returns the cached count; the boolean is false on a cache miss.
func (c *Cache) Count(ctx context.Context, customerID string) (int, bool, error) {
	return c.store.GetCartCount(ctx, customerID)
}

func (c *Cache) record(ctx context.Context, customerID string, count int) {
	if err := c.store.SetCartCount(context.WithoutCancel(ctx), customerID, count, c.ttl); err != nil && c.logg != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"customer_id": customerID,
			"error":       err.Error(),
		}), "cart_count.cache_write_failed")
	}
}
