package vouchers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

// SlotStore persists a customer's voucher slots between requests.
type SlotStore interface {
	Load(ctx context.Context, customerID string, name enums.VoucherSlot) (Slot, error)
	Save(ctx context.Context, customerID string, slot Slot) error
}

type memorySlotStore struct {
	mu    sync.Mutex
	slots map[string]Slot
}

// NewMemorySlotStore returns a process-local SlotStore.
func NewMemorySlotStore() SlotStore {
	return &memorySlotStore{slots: map[string]Slot{}}
}

func (m *memorySlotStore) Load(_ context.Context, customerID string, name enums.VoucherSlot) (Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok := m.slots[memoryKey(customerID, name)]; ok {
		return slot, nil
	}
	return NewSlot(name), nil
}

func (m *memorySlotStore) Save(_ context.Context, customerID string, slot Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(customerID, slot.Name)
	if slot.State == enums.VoucherSlotStateEmpty {
		delete(m.slots, key)
		return nil
	}
	m.slots[key] = slot
	return nil
}

func memoryKey(customerID string, name enums.VoucherSlot) string {
	return customerID + "|" + string(name)
}

// KeyValueStore is the subset of the redis client used to persist slots.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	VoucherSlotKey(customerID, slot string) string
}

type redisSlotStore struct {
	kv      KeyValueStore
	ttl     time.Duration
	missing func(error) bool
}

// NewRedisSlotStore stores slots as JSON documents that expire after ttl. missing
// reports whether a Get error means the key does not exist.
func NewRedisSlotStore(kv KeyValueStore, ttl time.Duration, missing func(error) bool) (SlotStore, error) {
	if kv == nil {
		return nil, errors.New("voucher slot store requires a key value store")
	}
	if ttl <= 0 {
		return nil, errors.New("voucher slot ttl must be positive")
	}
	if missing == nil {
		missing = func(error) bool { return false }
	}
	return &redisSlotStore{kv: kv, ttl: ttl, missing: missing}, nil
}

func (r *redisSlotStore) Load(ctx context.Context, customerID string, name enums.VoucherSlot) (Slot, error) {
	raw, err := r.kv.Get(ctx, r.kv.VoucherSlotKey(customerID, string(name)))
	if err != nil {
		if r.missing(err) {
			return NewSlot(name), nil
		}
		return Slot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher slot")
	}
	var slot Slot
	if err := json.Unmarshal([]byte(raw), &slot); err != nil {
		return Slot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode voucher slot")
	}
	if !slot.State.IsValid() {
		return Slot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("unknown state %q", slot.State), "decode voucher slot")
	}
	slot.Name = name
	return slot, nil
}

func (r *redisSlotStore) Save(ctx context.Context, customerID string, slot Slot) error {
	key := r.kv.VoucherSlotKey(customerID, string(slot.Name))
	if slot.State == enums.VoucherSlotStateEmpty {
		if err := r.kv.Del(ctx, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear voucher slot")
		}
		return nil
	}
	payload, err := json.Marshal(slot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode voucher slot")
	}
	if err := r.kv.Set(ctx, key, string(payload), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save voucher slot")
	}
	return nil
}
