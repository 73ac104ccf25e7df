package vouchers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

var errMissing = errors.New("missing")

type fakeKV struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", errMissing
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeKV) VoucherSlotKey(customerID, slot string) string {
	return "sf:voucher_slot:" + customerID + ":" + slot
}

func isMissing(err error) bool { return errors.Is(err, errMissing) }

func TestRedisSlotStoreRoundTrip(t *testing.T) {
	kv := newFakeKV()
	store, err := NewRedisSlotStore(kv, time.Hour, isMissing)
	require.NoError(t, err)
	ctx := context.Background()

	slot, err := store.Load(ctx, "c1", enums.VoucherSlotStore)
	require.NoError(t, err)
	assert.Equal(t, NewSlot(enums.VoucherSlotStore), slot)

	require.NoError(t, slot.EnterCode("HEMAT"))
	require.NoError(t, slot.MarkApplied(Voucher{ID: 3, Code: "HEMAT"}, 7000, fixedNow))
	require.NoError(t, store.Save(ctx, "c1", slot))
	assert.Equal(t, time.Hour, kv.ttls["sf:voucher_slot:c1:store"])

	loaded, err := store.Load(ctx, "c1", enums.VoucherSlotStore)
	require.NoError(t, err)
	assert.True(t, loaded.Applied())
	assert.Equal(t, int64(7000), loaded.Discount)
	assert.Equal(t, int64(3), loaded.VoucherID)

	loaded.Remove()
	require.NoError(t, store.Save(ctx, "c1", loaded))
	assert.Empty(t, kv.data)
}

func TestRedisSlotStoreErrors(t *testing.T) {
	kv := newFakeKV()
	store, err := NewRedisSlotStore(kv, time.Hour, isMissing)
	require.NoError(t, err)

	kv.data["sf:voucher_slot:c1:store"] = `{"state":"bogus"}`
	_, err = store.Load(context.Background(), "c1", enums.VoucherSlotStore)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	kv.getErr = errors.New("connection reset")
	_, err = store.Load(context.Background(), "c1", enums.VoucherSlotPlatform)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = NewRedisSlotStore(nil, time.Hour, isMissing)
	assert.Error(t, err)
	_, err = NewRedisSlotStore(kv, 0, isMissing)
	assert.Error(t, err)
}

func TestMemorySlotStoreIsolatesCustomers(t *testing.T) {
	store := NewMemorySlotStore()
	ctx := context.Background()

	slot := NewSlot(enums.VoucherSlotPlatform)
	require.NoError(t, slot.EnterCode("JAJA"))
	require.NoError(t, store.Save(ctx, "c1", slot))

	other, err := store.Load(ctx, "c2", enums.VoucherSlotPlatform)
	require.NoError(t, err)
	assert.Equal(t, enums.VoucherSlotStateEmpty, other.State)

	mine, err := store.Load(ctx, "c1", enums.VoucherSlotPlatform)
	require.NoError(t, err)
	assert.Equal(t, "JAJA", mine.Code)
}
