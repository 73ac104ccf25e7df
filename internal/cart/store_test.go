package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

type stubBackend struct {
	mu           sync.Mutex
	server       Lines
	failSelect   map[LineID]bool
	failQuantity bool
	failDelete   bool
	failClear    bool
	failFetch    bool
	selectCalls  []LineID
	qtyCalls     map[LineID]int
	fetchCalls   int
}

func newStubBackend(lines ...Line) *stubBackend {
	return &stubBackend{
		server:     Lines(lines).Clone(),
		failSelect: map[LineID]bool{},
		qtyCalls:   map[LineID]int{},
	}
}

func (b *stubBackend) FetchCart(context.Context) (Lines, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchCalls++
	if b.failFetch {
		return nil, errors.New("fetch unavailable")
	}
	return b.server.Clone(), nil
}

func (b *stubBackend) SetSelected(_ context.Context, id LineID, selected bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectCalls = append(b.selectCalls, id)
	if b.failSelect[id] {
		return errors.New("select rejected")
	}
	if idx := b.server.Index(id); idx >= 0 {
		b.server[idx].Selected = selected
	}
	return nil
}

func (b *stubBackend) SetQuantity(_ context.Context, id LineID, qty int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.qtyCalls[id] = qty
	if b.failQuantity {
		return errors.New("quantity rejected")
	}
	if idx := b.server.Index(id); idx >= 0 {
		b.server[idx].Quantity = qty
	}
	return nil
}

func (b *stubBackend) DeleteLine(_ context.Context, id LineID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete {
		return errors.New("delete rejected")
	}
	b.server = withoutLines(b.server, map[LineID]struct{}{id: {}})
	return nil
}

func (b *stubBackend) ClearCart(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failClear {
		return errors.New("clear rejected")
	}
	b.server = Lines{}
	return nil
}

func (b *stubBackend) selectCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.selectCalls)
}

type recordingCounts struct {
	mu     sync.Mutex
	counts []int
}

func (r *recordingCounts) Publish(_ context.Context, _ string, count int) {
	r.mu.Lock()
	r.counts = append(r.counts, count)
	r.mu.Unlock()
}

func (r *recordingCounts) last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.counts) == 0 {
		return -1
	}
	return r.counts[len(r.counts)-1]
}

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (r *recordingRecorder) ObserveMutation(operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]string{}
	}
	r.outcomes[operation] = outcome
}

func (r *recordingRecorder) outcome(operation string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[operation]
}

func openStore(t *testing.T, backend *stubBackend, opts Options) *Store {
	t.Helper()
	opts.Backend = backend
	svc, err := NewService(opts)
	require.NoError(t, err)
	store, err := svc.Open(context.Background(), "customer-1")
	require.NoError(t, err)
	return store
}

func TestNewStoreRequiresCustomer(t *testing.T) {
	_, err := NewStore("  ", Options{Backend: newStubBackend()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NewService(Options{})
	require.Error(t, err)
}

func TestStoreToggleOneSuccess(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 1, false), fullLine(2, 1, 1000, 1, false))
	counts := &recordingCounts{}
	store := openStore(t, backend, Options{Counts: counts})

	result, err := store.ToggleOne(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, flags(result.Lines))
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []LineID{2}, backend.selectCalls)
	assert.Equal(t, 2, counts.last())
}

func TestStoreToggleOneRollsBackOnFailure(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 1, false), fullLine(2, 1, 1000, 1, true))
	backend.failSelect[1] = true
	recorder := &recordingRecorder{}
	store := openStore(t, backend, Options{Recorder: recorder})

	result, err := store.ToggleOne(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, []bool{false, true}, flags(store.Lines()))
	assert.True(t, result.Warnings.Has(enums.CartLineWarningTypeRolledBack))
	assert.False(t, result.Refetched)
	assert.Equal(t, OutcomeRolledBack, recorder.outcome(OperationToggleOne))
}

func TestStoreToggleOneUnknownLine(t *testing.T) {
	store := openStore(t, newStubBackend(fullLine(1, 1, 1000, 1, false)), Options{})

	_, err := store.ToggleOne(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestStoreToggleAllOnlySendsChangedLines(t *testing.T) {
	backend := newStubBackend(
		fullLine(1, 1, 1000, 1, true),
		fullLine(2, 1, 1000, 1, false),
		fullLine(3, 2, 1000, 1, false),
	)
	store := openStore(t, backend, Options{ToggleConcurrency: 2})

	result, err := store.ToggleAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, flags(result.Lines))
	assert.ElementsMatch(t, []LineID{2, 3}, backend.selectCalls)

	result, err = store.ToggleAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, flags(result.Lines))
}

func TestStoreToggleAllPartialFailureRefetches(t *testing.T) {
	backend := newStubBackend(
		fullLine(1, 1, 1000, 1, true),
		fullLine(2, 1, 1000, 1, false),
		fullLine(3, 2, 1000, 1, false),
	)
	backend.failSelect[3] = true
	recorder := &recordingRecorder{}
	store := openStore(t, backend, Options{Recorder: recorder})

	result, err := store.ToggleAll(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Refetched)
	assert.True(t, result.Warnings.Has(enums.CartLineWarningTypePartialFailure))
	assert.True(t, result.Warnings.Has(enums.CartLineWarningTypeRefetched))
	assert.Equal(t, []bool{true, true, false}, flags(store.Lines()))
	assert.Equal(t, OutcomePartial, recorder.outcome(OperationToggleAll))
}

func TestStoreToggleAllTotalFailureRollsBack(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 1, false), fullLine(2, 1, 1000, 1, true))
	backend.failSelect[1] = true
	store := openStore(t, backend, Options{})

	result, err := store.ToggleAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, []bool{false, true}, flags(store.Lines()))
	assert.True(t, result.Warnings.Has(enums.CartLineWarningTypeRolledBack))
}

func TestStoreToggleAllEmptyCart(t *testing.T) {
	backend := newStubBackend()
	store := openStore(t, backend, Options{})

	result, err := store.ToggleAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Zero(t, backend.selectCallCount())
}

func TestStoreSetQuantityBelowMinimumSkipsBackend(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 3, true))
	store := openStore(t, backend, Options{})

	result, err := store.SetQuantity(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.True(t, result.Warnings.Has(enums.CartLineWarningTypeClampedToMin))
	assert.Equal(t, 3, result.Lines[0].Quantity)
	assert.Empty(t, backend.qtyCalls)
}

func TestStoreSetQuantityClampsToStock(t *testing.T) {
	line := fullLine(1, 1, 1000, 1, true)
	line.Variant = &Variant{Name: "L", Stock: intPtr(4)}
	backend := newStubBackend(line)
	store := openStore(t, backend, Options{})

	result, err := store.SetQuantity(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, result.Warnings.Has(enums.CartLineWarningTypeClampedToStock))
	assert.Equal(t, 4, result.Lines[0].Quantity)
	assert.Equal(t, 4, backend.qtyCalls[1])
}

func TestStoreSetQuantitySameValueIsNoop(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 2, true))
	store := openStore(t, backend, Options{})

	_, err := store.SetQuantity(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, backend.qtyCalls)
}

func TestStoreSetQuantityRollsBack(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 2, true))
	backend.failQuantity = true
	store := openStore(t, backend, Options{})

	_, err := store.SetQuantity(context.Background(), 1, 5)
	require.Error(t, err)
	assert.Equal(t, 2, store.Lines()[0].Quantity)
}

func TestStoreRemoveRollbackRestoresPosition(t *testing.T) {
	backend := newStubBackend(
		fullLine(1, 1, 1000, 1, true),
		fullLine(2, 1, 1000, 1, true),
		fullLine(3, 1, 1000, 1, true),
	)
	backend.failDelete = true
	store := openStore(t, backend, Options{})

	_, err := store.Remove(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, []LineID{1, 2, 3}, store.Lines().IDs())
}

func TestStoreRemoveAndClearPublishCount(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 1, true), fullLine(2, 2, 1000, 1, true))
	counts := &recordingCounts{}
	store := openStore(t, backend, Options{Counts: counts})

	_, err := store.Remove(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.last())

	result, err := store.Clear(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Equal(t, 0, counts.last())
}

func TestStoreClearRollsBack(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 1, true), fullLine(2, 2, 1000, 1, true))
	backend.failClear = true
	store := openStore(t, backend, Options{})

	_, err := store.Clear(context.Background())
	require.Error(t, err)
	assert.Equal(t, []LineID{1, 2}, store.Lines().IDs())
}

func TestStoreBusyLineIsRejected(t *testing.T) {
	backend := newStubBackend(fullLine(1, 1, 1000, 1, false))
	locks := NewMemoryLineLocker()
	recorder := &recordingRecorder{}
	store := openStore(t, backend, Options{Locks: locks, Recorder: recorder})

	token, ok, err := locks.TryLock(context.Background(), "customer-1", 1)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.ToggleOne(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Zero(t, backend.selectCallCount())
	assert.Equal(t, OutcomeBusy, recorder.outcome(OperationToggleOne))

	require.NoError(t, locks.Unlock(context.Background(), "customer-1", 1, "someone-else"))
	_, err = store.ToggleOne(context.Background(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, locks.Unlock(context.Background(), "customer-1", 1, token))
	_, err = store.ToggleOne(context.Background(), 1)
	require.NoError(t, err)
}

func TestStoreLoadFailureIsDependencyError(t *testing.T) {
	backend := newStubBackend()
	backend.failFetch = true
	svc, err := NewService(Options{Backend: backend})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), "customer-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

type stubKeyLocker struct {
	keys map[string]string
}

func (s *stubKeyLocker) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, held := s.keys[key]; held {
		return false, nil
	}
	s.keys[key] = value.(string)
	return true, nil
}

func (s *stubKeyLocker) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if held, ok := s.keys[key]; ok && held == value {
		delete(s.keys, key)
		return true, nil
	}
	return false, nil
}

// expire drops key as if its TTL had elapsed.
func (s *stubKeyLocker) expire(key string) {
	delete(s.keys, key)
}

func (s *stubKeyLocker) LockKey(scope, id string) string {
	return "sf:lock:" + scope + ":" + id
}

func TestRedisLineLockerKeysPerCustomerLine(t *testing.T) {
	store := &stubKeyLocker{keys: map[string]string{}}
	locker, err := NewRedisLineLocker(store, time.Second)
	require.NoError(t, err)

	token, ok, err := locker.TryLock(context.Background(), "c1", 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.Equal(t, token, store.keys["sf:lock:cart_line:c1:7"])

	_, ok, _ = locker.TryLock(context.Background(), "c1", 7)
	assert.False(t, ok)
	_, ok, _ = locker.TryLock(context.Background(), "c2", 7)
	assert.True(t, ok)

	require.NoError(t, locker.Unlock(context.Background(), "c1", 7, token))
	_, ok, _ = locker.TryLock(context.Background(), "c1", 7)
	assert.True(t, ok)

	_, err = NewRedisLineLocker(nil, time.Second)
	assert.Error(t, err)
}

func TestRedisLineLockerExpiredHolderCannotReleaseNewHolder(t *testing.T) {
	store := &stubKeyLocker{keys: map[string]string{}}
	locker, err := NewRedisLineLocker(store, time.Second)
	require.NoError(t, err)
	ctx := context.Background()
	key := "sf:lock:cart_line:c1:7"

	first, ok, err := locker.TryLock(ctx, "c1", 7)
	require.NoError(t, err)
	require.True(t, ok)

	store.expire(key)
	second, ok, err := locker.TryLock(ctx, "c1", 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, first, second)

	require.NoError(t, locker.Unlock(ctx, "c1", 7, first))
	assert.Equal(t, second, store.keys[key])
	_, ok, _ = locker.TryLock(ctx, "c1", 7)
	assert.False(t, ok)

	require.NoError(t, locker.Unlock(ctx, "c1", 7, second))
	_, ok, _ = locker.TryLock(ctx, "c1", 7)
	assert.True(t, ok)
}
