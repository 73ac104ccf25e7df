package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/api/middleware"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	"github.com/angelmondragon/storefront-core/pkg/config"
	"github.com/angelmondragon/storefront-core/pkg/enums"
)

const testCustomer = "cust-1"

var errBackendDown = errors.New("backend down")

type fakeCartBackend struct {
	mu          sync.Mutex
	lines       cart.Lines
	failSelect  bool
	fetchCalls  int
	quantityFor map[cart.LineID]int
}

func newFakeCartBackend(lines ...cart.Line) *fakeCartBackend {
	return &fakeCartBackend{lines: cart.Lines(lines), quantityFor: map[cart.LineID]int{}}
}

func (f *fakeCartBackend) FetchCart(context.Context) (cart.Lines, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return f.lines.Clone(), nil
}

func (f *fakeCartBackend) SetSelected(_ context.Context, id cart.LineID, selected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSelect {
		return errBackendDown
	}
	if idx := f.lines.Index(id); idx >= 0 {
		f.lines[idx].Selected = selected
	}
	return nil
}

func (f *fakeCartBackend) SetQuantity(_ context.Context, id cart.LineID, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quantityFor[id] = qty
	if idx := f.lines.Index(id); idx >= 0 {
		f.lines[idx].Quantity = qty
	}
	return nil
}

func (f *fakeCartBackend) DeleteLine(_ context.Context, id cart.LineID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx := f.lines.Index(id); idx >= 0 {
		f.lines = append(f.lines[:idx], f.lines[idx+1:]...)
	}
	return nil
}

func (f *fakeCartBackend) ClearCart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
	return nil
}

type fakeVoucherBackend struct {
	vouchers   []vouchers.Voucher
	claimErr   error
	discount   int64
	applyCalls int
}

func (f *fakeVoucherBackend) ListVouchers(_ context.Context, scope enums.VoucherScope, _ int64) ([]vouchers.Voucher, error) {
	out := []vouchers.Voucher{}
	for _, v := range f.vouchers {
		if v.Scope == scope {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVoucherBackend) ClaimVoucher(context.Context, int64) error {
	return f.claimErr
}

func (f *fakeVoucherBackend) ApplyVoucher(context.Context, string, enums.VoucherScope) (int64, error) {
	f.applyCalls++
	return f.discount, nil
}

func intPtr(v int) *int { return &v }

func line(id cart.LineID, storeID int64, storeName string, price int64, qty int, selected bool) cart.Line {
	return cart.Line{
		ID:        id,
		StoreID:   storeID,
		StoreName: storeName,
		Product: cart.FullProduct{
			ID:        int64(id) * 10,
			Name:      "Produk",
			BasePrice: price,
			Stock:     intPtr(10),
		},
		Quantity: qty,
		Selected: selected,
	}
}

func testCartConfig() config.CartConfig {
	return config.CartConfig{
		MaxQuantity: 999,
		FlatCoupons: map[string]int64{"discount10": 100000},
	}
}

func newCartService(t *testing.T, backend cart.Backend) cart.Service {
	t.Helper()
	svc, err := cart.NewService(cart.Options{Backend: backend})
	require.NoError(t, err)
	return svc
}

func newVoucherService(t *testing.T, backend vouchers.Backend) vouchers.Service {
	t.Helper()
	svc, err := vouchers.NewService(vouchers.Options{
		Backend: backend,
		Now:     func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func withCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithCustomerID(r.Context(), testCustomer)))
	})
}

func serve(t *testing.T, router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}
