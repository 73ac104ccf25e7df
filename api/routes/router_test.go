package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	pkgAuth "github.com/angelmondragon/storefront-core/pkg/auth"
	"github.com/angelmondragon/storefront-core/pkg/config"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	"github.com/angelmondragon/storefront-core/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartBackend struct {
	lines      cart.Lines
	clearCalls int
}

func (s *stubCartBackend) FetchCart(context.Context) (cart.Lines, error) {
	return s.lines.Clone(), nil
}

func (s *stubCartBackend) SetSelected(context.Context, cart.LineID, bool) error { return nil }
func (s *stubCartBackend) SetQuantity(context.Context, cart.LineID, int) error  { return nil }
func (s *stubCartBackend) DeleteLine(context.Context, cart.LineID) error        { return nil }

func (s *stubCartBackend) ClearCart(context.Context) error {
	s.clearCalls++
	s.lines = nil
	return nil
}

type stubVoucherBackend struct{}

func (stubVoucherBackend) ListVouchers(context.Context, enums.VoucherScope, int64) ([]vouchers.Voucher, error) {
	return nil, nil
}

func (stubVoucherBackend) ClaimVoucher(context.Context, int64) error { return nil }

func (stubVoucherBackend) ApplyVoucher(context.Context, string, enums.VoucherScope) (int64, error) {
	return 0, nil
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "jaja"},
		Cart: config.CartConfig{
			MaxQuantity: 999,
			FlatCoupons: map[string]int64{"discount10": 100000},
		},
	}
}

func newTestRouter(t *testing.T, backend *stubCartBackend) http.Handler {
	t.Helper()
	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)

	cartSvc, err := cart.NewService(cart.Options{Backend: backend, Recorder: cartMetrics})
	require.NoError(t, err)
	voucherSvc, err := vouchers.NewService(vouchers.Options{Backend: stubVoucherBackend{}})
	require.NoError(t, err)

	return NewRouter(
		testConfig(),
		nil,
		stubPinger{},
		&memoryIdempotency{data: map[string]string{}},
		cartSvc,
		voucherSvc,
		nil,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), "cust-1", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, &stubCartBackend{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.NotEmpty(t, resp.Header().Get("X-Request-Id"), path)
	}
}

func TestCartRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, &stubCartBackend{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCartRouteWithToken(t *testing.T) {
	router := newTestRouter(t, &stubCartBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestClearCartIsIdempotent(t *testing.T) {
	backend := &stubCartBackend{lines: cart.Lines{{ID: 1, StoreID: 7, Quantity: 1, Selected: true}}}
	router := newTestRouter(t, backend)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
		req.Header.Set("Authorization", bearer(t))
		req.Header.Set("Idempotency-Key", "clear-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Equal(t, 1, backend.clearCalls)
}

func TestMetricsRouteExposesCartMutations(t *testing.T) {
	router := newTestRouter(t, &stubCartBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t))
	router.ServeHTTP(httptest.NewRecorder(), req)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "cart_mutations_total")
}
