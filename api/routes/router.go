package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-core/api/controllers"
	"github.com/angelmondragon/storefront-core/api/middleware"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	"github.com/angelmondragon/storefront-core/pkg/config"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisPinger redis.Pinger,
	idempotencyStore redis.IdempotencyStore,
	cartService cart.Service,
	voucherService vouchers.Service,
	cartCounts controllers.CountReader,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisPinger, logg))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, cfg.Cart, logg))
			r.Delete("/", controllers.CartClear(cartService, cfg.Cart, logg))
			r.Get("/count", controllers.CartCount(cartService, cartCounts, logg))
			r.Post("/toggle-all", controllers.CartToggleAll(cartService, cfg.Cart, logg))
			r.Post("/lines/{lineId}/toggle", controllers.CartToggleLine(cartService, cfg.Cart, logg))
			r.Patch("/lines/{lineId}", controllers.CartSetQuantity(cartService, cfg.Cart, logg))
			r.Delete("/lines/{lineId}", controllers.CartRemoveLine(cartService, cfg.Cart, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", controllers.VoucherList(cartService, voucherService, logg))
			r.Post("/{voucherId}/claim", controllers.VoucherClaim(voucherService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/summary", controllers.CheckoutSummary(cartService, voucherService, cfg.Cart, logg))
			r.Post("/vouchers/{slot}", controllers.VoucherApply(cartService, voucherService, logg))
			r.Delete("/vouchers/{slot}", controllers.VoucherRemove(voucherService, logg))
		})
	})

	return r
}
