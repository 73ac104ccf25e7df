package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-core/api/controllers"
	"github.com/angelmondragon/storefront-core/api/routes"
	"github.com/angelmondragon/storefront-core/internal/cart"
	"github.com/angelmondragon/storefront-core/internal/cartcount"
	"github.com/angelmondragon/storefront-core/internal/vouchers"
	"github.com/angelmondragon/storefront-core/pkg/config"
	"github.com/angelmondragon/storefront-core/pkg/instance"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/metrics"
	"github.com/angelmondragon/storefront-core/pkg/redis"
	"github.com/angelmondragon/storefront-core/pkg/storefrontapi"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "storefront-api"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	if err := run(ctx, logg); err != nil {
		logg.Error(ctx, "storefront api stopped", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, using in-process locks and voucher slots")
	}

	backendClient, err := storefrontapi.NewClient(cfg.Backend.BaseURL, storefrontapi.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	locks, err := newLineLocker(cfg.Cart, redisClient)
	if err != nil {
		return fmt.Errorf("create cart line locker: %w", err)
	}

	counts := cartcount.NewSubject()
	var countReader controllers.CountReader
	if redisClient != nil {
		countCache, err := cartcount.NewCache(redisClient, cfg.Cart.CountTTL, logg)
		if err != nil {
			return fmt.Errorf("create cart count cache: %w", err)
		}
		defer countCache.Attach(counts)()
		countReader = countCache
	}

	cartService, err := cart.NewService(cart.Options{
		Backend:           cart.NewAPIBackend(backendClient),
		Locks:             locks,
		Counts:            counts,
		Recorder:          metrics.NewCartMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
		MaxQuantity:       cfg.Cart.MaxQuantity,
		ToggleConcurrency: cfg.Cart.ToggleConcurrency,
	})
	if err != nil {
		return fmt.Errorf("create cart service: %w", err)
	}

	slots := vouchers.NewMemorySlotStore()
	if redisClient != nil {
		slots, err = vouchers.NewRedisSlotStore(redisClient, cfg.Vouchers.SlotTTL, redis.IsNil)
		if err != nil {
			return fmt.Errorf("create voucher slot store: %w", err)
		}
	}

	voucherService, err := vouchers.NewService(vouchers.Options{
		Backend: vouchers.NewAPIBackend(backendClient),
		Slots:   slots,
		Logger:  logg,
	})
	if err != nil {
		return fmt.Errorf("create voucher service: %w", err)
	}

	var (
		pinger      redis.Pinger
		idempotency redis.IdempotencyStore
	)
	if redisClient != nil {
		pinger = redisClient
		idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  instance.GetID(),
		"lock_mode": cfg.Cart.LockMode,
		"backend":   cfg.Backend.BaseURL,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			pinger,
			idempotency,
			cartService,
			voucherService,
			countReader,
			promhttp.Handler(),
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting storefront api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down storefront api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}

func newLineLocker(cfg config.CartConfig, redisClient *redis.Client) (cart.LineLocker, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.LockMode), config.LockModeMemory) {
		return cart.NewMemoryLineLocker(), nil
	}
	if redisClient == nil {
		return nil, errors.New("redis lock mode requires STOREFRONT_REDIS_URL or STOREFRONT_REDIS_ADDR")
	}
	return cart.NewRedisLineLocker(redisClient, cfg.LineLockTTL)
}
