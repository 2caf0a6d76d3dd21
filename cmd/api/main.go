package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/config"
	"github.com/promptforge/marketplace-api/internal/domain/coupon"
	"github.com/promptforge/marketplace-api/internal/domain/earnings"
	"github.com/promptforge/marketplace-api/internal/domain/license"
	"github.com/promptforge/marketplace-api/internal/domain/listing"
	"github.com/promptforge/marketplace-api/internal/domain/purchase"
	"github.com/promptforge/marketplace-api/internal/domain/transaction"
	"github.com/promptforge/marketplace-api/internal/domain/wallet"
	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/database"
	"github.com/promptforge/marketplace-api/internal/pkg/idempotency"
	"github.com/promptforge/marketplace-api/internal/pkg/jwt"
	"github.com/promptforge/marketplace-api/internal/pkg/logger"
	"github.com/promptforge/marketplace-api/internal/pkg/payment"
	pkgresponse "github.com/promptforge/marketplace-api/internal/pkg/response"
	"github.com/promptforge/marketplace-api/internal/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "marketplace-api"}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	// Amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Bool("postgres", cfg.UsesDatabase()).
		Str("idempotency", cfg.IdempotencyBackend).
		Msg("Starting marketplace API")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ---------- Infrastructure ----------
	var db *sqlx.DB
	if cfg.UsesDatabase() {
		db, err = database.NewPostgres(ctx, cfg.DatabaseURL, database.PoolConfig{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer database.ClosePostgres(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	var redisClient *redis.Client
	if cfg.IdempotencyBackend == config.IdempotencyRedis {
		redisClient, err = database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer database.CloseRedis(redisClient)
	}

	idemStore, closeIdem, err := newIdempotencyStore(ctx, cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open idempotency store")
	}
	defer closeIdem()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure statement storage")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	s := newStores(db)

	// ---------- Services ----------
	walletService := wallet.NewService(s.wallets, wallet.Config{
		Currency:      cfg.DefaultCurrency,
		MinWithdrawal: cfg.MinWithdrawal,
	})
	listingService := listing.NewService(s.listings, cfg.DefaultCurrency)
	couponService := coupon.NewService(s.coupons, cfg.Rounding)
	transactionService := transaction.NewService(s.transactions)

	if err := couponService.Seed(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to seed launch coupons")
	}

	gateways := payment.NewRegistry()
	gateways.Register(string(transaction.PaymentCreditCard), payment.NewAutoConfirmGateway("card"))
	gateways.Register(string(transaction.PaymentPayPal), payment.NewAutoConfirmGateway("paypal"))

	purchaseService := purchase.NewService(
		listingService,
		couponService,
		walletService,
		s.transactions,
		s.licenses,
		gateways,
		idemStore,
		purchase.Config{
			PurchaseTimeout: cfg.PurchaseTimeout,
			RefundWindow:    cfg.RefundWindow,
			IdempotencyTTL:  cfg.IdempotencyTTL,
		},
	)
	earningsService := earnings.NewService(s.transactions, listingService, walletService, objects, cfg.Rounding, cfg.StatementURLTTL)

	// ---------- Handlers ----------
	h := handlers{
		listing:     listing.NewHandler(listingService),
		coupon:      coupon.NewHandler(couponService),
		license:     license.NewHandler(s.licenses),
		transaction: transaction.NewHandler(transactionService),
		wallet:      wallet.NewHandler(walletService),
		purchase:    purchase.NewHandler(purchaseService),
		earnings:    earnings.NewHandler(earningsService),
	}

	var files http.Handler
	if cfg.S3Bucket == "" {
		files = statementFiles(cfg.LocalStorageDir)
	}

	r := newRouter(cfg.AllowedOrigins, middleware.Auth(jwtService), h, files)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PurchaseTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type stores struct {
	wallets      wallet.Store
	transactions transaction.Store
	listings     listing.Store
	coupons      coupon.Store
	licenses     license.Store
}

// newStores returns PostgreSQL repositories, or in-memory stores when db is nil.
func newStores(db *sqlx.DB) stores {
	if db == nil {
		return stores{
			wallets:      wallet.NewMemoryStore(),
			transactions: transaction.NewMemoryStore(),
			listings:     listing.NewMemoryStore(),
			coupons:      coupon.NewMemoryStore(),
			licenses:     license.NewMemoryStore(),
		}
	}
	return stores{
		wallets:      wallet.NewRepository(db),
		transactions: transaction.NewRepository(db),
		listings:     listing.NewRepository(db),
		coupons:      coupon.NewRepository(db),
		licenses:     license.NewRepository(db),
	}
}

func newIdempotencyStore(ctx context.Context, cfg *config.Config, client *redis.Client) (idempotency.Store, func(), error) {
	switch cfg.IdempotencyBackend {
	case config.IdempotencyRedis:
		return idempotency.NewRedisStore(client), func() {}, nil
	case config.IdempotencyBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.IdempotencyBoltPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("create bolt directory: %w", err)
		}
		store, err := idempotency.OpenBolt(cfg.IdempotencyBoltPath)
		if err != nil {
			return nil, nil, err
		}
		go purgeExpiredKeys(ctx, store, time.Hour)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing idempotency store")
			}
		}, nil
	default:
		return idempotency.NewMemoryStore(), func() {}, nil
	}
}

// purgeExpiredKeys drops expired bolt entries until ctx is done.
func purgeExpiredKeys(ctx context.Context, store *idempotency.BoltStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge()
			if err != nil {
				log.Error().Err(err).Msg("Failed to purge idempotency keys")
				continue
			}
			if n > 0 {
				log.Debug().Int("purged", n).Msg("Expired idempotency keys removed")
			}
		}
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.S3Bucket != "" {
		return storage.NewS3Storage(ctx, storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	log.Warn().Str("dir", cfg.LocalStorageDir).Msg("S3_BUCKET not set, storing statements on local disk")
	return storage.NewLocalStorage(cfg.LocalStorageDir, cfg.PublicBaseURL)
}

// statementFiles serves locally stored statements until their expiry.
func statementFiles(dir string) http.Handler {
	fs := http.StripPrefix("/files/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
		if err != nil || time.Now().Unix() > expires {
			pkgresponse.Forbidden(w, "link expired")
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			pkgresponse.NotFound(w, "file not found")
			return
		}
		fs.ServeHTTP(w, r)
	})
}

type handlers struct {
	listing     *listing.Handler
	coupon      *coupon.Handler
	license     *license.Handler
	transaction *transaction.Handler
	wallet      *wallet.Handler
	purchase    *purchase.Handler
	earnings    *earnings.Handler
}

func newRouter(allowedOrigins []string, authMiddleware func(http.Handler) http.Handler, h handlers, files http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(allowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	if files != nil {
		r.Handle("/files/*", files)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/listings", h.listing.Routes(authMiddleware))
		mountSellerRoutes(r, authMiddleware, h)
		r.Mount("/purchases", h.purchase.Routes(authMiddleware))
		r.Mount("/transactions", h.transaction.Routes(authMiddleware, h.purchase.Refund))
		r.Mount("/wallets", h.wallet.Routes(authMiddleware))
		r.Mount("/coupons", h.coupon.Routes(authMiddleware))
		r.Mount("/licenses", h.license.Routes(authMiddleware))
	})

	return r
}

// mountSellerRoutes groups the per-seller views owned by different domains.
func mountSellerRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, h handlers) {
	r.Route("/sellers/{id}", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/listings", h.listing.BySeller)
		r.Get("/earnings", h.earnings.Summary)
		r.Post("/statements", h.earnings.Statement)
	})
}
