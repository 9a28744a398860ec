package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/unimart/unimart-api/internal/config"
	"github.com/unimart/unimart-api/internal/domain/order"
	"github.com/unimart/unimart-api/internal/domain/product"
	"github.com/unimart/unimart-api/internal/domain/realtime"
	"github.com/unimart/unimart-api/internal/domain/user"
	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/middleware"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/events"
	"github.com/unimart/unimart-api/internal/pkg/idempotency"
	"github.com/unimart/unimart-api/internal/pkg/jwt"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	pkgresponse "github.com/unimart/unimart-api/internal/pkg/response"
	"github.com/unimart/unimart-api/internal/pkg/storage"
)

const producerName = "unimart-api"

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: producerName})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting UniMart API")

	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DatabaseMaxConns
	pool.MaxIdleConns = cfg.DatabaseMaxConns / 2
	db, err := database.NewPostgres(cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	rdb, err := database.NewRedis(context.Background(), database.RedisConfig{URL: cfg.RedisURL, PoolSize: 50, Optional: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	st, err := storage.New(storage.Config{
		Driver: cfg.StorageDriver,
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		LocalPath: cfg.LocalStoragePath,
		LocalURL:  cfg.LocalStorageURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}

	// ---------- Events ----------
	hub := realtime.NewHub(rdb)
	go hub.Run()
	defer hub.Shutdown()

	publishers := events.Multi{hub}
	if rdb != nil {
		publishers = append(publishers, events.NewRedisPublisher(rdb, producerName))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, producerName, 1024)
		kafkaPub.Start()
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
	}

	// ---------- Services ----------
	txm := database.NewTransactor(db)
	userRepo := user.NewRepository(db)

	wallets := wallet.NewService(wallet.NewRepository(db), txm, wallet.TopUpPolicy{
		Min:     cfg.TopUpMin,
		Max:     cfg.TopUpMax,
		Methods: cfg.TopUpMethods,
	}, publishers)
	catalog := product.NewCatalog(product.NewRepository(db))

	orderRepo := order.NewRepository(db)
	coordinator := order.NewCoordinator(orderRepo, txm, catalog, wallets,
		order.WithCancelWindow(cfg.CancelWindow),
		order.WithPublisher(publishers),
	)
	history := order.NewHistory(orderRepo, st, cfg.CancelWindow)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTIssuer)

	r := newRouter(routerDeps{
		cfg:         cfg,
		jwt:         jwtService,
		users:       userRepo,
		idempotency: idempotencyStore(rdb, cfg.IdempotencyTTL),
		wallet:      wallet.NewHandler(wallets),
		product:     product.NewHandler(catalog, st),
		order:       order.NewHandler(coordinator, history, st),
		realtime:    realtime.NewHandler(hub, cfg.AllowedOrigins),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// idempotencyStore returns a literal nil interface without Redis so the
// middleware passes requests through.
func idempotencyStore(rdb *redis.Client, ttl time.Duration) idempotency.Store {
	if rdb == nil {
		log.Warn().Msg("Idempotency keys disabled: Redis not configured")
		return nil
	}
	return idempotency.NewRedisStore(rdb, ttl)
}

type routerDeps struct {
	cfg         *config.Config
	jwt         *jwt.Service
	users       middleware.UserLookup
	idempotency idempotency.Store

	wallet   *wallet.Handler
	product  *product.Handler
	order    *order.Handler
	realtime *realtime.Handler
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(d.cfg.AllowedOrigins))

	auth := middleware.Auth(d.jwt)
	student := func(next http.Handler) http.Handler {
		return auth(middleware.RequireVerifiedStudent(d.users)(next))
	}
	idem := middleware.Idempotency(d.idempotency)

	// WebSocket stays outside the timeout and compression middleware.
	r.Mount("/ws", d.realtime.Routes(auth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})

	if d.cfg.StorageDriver == "local" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(d.cfg.LocalStoragePath)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/api/v1", func(r chi.Router) {
			r.Mount("/products", d.product.Routes(student))
			r.Mount("/orders", d.order.Routes(student, idem))
			r.Mount("/wallet", d.wallet.Routes(student, idem))
			r.Mount("/admin/orders", d.order.AdminRoutes(auth, middleware.RequireAdmin()))
		})
	})

	return r
}
