package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/comicink/backend-tees/internal/auth"
	"github.com/comicink/backend-tees/internal/cart"
	"github.com/comicink/backend-tees/internal/catalog"
	"github.com/comicink/backend-tees/internal/checkout"
	"github.com/comicink/backend-tees/internal/common"
	"github.com/comicink/backend-tees/internal/config"
	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/health"
	"github.com/comicink/backend-tees/internal/money"
	"github.com/comicink/backend-tees/internal/obs"
	"github.com/comicink/backend-tees/internal/order"
	"github.com/comicink/backend-tees/internal/payment"
	"github.com/comicink/backend-tees/internal/pricing"
	"github.com/comicink/backend-tees/internal/ratelimit"
	"github.com/comicink/backend-tees/internal/security"
	"github.com/comicink/backend-tees/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics("comicink", nil)
	httpMetrics := obs.NewHTTPMetrics("comicink", nil, nil)

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "comicink-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("disconnect mongo")
		}
	}()
	if err := store.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("ensure indexes")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New(validator.WithRequiredStructEnabled())

	pricingCfg := pricing.Config{
		TaxBps:                cfg.TaxBps,
		StandardRate:          money.Amount(cfg.StandardShippingRate),
		ExpressRate:           money.Amount(cfg.ExpressShippingRate),
		FreeShippingThreshold: money.Amount(cfg.FreeShippingThreshold),
	}

	discountSvc := &discount.Service{S: store.NewDiscountStore(db)}
	catalogSvc := &catalog.Service{
		S:     store.NewProductStore(db),
		Cache: catalog.NewCache(redisClient, cfg.CatalogTTL),
	}
	cartSvc := &cart.Service{
		S:       store.NewCartStore(db),
		Coupons: discountSvc,
		TTL:     cfg.CartTTL,
	}
	orderStore := store.NewOrderStore(db)
	gateway := &payment.PayPal{
		BaseURL:  cfg.PayPalBaseURL,
		ClientID: cfg.PayPalClientID,
		Secret:   cfg.PayPalSecret,
	}
	checkoutSvc := &checkout.Service{
		Carts:    cartSvc,
		Catalog:  catalogSvc,
		Coupons:  discountSvc,
		Orders:   orderStore,
		Gateway:  gateway,
		Pricing:  pricingCfg,
		Currency: cfg.Currency,
		Validate: validate,
		Log:      logger,
	}
	paymentSvc := &payment.Service{
		Orders:  orderStore,
		Gateway: gateway,
		Coupons: discountSvc,
		Tasks:   taskClient,
		Log:     logger,
	}

	cartHandler := &cart.Handler{Svc: cartSvc}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}
	discountHandler := &discount.Handler{Svc: discountSvc}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}
	paymentHandler := &payment.Handler{Svc: paymentSvc}
	orderHandler := &order.Handler{S: orderStore}

	authMiddleware := auth.Middleware{Verifier: auth.Verifier{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	validateLimiter, err := ratelimit.NewRedisLimiter(redisClient, cfg.ValidateLimit, "rl:coupon")
	if err != nil {
		logger.Fatal().Err(err).Msg("build rate limiter")
	}

	healthHandler := health.Handler{Checker: readinessChecker{mongo: mongoClient, redis: redisClient}}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	if cfg.AppEnv == "development" {
		r.Route("/debug/pprof", func(d chi.Router) {
			d.Get("/", pprof.Index)
			d.Get("/profile", pprof.Profile)
			d.Get("/trace", pprof.Trace)
			d.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
				pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
			})
		})
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Mount("/products", catalogHandler.Routes())

		v.With(ratelimit.Middleware(validateLimiter)).
			Mount("/discounts", discountHandler.PublicRoutes())

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.Mount("/cart", cartHandler.Routes())
			authR.Mount("/orders", orderHandler.Routes())
			authR.With(idem.Middleware).Post("/checkout", checkoutHandler.Checkout)
			authR.With(idem.Middleware).Mount("/payments", paymentHandler.Routes())
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)
			admin.Mount("/discounts", discountHandler.AdminRoutes())
		})
	})

	handler := otelhttp.NewHandler(r, "comicink-api")

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
		logger.Info().Msg("server shutdown complete")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	mongo *mongo.Client
	redis *redis.Client
}

func (c readinessChecker) PingStore(ctx context.Context, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.mongo.Ping(pctx, readpref.Primary())
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(pctx).Err()
}
