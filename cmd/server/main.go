package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/shop-backend/config"
	"github.com/ErlanBelekov/shop-backend/internal/email"
	"github.com/ErlanBelekov/shop-backend/internal/health"
	"github.com/ErlanBelekov/shop-backend/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/shop-backend/internal/log"
	"github.com/ErlanBelekov/shop-backend/internal/maintenance"
	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/ErlanBelekov/shop-backend/internal/ratelimit"
	"github.com/ErlanBelekov/shop-backend/internal/security"
	httptransport "github.com/ErlanBelekov/shop-backend/internal/transport/http"
	"github.com/ErlanBelekov/shop-backend/internal/transport/http/handler"
	"github.com/ErlanBelekov/shop-backend/internal/transport/http/middleware"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	// Magic links and refresh tokens hash under separate derived keys.
	magicHasher, err := security.NewHMACHasher(cfg.HashSecret(), security.NamespaceMagicLink)
	if err != nil {
		stop()
		log.Fatalf("magic link hasher: %v", err)
	}
	refreshHasher, err := security.NewHMACHasher(cfg.HashSecret(), security.NamespaceRefreshToken)
	if err != nil {
		stop()
		log.Fatalf("refresh token hasher: %v", err)
	}

	// Auth
	limiterStore := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(limiterStore, cfg.MagicLinkRateLimit())
	sender := email.NewSender(email.SenderConfig{
		Env:      cfg.Env,
		APIKey:   cfg.ResendAPIKey,
		Identity: email.Identity{From: cfg.ResendFrom, ReplyTo: cfg.ResendReplyTo},
	}, logger)
	notifier := email.NewMagicLinkNotifier(sender, cfg.FrontendBaseURL, cfg.MagicLinkTTL(), logger)

	authUsecase := usecase.NewAuthUsecase(store, magicHasher, limiter, notifier, cfg.MagicLinkTTL(), logger)
	sessionUsecase := usecase.NewSessionUsecase(store, refreshHasher, usecase.SessionConfig{
		JWTKey:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	}, logger)

	// Shop
	userUsecase := usecase.NewUserUsecase(store)
	cartUsecase := usecase.NewCartUsecase(store)
	checkoutUsecase := usecase.NewCheckoutUsecase(store)
	orderUsecase := usecase.NewOrderUsecase(store)

	handlers := httptransport.Handlers{
		Auth:   handler.NewAuthHandler(authUsecase, sessionUsecase, cartUsecase, logger),
		Me:     handler.NewMeHandler(userUsecase, logger),
		Cart:   handler.NewCartHandler(cartUsecase, logger),
		Orders: handler.NewOrderHandler(checkoutUsecase, orderUsecase, logger),
		Admin:  handler.NewAdminHandler(orderUsecase, userUsecase, logger),
	}

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Dependency{Name: "postgres", Pinger: pool})

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, handlers,
			middleware.Auth(sessionUsecase, userUsecase, logger),
			httptransport.RouterConfig{AdminAPIKey: cfg.AdminAPIKey, EnableDevEndpoints: cfg.EnableDevEndpoints},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	sched := maintenance.NewScheduler(logger)
	sweep := &maintenance.RateLimitSweep{Store: limiterStore, MaxAge: limiter.Interval()}
	if err := sched.Add(ctx, cfg.RateLimitSweepCron, sweep); err != nil {
		stop()
		log.Fatalf("maintenance: %v", err)
	}
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	<-schedDone
	notifier.Wait()
}
