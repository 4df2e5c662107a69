package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/config"
	"fitpass_backend/internal/database"
	"fitpass_backend/internal/geocoding"
	"fitpass_backend/internal/metrics"
	"fitpass_backend/internal/middleware"
	"fitpass_backend/internal/router"
	"fitpass_backend/internal/scheduler"
	"fitpass_backend/internal/services"
	"fitpass_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	if err := run(); err != nil {
		utils.LogError(err, "Server exited")
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == "" {
		utils.LogWarn(nil, "JWT_SECRET is not set, using the development secret")
	}
	utils.InitJWT(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	loc := cfg.Location()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	plans, err := config.LoadPlans(cfg.PlansFile)
	if err != nil {
		return fmt.Errorf("loading membership plans: %w", err)
	}

	var cache geocoding.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			utils.LogWarn(err, "Redis unreachable, geocoding results will not be cached", map[string]interface{}{"addr": cfg.Redis.Addr})
		} else {
			cache = geocoding.NewRedisCache(rdb)
		}
		cancel()
	}
	geocoder := geocoding.NewFromConfig(cfg.Geocoding, cache)

	// Nil interfaces switch the integrations off inside the services.
	var addressGeocoder services.AddressGeocoder
	if geocoder.Enabled() {
		addressGeocoder = geocoder
	} else {
		utils.LogWarn(nil, "No geocoding provider configured, addresses will be stored without coordinates")
	}
	var gateway billing.Gateway
	if cfg.Stripe.Enabled() {
		gateway = billing.NewStripeGateway(cfg.Stripe)
	} else {
		utils.LogWarn(nil, "STRIPE_SECRET_KEY is not set, billing endpoints are disabled")
	}

	svc := router.NewServices(db, router.Options{
		Gateway:      gateway,
		Geocoder:     addressGeocoder,
		CancelWindow: cfg.CancelWindow,
		Location:     loc,
	})
	if err := svc.Memberships.SyncPlans(plans); err != nil {
		return fmt.Errorf("syncing membership plans: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(ctx, 10*time.Minute)

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), utils.GinLogger(), metrics.GinMiddleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	router.Setup(engine, svc, geocoder, limiter)

	jobs := scheduler.New(cfg.BillingCronSpec, loc, svc.Memberships, svc.DailyAccess, svc.News)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port, "timezone": loc.String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server shutdown failed")
	}
	jobs.Stop()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving http: %w", err)
	default:
		return nil
	}
}
