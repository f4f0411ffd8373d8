package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashtrade/internal/config"
	"flashtrade/internal/middleware"
	"flashtrade/internal/repository"
	"flashtrade/internal/service"
	"flashtrade/internal/util"
	"flashtrade/pkg/jwt"
	"flashtrade/pkg/logger"
	"flashtrade/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.GetLogger()

	log.Info("Starting flashtrade realtime backend...")
	log.Infof("Environment: %s", cfg.Server.Env)

	log.Info("Connecting to Redis...")
	redisClient, err := redis.New(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	log.Info("Redis connected")

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TokenExpire)

	// Repositories
	userRepo := repository.NewUserRepository(redisClient)
	tradeRepo := repository.NewTradeRepository(redisClient)
	priceRepo := repository.NewPriceRepository(redisClient)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := priceRepo.Seed(seedCtx, cfg.Feed.Instruments, 1000); err != nil {
		log.Fatal("Failed to seed instrument prices", err)
	}
	if err := userRepo.SeedPlatformWinRate(seedCtx, cfg.Settlement.DefaultWinRate); err != nil {
		log.Fatal("Failed to seed platform win rate", err)
	}
	cancelSeed()

	// Realtime core
	hub := service.NewHub(jwtManager, userRepo)
	priceFeed := service.NewPriceFeed(priceRepo, hub,
		cfg.Feed.TickInterval, cfg.Feed.MaxDriftPct,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	settlement := service.NewSettlementScheduler(tradeRepo, userRepo, hub,
		cfg.Settlement.TickInterval, cfg.Settlement.ReturnRatePct, cfg.Settlement.DefaultWinRate,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	liveness := service.NewLivenessMonitor(hub, cfg.Liveness.ProbeInterval, cfg.Liveness.Timeout)

	priceFeed.Start()
	settlement.Start()
	liveness.Start()
	defer func() {
		liveness.Stop()
		settlement.Stop()
		priceFeed.Stop()
	}()

	// HTTP surface: health check and the WebSocket upgrade
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx); err != nil {
			util.SendCustomError(c, http.StatusServiceUnavailable,
				util.ErrCodeInternal, "Redis connection failed")
			return
		}

		util.SendSuccess(c, gin.H{
			"status": "healthy",
			"redis":  "connected",
		})
	})

	router.GET("/ws", middleware.RateLimit(redisClient, cfg.RateLimit.RequestsPerMinute), hub.ServeWS)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Server starting on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server error", err)
	}

	log.Info("Server exited")
}
