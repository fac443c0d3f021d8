package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"prizepool_service/internal/api"
	"prizepool_service/internal/campaign"
	"prizepool_service/internal/config"
	"prizepool_service/internal/database"
	"prizepool_service/internal/gameplay"
	"prizepool_service/internal/jobs"
	"prizepool_service/internal/logger"
	"prizepool_service/internal/payment"
	"prizepool_service/internal/payout"
	"prizepool_service/internal/prizepool"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog := logger.New(cfg.App.Environment, cfg.App.Name, cfg.App.LogLevel)
	defer func() { _ = zapLog.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		err = database.Migrate(db,
			&campaign.Campaign{}, &campaign.Transaction{},
			&gameplay.PuzzleAttempt{}, &gameplay.UserStats{},
			&prizepool.DailyPrizePool{},
			&payout.Payout{}, &payout.Leaderboard{},
		)
		if err != nil {
			zapLog.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	loc := cfg.App.Location()
	gateway := payment.NewPaystackGateway(cfg.Payment.BaseURL, cfg.Payment.SecretKey, cfg.Payment.CallbackURL)

	campaignRepo := campaign.NewRepository(db)
	gameplayRepo := gameplay.NewRepository(db)

	campaignService := campaign.NewService(campaignRepo, gateway)
	gameplayService := gameplay.NewService(gameplayRepo, campaignRepo)
	poolService := prizepool.NewService(db, prizepool.NewRepository(db), campaignRepo, loc)
	payoutService := payout.NewService(db, payout.NewRepository(db), gameplayRepo, poolService, loc)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())
	api.NewHandler(db, campaignService, gameplayService, poolService, payoutService, loc).
		RegisterRoutes(r, cfg.Auth.AdminSecret)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	var worker *asynq.Server
	if cfg.Scheduler.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		client := asynq.NewClientFromRedisClient(rdb)
		defer client.Close()

		worker = asynq.NewServer(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, asynq.Config{
			Concurrency:    cfg.Scheduler.Concurrency,
			RetryDelayFunc: asynq.DefaultRetryDelayFunc,
			Queues: map[string]int{
				jobs.QueueCritical: 6,
				"default":          3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				zap.L().Error("asynq task failed", zap.String("task_type", task.Type()), zap.Error(err))
			}),
		})

		mux := asynq.NewServeMux()
		jobs.NewHandlers(poolService, payoutService, campaignService, loc).Register(mux)
		if err := worker.Start(mux); err != nil {
			zapLog.Fatal("failed to start task worker", zap.Error(err))
		}

		go jobs.NewScheduler(client, loc).Run(ctx)
	}

	go func() {
		zapLog.Info("starting prize pool service", zap.String("addr", server.Addr), zap.String("env", cfg.App.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		worker.Shutdown()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zapLog.Info("server exited gracefully")
}
