package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-gin-ticket-ledger/config"
	"go-gin-ticket-ledger/internal/cache"
	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/database"
	"go-gin-ticket-ledger/internal/handler"
	"go-gin-ticket-ledger/internal/queue"
	"go-gin-ticket-ledger/internal/repository"
	"go-gin-ticket-ledger/internal/repository/memory"
	"go-gin-ticket-ledger/internal/service"
	"go-gin-ticket-ledger/internal/worker"
	"go-gin-ticket-ledger/migrations"
	"go-gin-ticket-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func main() {
	app := cli.NewApp()
	app.Name = "ticket-ledger"
	app.Usage = "event ticketing ledger with escrow, resale marketplace and loyalty tiers"
	app.Action = serve
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "start the HTTP API and the notification indexer",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "apply database migrations and exit",
			Action: migrate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.L.Fatal("ledger exited", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.L.Warn("invalid log level, keeping default", zap.String("level", cfg.Log.Level))
	}
	return cfg, nil
}

func migrate(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := database.InitDatabase(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.L.Info("migrations applied")
	return nil
}

func serve(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 帳本儲存
	clk := clock.NewSystem()
	var repos *repository.Repositories
	switch cfg.Ledger.Store {
	case config.StoreBackendPostgres:
		pool, err := database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer pool.Close()
		if err := migrations.Apply(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		repos = repository.NewPostgresRepositories(pool)
	default:
		repos = memory.NewStore(clk).Repositories()
		logger.L.Warn("using in-memory ledger store, state is lost on restart")
	}

	// 2. Redis：通知隊列與售完閘門共用
	var rdb *redis.Client
	if cfg.Ledger.Queue == config.QueueBackendRedis || cfg.Ledger.InventoryGate {
		rdb, err = database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("initialize redis: %w", err)
		}
		defer rdb.Close()
	}

	var notifications queue.NotificationQueue
	switch cfg.Ledger.Queue {
	case config.QueueBackendRedis:
		notifications, err = queue.NewRedisStreamNotificationQueue(ctx, rdb, cfg.Stream.ConsumerID, queue.RedisStreamConfig{
			ClaimMinIdleTime:   cfg.Stream.ClaimMinIdleTime,
			MaxRetryCount:      cfg.Stream.MaxRetryCount,
			ReadGroupBlockTime: cfg.Stream.ReadGroupBlockTime,
		})
		if err != nil {
			return fmt.Errorf("initialize notification queue: %w", err)
		}
	default:
		notifications = queue.NewMemoryNotificationQueue(cfg.Ledger.QueueBuffer)
	}

	deps := service.LedgerDeps{Repos: repos, Queue: notifications, Clock: clk}
	if cfg.Ledger.InventoryGate {
		deps.Inventory = cache.NewRedisEventInventoryManager(rdb)
	}
	ledger := service.NewLedger(deps)

	if err := ledger.Events.WarmUpInventory(ctx); err != nil {
		return fmt.Errorf("warm up inventory: %w", err)
	}

	// 3. 通知索引 worker
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	workerDone, err := worker.NewNotificationWorker(ledger.Notifications, notifications).Start(workerCtx)
	if err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}

	// 4. HTTP
	var idempotency *handler.Idempotency
	if cfg.Ledger.IdempotencyCacheSize > 0 {
		idempotency, err = handler.NewIdempotency(cfg.Ledger.IdempotencyCacheSize)
		if err != nil {
			return fmt.Errorf("create idempotency cache: %w", err)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterLedgerRoutes(router, ledger, idempotency)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.L.Info("ledger listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Ledger.Store),
			zap.String("queue", cfg.Ledger.Queue),
			zap.Bool("inventory_gate", cfg.Ledger.InventoryGate))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.L.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("http shutdown failed", zap.Error(err))
	}

	// HTTP 停止後才停 worker，讓最後一批通知有機會寫入
	cancelWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.L.Warn("notification worker did not stop in time")
	}
	_ = logger.L.Sync()
	return nil
}
