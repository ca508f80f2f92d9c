package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"auction-house/internal/api/handlers"
	"auction-house/internal/config"
	"auction-house/internal/domain"
	"auction-house/internal/engine"
	"auction-house/internal/infrastructure/leader"
	"auction-house/internal/infrastructure/memory"
	"auction-house/internal/infrastructure/mysql"
	redisInfra "auction-house/internal/infrastructure/redis"
	"auction-house/internal/infrastructure/websocket"
	"auction-house/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting auction house")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Redis is optional: without it events stay on an in-process log and the
	// sweeper runs unelected.
	var rdb *redisClient.Client
	if cfg.Redis.Address != "" {
		rdb = redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to Redis", "address", cfg.Redis.Address)
	}

	// Store: MySQL when configured, in-memory local mode otherwise.
	var store domain.Store
	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Error("Failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			log.Error("Failed to ping MySQL", "error", err)
			os.Exit(1)
		}

		mysqlStore := mysql.NewStore(db)
		if err := mysqlStore.Migrate(ctx); err != nil {
			log.Error("Failed to migrate MySQL schema", "error", err)
			os.Exit(1)
		}
		store = mysqlStore
		log.Info("Connected to MySQL")
	} else {
		store = memory.NewStore()
		log.Info("Using in-memory store")
	}

	var events domain.EventPublisher
	if rdb != nil {
		events = redisInfra.NewEventPublisher(rdb)
	} else {
		events = memory.NewEventLog()
	}

	// Collaborators run in local custody mode; production deployments swap
	// in adapters to external registries and ledgers here.
	assets := memory.NewAssetRegistry()
	nativeLedger := memory.NewLedger()
	oracle := engine.NewPriceOracleAdapter()

	eng, err := engine.New(store, assets, oracle, events, engine.Params{
		Admin:        cfg.Engine.Admin,
		Escrow:       cfg.Engine.Escrow,
		FeeRateBps:   cfg.Engine.FeeRateBps,
		FeeRecipient: cfg.Engine.FeeRecipient,
	}, log)
	if err != nil {
		log.Error("Failed to construct engine", "error", err)
		os.Exit(1)
	}
	if err := eng.RegisterLedger(ctx, cfg.Engine.Admin, domain.MediumNative, nativeLedger); err != nil {
		log.Error("Failed to register native ledger", "error", err)
		os.Exit(1)
	}

	if authorized, err := eng.AuthorizedVersion(ctx); err == nil && authorized != "" && authorized != eng.Version() {
		log.Warn("Running logic version differs from authorized version",
			"running", eng.Version(), "authorized", authorized)
	}

	// Settlement sweeper, leader-elected when redis is available.
	var election domain.LeaderElection
	if rdb != nil {
		election = leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)
	}
	sweeper := engine.NewSettlementSweeper(eng, election, cfg.Instance.ID, cfg.Engine.Admin, log)

	// WebSocket fan-out: engine events -> redis -> connection manager. In
	// local mode the engine publishes to the in-process log only.
	connManager := websocket.NewConnectionManager(log)
	if rdb != nil {
		subscriber := redisInfra.NewEventSubscriber(rdb, log)
		go func() {
			if err := subscriber.Subscribe(context.Background(), connManager.BroadcastEvent); err != nil &&
				!errors.Is(err, context.Canceled) {
				log.Error("Event subscriber exited", "error", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(eng, log)
	adminHandler := handlers.NewAdminHandler(eng, log)
	wsHandler := websocket.NewHandler(eng, connManager, log)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.CreateAuction)
	api.GET("/auctions", auctionHandler.ListActiveAuctions)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.POST("/auctions/:id/bids", auctionHandler.PlaceBid)
	api.POST("/auctions/:id/end", auctionHandler.EndAuction)
	api.POST("/auctions/:id/cancel", auctionHandler.CancelAuction)
	api.POST("/auctions/:id/withdrawals", auctionHandler.WithdrawPendingReturn)

	admin := api.Group("/admin")
	admin.PUT("/fee-rate", adminHandler.SetFeeRate)
	admin.PUT("/fee-recipient", adminHandler.SetFeeRecipient)
	admin.POST("/prices", adminHandler.UpdatePrice)
	admin.POST("/recoveries", adminHandler.EmergencyAssetRecovery)
	admin.POST("/upgrades", adminHandler.AuthorizeUpgrade)

	e.GET("/ws/auctions/:id", wsHandler.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-house",
			"version":   eng.Version(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	if err := sweeper.Start(context.Background(), cfg.Engine.SweepInterval.String()); err != nil {
		log.Error("Failed to start settlement sweeper", "error", err)
		os.Exit(1)
	}

	if election != nil {
		go func() {
			for {
				became, err := election.BecomeLeader(context.Background(), cfg.Instance.ID)
				if err != nil {
					log.Error("Failed to attempt leadership", "error", err)
					time.Sleep(5 * time.Second)
					continue
				}
				if became {
					log.Info("Became sweeper leader", "instance_id", cfg.Instance.ID)
				}
				time.Sleep(10 * time.Second)
			}
		}()
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction house...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	if election != nil {
		if err := election.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
			log.Error("Failed to release leadership", "error", err)
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction house stopped")
}
