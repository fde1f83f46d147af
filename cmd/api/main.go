package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"go-popup-ledger/internal/config"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/handler"
	"go-popup-ledger/internal/middleware"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/internal/service"
	"go-popup-ledger/internal/ws"
	"go-popup-ledger/pkg/database"
	"go-popup-ledger/pkg/jwt"
	"go-popup-ledger/pkg/lock"
	"go-popup-ledger/pkg/logger"
)

func main() {
	// 1. Config and logging
	cfg := config.Load()
	logg := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.ConnectDB(cfg, logg)
	if err != nil {
		logg.WithError(err).Fatal("failed to connect database")
	}
	// AutoMigrate on boot keeps dev setups simple; cmd/migrate does the same for deploys.
	if err := database.Migrate(db); err != nil {
		logg.WithError(err).Fatal("migration failed")
	}
	if err := repository.Seed(db, logg); err != nil {
		logg.WithError(err).Warn("failed to seed roles and privileges")
	}

	// 3. WebSocket hub, event fan-out and locking
	wsHub := ws.NewHub(logg)
	go wsHub.Run(ctx)

	var (
		publisher events.Publisher = wsHub
		locker    lock.Locker      = lock.NewLocalLocker()
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logg.WithError(err).Warn("redis unreachable, using in-process lock and local broadcast")
		} else {
			redisPub := events.NewRedisPublisher(rdb, cfg.EventsChannel)
			publisher = redisPub
			locker = lock.NewRedisLocker(rdb)
			go relayEvents(ctx, redisPub, wsHub, logg)
			logg.WithField("addr", cfg.RedisAddr).Info("redis connected")
		}
	}

	// 4. Dependency Injection (Wiring Layers)
	channelRepo := repository.NewChannelRepo(db)
	stockRepo := repository.NewStockRepo(db)
	requestRepo := repository.NewStockRequestRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	seqRepo := repository.NewSequenceRepo(db)
	returnRepo := repository.NewReturnRepo(db)
	eventRepo := repository.NewEventRepo(db)
	staffRepo := repository.NewStaffRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	txRunner := repository.NewTxRunner(db, logg, cfg.TxTimeout)

	ledger := service.NewStockLedger(stockRepo, eventRepo, txRunner, db, publisher, logg)
	statusService := service.NewStatusService(channelRepo, requestRepo, stockRepo, returnRepo, eventRepo, ledger, txRunner, db, publisher, logg)
	channelService := service.NewChannelService(channelRepo, staffRepo, eventRepo, txRunner, db, publisher, logg)
	requestService := service.NewStockRequestService(requestRepo, channelRepo, eventRepo, statusService, ledger, txRunner, db, publisher, logg)
	saleService := service.NewSaleService(saleRepo, channelRepo, seqRepo, eventRepo, ledger, txRunner, db, publisher, logg)
	returnService := service.NewReturnService(returnRepo, channelRepo, stockRepo, eventRepo, statusService, ledger, locker, cfg.LockTTL, txRunner, db, publisher, logg)
	dashService := service.NewDashboardService(channelRepo, saleRepo, stockRepo, db)
	staffService := service.NewStaffService(staffRepo, privilegeRepo, roleRepo, txRunner, db)

	handlers := handler.Handlers{
		Channel:      handler.NewChannelHandler(channelService, statusService, ledger),
		StockRequest: handler.NewStockRequestHandler(requestService),
		Sale:         handler.NewSaleHandler(saleService),
		Return:       handler.NewReturnHandler(returnService),
		Dashboard:    handler.NewDashboardHandler(dashService),
		Staff:        handler.NewStaffHandler(staffService),
		Role:         handler.NewRoleHandler(roleRepo, privilegeRepo),
		Warehouse:    handler.NewWarehouseHandler(ledger),
	}
	signer := jwt.NewSigner(cfg.JWTSecret, 0)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Popup Ledger v1.0",
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.Count()})
	})
	handler.RegisterRoutes(app.Group("/api/v1"), handlers, middleware.RequireAuth(signer, staffRepo, logg))

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 6. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.Address()); err != nil {
			logg.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logg.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logg.WithError(err).Fatal("Server forced to shutdown")
	}
	logg.Info("Server exited")
}

// relayEvents pushes events published by any instance to this instance's
// websocket clients.
func relayEvents(ctx context.Context, pub *events.RedisPublisher, hub *ws.Hub, logg *logrus.Logger) {
	err := pub.Subscribe(ctx, func(payload []byte) {
		if err := hub.Relay(ctx, payload); err != nil {
			logg.WithError(err).Debug("dropped relayed event")
		}
	})
	if err != nil {
		logg.WithError(err).Error("event subscription ended")
	}
}
