package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/api/routes"
	"github.com/wareline/wareline-backend/internal/adjustments"
	"github.com/wareline/wareline-backend/internal/auth"
	"github.com/wareline/wareline-backend/internal/deliveries"
	"github.com/wareline/wareline-backend/internal/ledger"
	"github.com/wareline/wareline-backend/internal/products"
	"github.com/wareline/wareline-backend/internal/receipts"
	"github.com/wareline/wareline-backend/internal/sequence"
	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/internal/transfers"
	"github.com/wareline/wareline-backend/internal/users"
	"github.com/wareline/wareline-backend/internal/warehouses"
	"github.com/wareline/wareline-backend/pkg/auth/session"
	"github.com/wareline/wareline-backend/pkg/config"
	"github.com/wareline/wareline-backend/pkg/db"
	"github.com/wareline/wareline-backend/pkg/logger"
	"github.com/wareline/wareline-backend/pkg/metrics"
	"github.com/wareline/wareline-backend/pkg/migrate"
	"github.com/wareline/wareline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	movementMetrics := metrics.NewMovementMetrics(registry)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	stockRepo := stock.NewRepository(conn)

	stockStore, err := stock.NewStore(stockRepo)
	if err != nil {
		fatal(logg, "failed to create stock store", err)
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		fatal(logg, "failed to create ledger service", err)
	}
	allocator, err := sequence.NewAllocator(conn)
	if err != nil {
		fatal(logg, "failed to create sequence allocator", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner: dbClient,
		UserRepoFactory: func(tx *gorm.DB) auth.RegisterUserRepository {
			return users.NewRepository(tx)
		},
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fatal(logg, "failed to create register service", err)
	}

	warehouseRepo := warehouses.NewRepository(conn)
	productRepo := products.NewRepository(conn)

	productService, err := products.NewService(productRepo, dbClient, stockRepo, warehouseRepo, cfg.FeatureFlags.SeedStock)
	if err != nil {
		fatal(logg, "failed to create product service", err)
	}
	warehouseService, err := warehouses.NewService(warehouseRepo, dbClient, stockRepo, productRepo, cfg.FeatureFlags.SeedStock)
	if err != nil {
		fatal(logg, "failed to create warehouse service", err)
	}

	receiptService, err := receipts.NewService(receipts.NewRepository(conn), dbClient, stockStore, ledgerService, allocator, movementMetrics)
	if err != nil {
		fatal(logg, "failed to create receipt service", err)
	}
	deliveryService, err := deliveries.NewService(deliveries.NewRepository(conn), dbClient, stockStore, ledgerService, allocator, movementMetrics)
	if err != nil {
		fatal(logg, "failed to create delivery service", err)
	}
	transferService, err := transfers.NewService(transfers.NewRepository(conn), dbClient, stockStore, ledgerService, allocator, movementMetrics)
	if err != nil {
		fatal(logg, "failed to create transfer service", err)
	}
	adjustmentService, err := adjustments.NewService(adjustments.NewRepository(conn), dbClient, stockStore, ledgerService, allocator, movementMetrics)
	if err != nil {
		fatal(logg, "failed to create adjustment service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			SessionChecker: sessionManager,

			AuthService:     authService,
			RegisterService: registerService,
			UserRepo:        userRepo,

			ProductService:   productService,
			WarehouseService: warehouseService,
			StockStore:       stockStore,
			StockRepo:        stockRepo,
			LedgerService:    ledgerService,

			ReceiptService:    receiptService,
			DeliveryService:   deliveryService,
			TransferService:   transferService,
			AdjustmentService: adjustmentService,

			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
