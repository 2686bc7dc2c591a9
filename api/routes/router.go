package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wareline/wareline-backend/api/controllers"
	"github.com/wareline/wareline-backend/api/middleware"
	adjustmentsvc "github.com/wareline/wareline-backend/internal/adjustments"
	authsvc "github.com/wareline/wareline-backend/internal/auth"
	deliverysvc "github.com/wareline/wareline-backend/internal/deliveries"
	ledgersvc "github.com/wareline/wareline-backend/internal/ledger"
	productsvc "github.com/wareline/wareline-backend/internal/products"
	receiptsvc "github.com/wareline/wareline-backend/internal/receipts"
	stocksvc "github.com/wareline/wareline-backend/internal/stock"
	transfersvc "github.com/wareline/wareline-backend/internal/transfers"
	"github.com/wareline/wareline-backend/internal/users"
	warehousesvc "github.com/wareline/wareline-backend/internal/warehouses"
	"github.com/wareline/wareline-backend/pkg/auth/session"
	"github.com/wareline/wareline-backend/pkg/config"
	"github.com/wareline/wareline-backend/pkg/db"
	"github.com/wareline/wareline-backend/pkg/enums"
	"github.com/wareline/wareline-backend/pkg/logger"
	"github.com/wareline/wareline-backend/pkg/redis"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker

	AuthService     authsvc.Service
	RegisterService authsvc.RegisterService
	UserRepo        *users.Repository

	ProductService   productsvc.Service
	WarehouseService warehousesvc.Service
	StockStore       stocksvc.Store
	StockRepo        stocksvc.Repository
	LedgerService    ledgersvc.Service

	ReceiptService    receiptsvc.Service
	DeliveryService   deliverysvc.Service
	TransferService   transfersvc.Service
	AdjustmentService adjustmentsvc.Service

	MetricsHandler http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
			r.Get("/me", controllers.AuthMe(deps.UserRepo, logg))
			r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
			r.With(
				middleware.RequireRole(logg, enums.UserRoleAdmin),
				middleware.Idempotency(deps.Redis, logg),
			).Post("/register", controllers.AuthRegister(deps.RegisterService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		manageOnly := middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager)
		adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)
		scoped := middleware.RequireWarehouseScope(logg)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.ProductService, logg))
			r.Get("/{productID}", controllers.GetProduct(deps.ProductService, logg))
			r.With(manageOnly).Post("/", controllers.CreateProduct(deps.ProductService, logg))
			r.With(manageOnly).Patch("/{productID}", controllers.UpdateProduct(deps.ProductService, logg))
			r.With(adminOnly).Delete("/{productID}", controllers.DeleteProduct(deps.ProductService, logg))
		})

		r.Route("/warehouses", func(r chi.Router) {
			r.Get("/", controllers.ListWarehouses(deps.WarehouseService, logg))
			r.Get("/{warehouseID}", controllers.GetWarehouse(deps.WarehouseService, logg))
			r.With(adminOnly).Post("/", controllers.CreateWarehouse(deps.WarehouseService, logg))
			r.With(adminOnly).Patch("/{warehouseID}", controllers.UpdateWarehouse(deps.WarehouseService, logg))
			r.With(adminOnly).Delete("/{warehouseID}", controllers.DeleteWarehouse(deps.WarehouseService, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", controllers.ListStock(deps.StockStore, logg))
			r.With(manageOnly).Get("/low", controllers.ListLowStock(deps.StockRepo, logg))
			r.Get("/{productID}", controllers.GetProductStock(deps.StockStore, logg))
		})

		r.Get("/ledger", controllers.ListLedger(deps.LedgerService, logg))

		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", controllers.ListReceipts(deps.ReceiptService, logg))
			r.Get("/{receiptID}", controllers.GetReceipt(deps.ReceiptService, logg))
			r.With(scoped).Post("/", controllers.CreateReceipt(deps.ReceiptService, logg))
			r.With(scoped).Patch("/{receiptID}", controllers.UpdateReceipt(deps.ReceiptService, logg))
			r.With(scoped, manageOnly).Post("/{receiptID}/validate", controllers.ValidateReceipt(deps.ReceiptService, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", controllers.ListDeliveries(deps.DeliveryService, logg))
			r.Get("/{deliveryID}", controllers.GetDelivery(deps.DeliveryService, logg))
			r.With(scoped).Post("/", controllers.CreateDelivery(deps.DeliveryService, logg))
			r.With(scoped).Post("/{deliveryID}/pick", controllers.PickDelivery(deps.DeliveryService, logg))
			r.With(scoped).Post("/{deliveryID}/pack", controllers.PackDelivery(deps.DeliveryService, logg))
			r.With(scoped, manageOnly).Post("/{deliveryID}/validate", controllers.ValidateDelivery(deps.DeliveryService, logg))
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", controllers.ListTransfers(deps.TransferService, logg))
			r.Get("/{transferID}", controllers.GetTransfer(deps.TransferService, logg))
			r.With(scoped).Post("/", controllers.CreateTransfer(deps.TransferService, logg))
			r.With(scoped).Post("/{transferID}/dispatch", controllers.DispatchTransfer(deps.TransferService, logg))
			r.With(scoped, manageOnly).Post("/{transferID}/receive", controllers.ReceiveTransfer(deps.TransferService, logg))
		})

		r.Route("/adjustments", func(r chi.Router) {
			r.Get("/", controllers.ListAdjustments(deps.AdjustmentService, logg))
			r.Get("/{adjustmentID}", controllers.GetAdjustment(deps.AdjustmentService, logg))
			r.With(scoped).Post("/", controllers.CreateAdjustment(deps.AdjustmentService, logg))
			r.With(scoped, manageOnly).Post("/{adjustmentID}/validate", controllers.ValidateAdjustment(deps.AdjustmentService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", controllers.ListUsers(deps.UserRepo, logg))
			r.Get("/{userID}", controllers.GetUser(deps.UserRepo, logg))
			r.Patch("/{userID}/role", controllers.UpdateUserRole(deps.UserRepo, logg))
			r.Patch("/{userID}/warehouse", controllers.UpdateUserWarehouse(deps.UserRepo, logg))
			r.Patch("/{userID}/active", controllers.UpdateUserActive(deps.UserRepo, logg))
			r.Delete("/{userID}", controllers.DeleteUser(deps.UserRepo, logg))
		})
	})

	return r
}
