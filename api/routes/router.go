package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exrstore/exr-backend/api/controllers"
	"github.com/exrstore/exr-backend/api/middleware"
	couponsvc "github.com/exrstore/exr-backend/internal/coupons"
	internalorders "github.com/exrstore/exr-backend/internal/orders"
	refundsvc "github.com/exrstore/exr-backend/internal/refunds"
	settingssvc "github.com/exrstore/exr-backend/internal/settings"
	walletsvc "github.com/exrstore/exr-backend/internal/wallet"
	"github.com/exrstore/exr-backend/pkg/config"
	"github.com/exrstore/exr-backend/pkg/db"
	"github.com/exrstore/exr-backend/pkg/enums"
	"github.com/exrstore/exr-backend/pkg/logger"
	"github.com/exrstore/exr-backend/pkg/metrics"
	"github.com/exrstore/exr-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	couponsService couponsvc.Service,
	ordersService internalorders.Service,
	walletService walletsvc.Service,
	refundsService refundsvc.Service,
	settingsService settingssvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// A nil *redis.Client must not become a non-nil interface downstream.
	var cachePinger db.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		cachePinger = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cachePinger, logg))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/api/v1/coupons/apply", controllers.ApplyCoupon(couponsService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			r.Post("/{orderId}/refund-request", controllers.RequestRefund(refundsService, logg))
		})

		r.Get("/wallet", controllers.WalletStatement(walletService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.AccountRoleAdmin, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(ordersService, logg))
				r.Get("/refund-analytics", controllers.AdminRefundAnalytics(refundsService, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(ordersService, logg))
				r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(ordersService, logg))
				r.Post("/{orderId}/refund/approve", controllers.AdminApproveRefund(refundsService, logg))
				r.Post("/{orderId}/refund/reject", controllers.AdminRejectRefund(refundsService, logg))
			})

			r.Post("/accounts/{accountId}/wallet-credit", controllers.AdminCreditWallet(walletService, logg))

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", controllers.AdminGetSettings(settingsService, logg))
				r.Patch("/", controllers.AdminUpdateSettings(settingsService, logg))
			})
		})
	})

	return r
}
