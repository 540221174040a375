package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfigueredo/vendora-backend/api/controllers"
	"github.com/mfigueredo/vendora-backend/api/middleware"
	"github.com/mfigueredo/vendora-backend/internal/notifications"
	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/returns"
	"github.com/mfigueredo/vendora-backend/internal/settlement"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	"github.com/mfigueredo/vendora-backend/pkg/db"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	Redis         *redis.Client
	Orders        orders.Service
	Wallet        wallet.Service
	Returns       returns.Service
	Notifications notifications.Service
	Sweeper       *settlement.Sweeper
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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.Redis))
	})

	withdrawalPolicy := middleware.RateLimitPolicy{
		Name:   "withdrawal",
		Window: cfg.RateLimit.WithdrawalWindow,
		Limit:  cfg.RateLimit.WithdrawalLimit,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/{orderRef}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderRef}/status", controllers.ChangeOrderStatus(deps.Orders, logg))
			r.Post("/{orderRef}/cancellation-request", controllers.RequestOrderCancellation(deps.Orders, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.GetWalletBalance(deps.Wallet, logg))
			r.Get("/transactions", controllers.ListWalletTransactions(deps.Wallet, logg))
			r.Route("/withdrawals", func(r chi.Router) {
				r.Get("/", controllers.ListWithdrawals(deps.Wallet, logg))
				r.With(middleware.RateLimit(withdrawalPolicy, deps.Redis, logg)).
					Post("/", controllers.RequestWithdrawal(deps.Wallet, logg))
			})
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.ListReturns(deps.Returns, logg))
			r.Post("/", controllers.CreateReturn(deps.Returns, logg))
			r.Get("/{returnID}", controllers.GetReturn(deps.Returns, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.ListWithdrawals(deps.Wallet, logg))
			r.Post("/{withdrawalID}/approve", controllers.ApproveWithdrawal(deps.Wallet, logg))
			r.Post("/{withdrawalID}/reject", controllers.RejectWithdrawal(deps.Wallet, logg))
		})
		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.ListReturns(deps.Returns, logg))
			r.Post("/{returnID}/status", controllers.UpdateReturnStatus(deps.Returns, logg))
			r.Post("/{returnID}/refund", controllers.ProcessReturnRefund(deps.Returns, logg))
		})
		r.Post("/settlement/run", controllers.RunSettlement(deps.Sweeper, logg))
	})

	return r
}
