package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealerops/partstrail-backend/api/controllers"
	"github.com/dealerops/partstrail-backend/api/middleware"
	"github.com/dealerops/partstrail-backend/internal/directory"
	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/internal/mailer"
	"github.com/dealerops/partstrail-backend/internal/notifications"
	"github.com/dealerops/partstrail-backend/internal/remarks"
	"github.com/dealerops/partstrail-backend/pkg/config"
	"github.com/dealerops/partstrail-backend/pkg/db"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/metrics"
	"github.com/dealerops/partstrail-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	users directory.Service,
	ledgerSvc ledger.Service,
	notificationsSvc notifications.Service,
	remarksSvc remarks.Service,
	mail mailer.Mailer,
	uploadMetrics *metrics.UploadMetrics,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(dbP, redisClient)))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Principal(users, logg))

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.PartsList(ledgerSvc, logg))
			r.Get("/archived", controllers.PartsArchived(ledgerSvc, logg))
			r.Get("/search", controllers.PartsSearch(ledgerSvc, logg))
			r.Post("/receive", controllers.PartsReceive(ledgerSvc, notificationsSvc, users, mail, logg))
			r.With(middleware.RequireAnyRole(logg,
				enums.UserRoleAdmin, enums.UserRoleSuperAdmin, enums.UserRoleAccounting,
			)).Post("/bulk-post", controllers.PartsBulkPost(ledgerSvc, logg))

			r.Route("/{partId}", func(r chi.Router) {
				r.Get("/", controllers.PartDetail(ledgerSvc, logg))
				r.Post("/archive", controllers.PartArchive(ledgerSvc, logg))
				r.Post("/restore", controllers.PartRestore(ledgerSvc, logg))
				r.Patch("/dates", controllers.PartSetDates(ledgerSvc, logg))
				r.Post("/log", controllers.PartAddLog(ledgerSvc, logg))
				r.Post("/remove-from-shipment", controllers.ShipmentRemoveItem(ledgerSvc, logg))
				r.Get("/remarks", controllers.RemarksForPart(remarksSvc, logg))
			})
		})

		r.Post("/uploads/{feed}", controllers.FeedUpload(ledgerSvc, notificationsSvc, users, mail, uploadMetrics, logg))

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", controllers.ShipmentList(ledgerSvc, logg))
			r.Get("/{shipmentRef}", controllers.ShipmentDetail(ledgerSvc, logg))
			r.Patch("/{shipmentRef}/eta", controllers.ShipmentUpdateETA(ledgerSvc, logg))
		})

		r.Route("/remarks", func(r chi.Router) {
			r.Post("/", controllers.RemarkAdd(remarksSvc, logg))
			r.Get("/reminders", controllers.RemarkReminders(remarksSvc, logg))
			r.Post("/{remarkId}/read", controllers.RemarkMarkRead(remarksSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsSvc, users, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsSvc, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsSvc, users, logg))
		})

		r.With(middleware.RequireAnyRole(logg,
			enums.UserRoleAdmin, enums.UserRoleSuperAdmin, enums.UserRoleAccounting,
		)).Get("/dashboard", controllers.Dashboard(ledgerSvc, logg))
	})

	return r
}
