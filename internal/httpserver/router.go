package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keydesk/internal/auth"
	"keydesk/internal/config"
	"keydesk/internal/httpserver/handlers"
	"keydesk/internal/presence"
	"keydesk/internal/roster"
	"keydesk/internal/session"
)

func NewRouter(db *gorm.DB, gate *session.Gate, rst *roster.Roster, hub *presence.Hub, cfg config.Config, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Post("/v1/auth/login", handlers.Login(gate, cfg.JWTSecret, cfg.SessionTimeout(), lg))
	r.Get("/v1/auth/status", handlers.AuthStatus(gate))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.RequireSession(cfg.JWTSecret, gate))
		protected.Post("/v1/auth/logout", handlers.Logout(gate, lg))

		protected.Get("/v1/licenses", handlers.ListLicenses(db, lg))
		protected.Post("/v1/licenses", handlers.CreateLicense(db, rst, lg))
		protected.Get("/v1/licenses/stats", handlers.LicenseStats(db, lg))
		protected.Get("/v1/licenses/export", handlers.ExportLicenses(db, lg))
		protected.Get("/v1/licenses/{key}", handlers.GetLicense(db, lg))
		protected.Patch("/v1/licenses/{key}", handlers.UpdateLicense(db, lg))
		protected.Post("/v1/licenses/{key}/reset-hwid", handlers.ResetHWID(db, lg))
		protected.Delete("/v1/licenses/{key}", handlers.DeleteLicense(db, lg))

		protected.Post("/v1/devices/heartbeat", handlers.Heartbeat(db, hub, lg))
		protected.Get("/v1/devices", handlers.ListDevices(db, lg))
		protected.Get("/v1/devices/events", handlers.DeviceEvents(hub, lg))

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireAdmin)
			admin.Get("/v1/managers", handlers.ListManagers(rst, lg))
			admin.Post("/v1/managers", handlers.CreateManager(rst, cfg.DefaultManagerQuota, lg))
			admin.Patch("/v1/managers/{id}", handlers.UpdateManager(rst, lg))
			admin.Delete("/v1/managers/{id}", handlers.DeleteManager(rst, lg))

			admin.Get("/v1/logs", handlers.ListActivityLogs(db, lg))
			admin.Delete("/v1/logs", handlers.ClearActivityLogs(db, lg))

			admin.Get("/v1/deleted-licenses", handlers.ListDeletedLicenses(db, lg))
			admin.Post("/v1/deleted-licenses/{id}/restore", handlers.RestoreDeletedLicense(db, lg))
			admin.Delete("/v1/deleted-licenses/{id}", handlers.PurgeDeletedLicense(db, lg))

			admin.Delete("/v1/devices/{id}", handlers.KickDevice(db, hub, lg))
			admin.Get("/v1/banned-devices", handlers.ListBans(db, lg))
			admin.Post("/v1/banned-devices", handlers.BanDevice(db, lg))
			admin.Delete("/v1/banned-devices/{id}", handlers.UnbanDevice(db, lg))
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
