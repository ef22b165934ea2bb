package http

import (
	"log/slog"
	"net/http"
)

type RouterConfig struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Bookings *BookingHandler
	Catalog  *CatalogHandler
	Reports  *ReportHandler
	// Sessions authenticates every route except registration and login.
	Sessions   SessionValidator
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Sessions == nil {
			return h
		}
		return RequireSession(cfg.Sessions, cfg.Logger)(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return protect(RequireAdmin(cfg.Logger)(h).ServeHTTP)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /sessions", cfg.Auth.CreateSession)
		mux.HandleFunc("DELETE /sessions/current", cfg.Auth.DeleteCurrentSession)
	}

	if cfg.Users != nil {
		mux.HandleFunc("POST /register", cfg.Users.Register)
		mux.Handle("GET /me", protect(cfg.Users.Me))
		mux.Handle("POST /face-registration", protect(cfg.Users.RegisterFace))
		mux.Handle("GET /admin/users", admin(cfg.Users.List))
		mux.Handle("POST /admin/users/{passportId}/admin", admin(cfg.Users.GrantAdmin))
	}

	if cfg.Catalog != nil {
		mux.Handle("GET /courts", protect(cfg.Catalog.Courts))
		mux.Handle("GET /slots", protect(cfg.Catalog.Slots))
		mux.Handle("GET /availability", protect(cfg.Catalog.Availability))
	}

	if cfg.Bookings != nil {
		mux.Handle("GET /bookings", protect(cfg.Bookings.List))
		mux.Handle("POST /bookings", protect(cfg.Bookings.Create))
		mux.Handle("GET /bookings/{id}", protect(cfg.Bookings.Get))
		mux.Handle("PUT /bookings/{id}", admin(cfg.Bookings.Update))
		mux.Handle("DELETE /bookings/{id}", admin(cfg.Bookings.Delete))
		mux.Handle("POST /bookings/{id}/cancel", protect(cfg.Bookings.Cancel))
		mux.Handle("POST /bookings/{id}/approve", admin(cfg.Bookings.Approve))
		mux.Handle("POST /bookings/{id}/reject", admin(cfg.Bookings.Reject))
		mux.Handle("POST /bookings/{id}/complete", admin(cfg.Bookings.Complete))
	}

	if cfg.Reports != nil {
		mux.Handle("GET /admin/stats", admin(cfg.Reports.Stats))
		mux.Handle("GET /admin/reports", admin(cfg.Reports.Report))
		mux.Handle("GET /admin/reports.csv", admin(cfg.Reports.ReportCSV))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
