package http

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps is everything the router wires together.
type Deps struct {
	Handler  *AuthHandler
	Verifier TokenVerifier
	Limiter  ratelimit.Limiter
	Pinger   Pinger
	Metrics  *metrics.Metrics
	Logger   logging.Logger

	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// NewRouter builds the HTTP routes of the service.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(ClientAddress(d.TrustedProxies))
	r.Use(RequestLogger(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := d.Handler
	authn := Authenticate(d.Verifier)
	limit := func(route string) func(http.Handler) http.Handler {
		return RateLimit(d.Limiter, route, d.Logger, d.Metrics)
	}

	r.Get("/health/live", Live)
	r.Get("/health/ready", Ready(d.Pinger))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.With(limit("register")).Post("/register", h.Register)
		r.With(limit("login")).Post("/login", h.Login)

		r.With(limit("refresh")).Get("/refresh", h.Refresh)
		r.With(limit("refresh")).Post("/refresh", h.Refresh)
		r.Get("/logout", h.Logout)
		r.Post("/logout", h.Logout)

		// Protected auth routes
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/logout-all", h.LogoutAll)
			r.Get("/me", h.Me)
			r.Get("/sessions", h.ListSessions)
			r.Delete("/sessions/{family}", h.RevokeSession)

			r.Route("/admin/users/{userId}/sessions", func(r chi.Router) {
				r.Use(Authorize(models.RoleAdmin))
				r.Get("/", h.AdminListSessions)
				r.Delete("/", h.AdminRevokeAll)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, MsgNotFound, nil)
	})

	return r
}
