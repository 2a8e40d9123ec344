package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/campushub/campus-events-backend/internal/health"
	"github.com/campushub/campus-events-backend/internal/http/handler"
	"github.com/campushub/campus-events-backend/internal/http/middleware"
	"github.com/campushub/campus-events-backend/internal/http/response"
	"github.com/campushub/campus-events-backend/internal/service"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	ClubHandler      *handler.ClubHandler
	EventHandler     *handler.EventHandler
	Auth             service.Authenticator
	CORSOrigins      []string
	APIRateLimitRPM  int
	AuthRateLimitRPM int
	Readiness        *health.ProbeRunner
	EnableOTelHTTP   bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())

	// login endpoints get a tighter budget than the rest of the API
	authLimiter := middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	authed := middleware.AuthMiddleware(dep.Auth)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/student-login", dep.AuthHandler.StudentLogin)
			r.With(authLimiter).Post("/council-login", dep.AuthHandler.CouncilLogin)
			r.Group(func(r chi.Router) {
				r.Use(authed)
				// change-password stays reachable under a forced change
				r.With(authLimiter).Post("/change-password", dep.AuthHandler.ChangePassword)
				r.Get("/verify-token", dep.AuthHandler.VerifyToken)
				r.Post("/verify-token", dep.AuthHandler.VerifyToken)
				r.Post("/logout", dep.AuthHandler.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Use(middleware.RequirePasswordChanged)

			r.Get("/me/sessions", dep.AuthHandler.Sessions)
			r.Get("/me/clubs", dep.ClubHandler.MyClubs)

			r.Route("/clubs", func(r chi.Router) {
				r.Get("/", dep.ClubHandler.List)
				r.Post("/", dep.ClubHandler.Create)
				r.Route("/{club_id}", func(r chi.Router) {
					r.Get("/", dep.ClubHandler.Get)
					r.Post("/join", dep.ClubHandler.Join)
					r.Post("/leave", dep.ClubHandler.Leave)
					r.Get("/roster", dep.ClubHandler.Roster)
					r.Get("/pending", dep.ClubHandler.Pending)
					r.Get("/events", dep.EventHandler.ListByClub)
					r.Post("/events", dep.EventHandler.Create)
					r.Post("/broadcast", dep.EventHandler.BroadcastClub)
				})
			})

			r.Route("/events/{event_id}", func(r chi.Router) {
				r.Get("/", dep.EventHandler.Get)
				r.Put("/", dep.EventHandler.Update)
				r.Delete("/", dep.EventHandler.Delete)
			})

			r.Route("/memberships/{membership_id}", func(r chi.Router) {
				r.Post("/decide", dep.ClubHandler.Decide)
			})

			r.Post("/broadcast", dep.EventHandler.BroadcastCollege)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
