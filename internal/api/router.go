package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coldtrace/coldtrace/internal/api/cookie"
	"github.com/coldtrace/coldtrace/internal/api/handler"
	"github.com/coldtrace/coldtrace/internal/api/middleware"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/pharmacy"
	"github.com/coldtrace/coldtrace/internal/user"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger     handler.DBPinger
	Version      string
	AuthService  *auth.Service
	UserRepo     user.Repository
	PharmacyRepo pharmacy.Repository
	Reconciler   handler.AdminReconciler
	Jar          cookie.Jar
	SignInURL    string
	CORSOrigins  []string
}

// Paths reachable without a session.
var (
	publicPaths    = []string{"/health", "/metrics", "/favicon.ico"}
	publicPrefixes = []string{"/auth/", "/static/"}
)

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.Guard(middleware.GuardConfig{
		Sessions:       deps.AuthService.Sessions(),
		Refresher:      deps.AuthService,
		Jar:            deps.Jar,
		SignInURL:      deps.SignInURL,
		PublicPaths:    publicPaths,
		PublicPrefixes: publicPrefixes,
	}))

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Jar)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Get("/session", authHandler.Session)
		r.Post("/logout", authHandler.Logout)
	})

	pharmacyHandler := handler.NewPharmacyHandler(deps.PharmacyRepo)
	r.Route("/pharmacies", func(r chi.Router) {
		r.Get("/", pharmacyHandler.List)
		r.Get("/{id}", pharmacyHandler.GetByID)
	})

	userHandler := handler.NewUserHandler(deps.UserRepo, deps.AuthService.Hasher())
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin())

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Post("/{id}/approve", userHandler.Approve)
			r.Post("/{id}/reject", userHandler.Reject)
			r.Put("/{id}/pharmacies", userHandler.SetPharmacies)
			r.Put("/{id}/password", userHandler.SetPassword)
			r.Delete("/{id}", userHandler.Deactivate)
		})

		r.Post("/pharmacies", pharmacyHandler.Create)

		if deps.Reconciler != nil {
			recoveryHandler := handler.NewRecoveryHandler(deps.Reconciler)
			r.Post("/recovery/reconcile", recoveryHandler.Reconcile)
		}
	})

	return r
}
