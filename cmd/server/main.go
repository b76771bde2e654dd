package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/coldtrace/coldtrace/internal/api"
	"github.com/coldtrace/coldtrace/internal/api/cookie"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/config"
	"github.com/coldtrace/coldtrace/internal/database"
	"github.com/coldtrace/coldtrace/internal/pharmacy"
	"github.com/coldtrace/coldtrace/internal/reconciler"
	"github.com/coldtrace/coldtrace/internal/user"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	db, err := database.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	revoker, closeRevoker, err := initRevoker(startupCtx, cfg.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer closeRevoker()

	userRepo := user.NewRepository(db.Pool())
	pharmacyRepo := pharmacy.NewRepository(db.Pool())

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL, auth.WithRevoker(revoker))
	authService := auth.NewService(userRepo, hasher, sessions)

	var targets []auth.AdminTarget
	if cfg.AdminSeedFile != "" {
		targets, err = auth.LoadAdminTargets(cfg.AdminSeedFile)
		if err != nil {
			slog.Error("failed to load admin seed file", "error", err, "path", cfg.AdminSeedFile)
			os.Exit(1)
		}
	}
	adminReconciler := auth.NewReconciler(userRepo, hasher, targets)
	if err := adminReconciler.ReconcileAll(startupCtx); err != nil {
		slog.Error("failed to reconcile admin accounts", "error", err)
		os.Exit(1)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	if cfg.AdminReconcileInterval > 0 && len(targets) > 0 {
		go reconciler.New(adminReconciler, cfg.AdminReconcileInterval).Start(bgCtx)
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:     db,
		Version:      cfg.Version,
		AuthService:  authService,
		UserRepo:     userRepo,
		PharmacyRepo: pharmacyRepo,
		Reconciler:   adminReconciler,
		Jar: cookie.Jar{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SecureCookies(),
			TTL:    cfg.SessionTTL,
		},
		SignInURL:   cfg.SignInURL,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting coldtrace server", "port", cfg.Port, "version", cfg.Version, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// initRevoker connects to Redis when configured. Without it, logout only
// clears the cookie.
func initRevoker(ctx context.Context, redisURL string) (auth.Revoker, func(), error) {
	if redisURL == "" {
		slog.Warn("REDIS_URL not set; session revocation disabled")
		return auth.NoopRevoker{}, func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}

	return auth.NewRedisRevoker(client), func() { _ = client.Close() }, nil
}
