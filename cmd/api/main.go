package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/config"
	"classhub/internal/events"
	"classhub/internal/httpserver"
	"classhub/internal/logger"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/services"
	"classhub/internal/store"
	"classhub/internal/store/gormstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gormstore.Open(cfg.DatabaseURL)
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	st := gormstore.New(db)
	if err := st.Migrate(); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedData {
		if err := rbac.Seed(ctx, st); err != nil {
			lg.Fatalw("rbac seed failed", "error", err)
		}
		seedDefaultAdmin(ctx, st, cfg, lg)
	}

	var pub events.Publisher = events.NewAuditPublisher(st)
	if cfg.AMQPURL != "" {
		conn, err := events.Connect(cfg.AMQPURL, lg)
		if err != nil {
			lg.Warnw("rabbitmq unavailable, events stay in the audit log only", "error", err)
		} else {
			defer conn.Close()
			pub = events.Multi{pub, events.NewAMQPPublisher(conn, cfg.EventsQueue)}
		}
	}

	var source rbac.PermissionSource = rbac.NewStoreSource(st)
	var cache rbac.SnapshotCache = rbac.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Warnw("redis unavailable, using in-process permission cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			cache = rbac.NewRedisCache(rdb)
		}
	}
	cached := rbac.NewCachedSource(source, cache, cfg.PermissionCacheTTL, lg)

	opts := services.Options{Store: st, Publisher: pub, Logger: lg, TaxRate: cfg.PaymentTaxRate}
	access := auth.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL)
	refresh := auth.NewSigner(cfg.RefreshSecret, cfg.RefreshTokenTTL)

	router := httpserver.NewRouter(httpserver.Deps{
		Store:       st,
		Authorizer:  rbac.NewEvaluator(cached, prometheus.DefaultRegisterer),
		Access:      access,
		RBAC:        rbac.NewService(st, cached, pub, lg),
		Auth:        services.NewAuthService(opts, access, refresh),
		Users:       services.NewUserService(opts),
		Courses:     services.NewCourseService(opts),
		Sessions:    services.NewSessionService(opts),
		Enrollments: services.NewEnrollmentService(opts),
		Attendance:  services.NewAttendanceService(opts),
		Payments:    services.NewPaymentService(opts),
		Reports:     services.NewReportService(opts),
		Logger:      lg,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		lg.Infow("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Errorw("graceful shutdown failed", "error", err)
	}
}

// seedDefaultAdmin creates the configured admin account once.
func seedDefaultAdmin(ctx context.Context, st store.Store, cfg config.Config, lg *zap.SugaredLogger) {
	if _, err := st.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		lg.Errorw("admin lookup failed", "error", err)
		return
	}
	role, err := st.GetRoleByTitle(ctx, rbac.RoleAdmin)
	if err != nil {
		lg.Errorw("admin role missing", "error", err)
		return
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		lg.Errorw("hash admin password failed", "error", err)
		return
	}
	u := models.User{Name: "مدیر سیستم", Email: cfg.AdminEmail, PasswordHash: hash, RoleID: role.ID}
	if err := st.CreateUser(ctx, &u); err != nil {
		lg.Errorw("seed admin failed", "error", err)
		return
	}
	lg.Infow("seeded default admin", "email", cfg.AdminEmail)
}
