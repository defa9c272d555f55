package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"hrattendance/internal/attendance"
	"hrattendance/internal/config"
	"hrattendance/internal/httpapi"
	"hrattendance/internal/httpmiddleware"
	"hrattendance/internal/logging"
	"hrattendance/internal/notify"
	"hrattendance/internal/org"
	"hrattendance/internal/payroll"
	"hrattendance/internal/queue"
	"hrattendance/internal/store"
	"hrattendance/internal/sweep"
	"hrattendance/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := store.NewDB(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := store.Migrate(db.Client, cfg.MigrationsPath, log); err != nil {
			return err
		}
	}

	var redisClient *store.Redis
	var sweeps, notifications queue.Queue
	if cfg.QueueBackend == "memory" {
		sweeps = queue.NewInMemory(16)
		notifications = queue.NewInMemory(256)
	} else {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		sweeps = queue.NewRedisQueue(redisClient.Client, cfg.SweepQueueKey)
		notifications = queue.NewRedisQueue(redisClient.Client, cfg.NotifyQueueKey)
	}
	notifier := notify.NewDispatcher(notifications, log)

	orgRepo := org.NewRepository(db.Client)
	orgSvc := org.NewService(orgRepo, org.NewResolver(orgRepo))
	resolver := orgSvc.Resolver()
	settings := tenant.NewService(tenant.NewRepository(db.Client))
	engine := attendance.NewEngine(attendance.NewRepository(db.Client), cfg.DisplayTimezone)

	h := &httpapi.Handler{
		Attendance: attendance.NewService(engine, resolver, settings, notifier),
		Settings:   settings,
		Payroll:    payroll.NewService(resolver, engine, settings, payroll.NewRepository(db.Client), notifier, cfg.DisplayTimezone),
		Org:        orgSvc,
		Tenants:    resolver,
		Sweeps:     sweeps,
		Location:   cfg.DisplayTimezone,
	}

	var rl *limiter.Limiter
	if cfg.RateLimit != "" {
		var client *redis.Client
		if redisClient != nil {
			client = redisClient.Client
		}
		if rl, err = httpmiddleware.NewLimiter(cfg.RateLimit, client); err != nil {
			return err
		}
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:      log,
		Limiter:     rl,
		CORSOrigins: cfg.CORSOrigins,
		SigningKey:  cfg.JWTSigningKey,
		Issuer:      cfg.JWTIssuer,
		Health: func(ctx context.Context) map[string]bool {
			deps := map[string]bool{"db": db.Healthy(ctx)}
			if redisClient != nil {
				deps["redis"] = redisClient.Healthy(ctx)
			}
			return deps
		},
	}, h)

	if cfg.QueueBackend == "memory" {
		// no separate worker can reach in-process queues
		startInProcessWorker(ctx, cfg, engine, settings, notifier, sweeps, notifications, log)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", slog.String("addr", srv.Addr), slog.String("queue_backend", cfg.QueueBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func startInProcessWorker(ctx context.Context, cfg config.App, engine *attendance.Engine, settings *tenant.Service,
	notifier notify.Notifier, sweeps, notifications queue.Queue, log *slog.Logger) {
	sweeper := sweep.NewSweeper(engine, settings, notifier, sweep.Config{
		Cutoff:    cfg.SweepCutoff,
		BatchSize: cfg.SweepBatchSize,
		Location:  cfg.DisplayTimezone,
	}, log)
	runner := sweep.NewRunner(sweeper, sweep.NewMemoryLocker(), cfg.SweepLockTTL, log)
	scheduler := sweep.NewScheduler(sweeps, sweep.SchedulerConfig{
		Cutoff:   cfg.SweepCutoff,
		Location: cfg.DisplayTimezone,
		Tick:     cfg.SweepTick,
		Repeat:   cfg.SweepRepeat,
	}, log)

	go func() { _ = runner.Serve(ctx, sweeps) }()
	go func() { _ = scheduler.Run(ctx) }()
	go func() { _ = notify.LogSink(ctx, notifications, log) }()
}
