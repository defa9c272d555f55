package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrattendance/internal/attendance"
	"hrattendance/internal/config"
	"hrattendance/internal/logging"
	"hrattendance/internal/notify"
	"hrattendance/internal/queue"
	"hrattendance/internal/store"
	"hrattendance/internal/sweep"
	"hrattendance/internal/tenant"
)

// Worker schedules and runs the auto-checkout sweep.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.Env).With(slog.String("component", "worker"))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := store.NewDB(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		sweeps, notifications queue.Queue
		locker                sweep.Locker
	)
	if cfg.QueueBackend == "memory" {
		log.Warn("memory queue backend: sweeps requested through the api will not reach this worker")
		sweeps = queue.NewInMemory(16)
		notifications = queue.NewInMemory(256)
		locker = sweep.NewMemoryLocker()
		go func() { _ = notify.LogSink(ctx, notifications, log) }()
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		if !redisClient.Healthy(ctx) {
			log.Warn("redis not reachable yet, consumers will retry", slog.String("addr", cfg.RedisAddr))
		}
		sweeps = queue.NewRedisQueue(redisClient.Client, cfg.SweepQueueKey)
		notifications = queue.NewRedisQueue(redisClient.Client, cfg.NotifyQueueKey)
		locker = sweep.NewRedisLocker(redisClient.Client, cfg.SweepLockKey)
	}

	engine := attendance.NewEngine(attendance.NewRepository(db.Client), cfg.DisplayTimezone)
	settings := tenant.NewService(tenant.NewRepository(db.Client))
	sweeper := sweep.NewSweeper(engine, settings, notify.NewDispatcher(notifications, log), sweep.Config{
		Cutoff:    cfg.SweepCutoff,
		BatchSize: cfg.SweepBatchSize,
		Location:  cfg.DisplayTimezone,
	}, log)
	runner := sweep.NewRunner(sweeper, locker, cfg.SweepLockTTL, log)
	scheduler := sweep.NewScheduler(sweeps, sweep.SchedulerConfig{
		Cutoff:   cfg.SweepCutoff,
		Location: cfg.DisplayTimezone,
		Tick:     cfg.SweepTick,
		Repeat:   cfg.SweepRepeat,
	}, log)

	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scheduler stopped", slog.Any("error", err))
		}
	}()

	log.Info("worker started",
		slog.String("queue_backend", cfg.QueueBackend),
		slog.String("timezone", cfg.DisplayTimezone.String()),
	)
	return runner.Serve(ctx, sweeps)
}
