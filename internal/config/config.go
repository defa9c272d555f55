package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hrattendance/internal/clock"
)

// App holds the runtime configuration loaded from the environment.
type App struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	RedisAddr       string
	JWTIssuer       string
	JWTSigningKey   string
	QueueBackend    string
	SweepQueueKey   string
	NotifyQueueKey  string
	SweepLockKey    string
	RateLimit       string
	DisplayTimezone *time.Location
	SweepCutoff     int
	SweepBatchSize  int
	SweepLockTTL    time.Duration
	SweepTick       time.Duration
	SweepRepeat     time.Duration
	MigrationsPath  string
	RunMigrations   bool
	CORSOrigins     []string
}

// IsProduction reports whether the app runs in a production environment.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_PORT", "8081")
	v.SetDefault("DATABASE_URL", "postgres://hr:hr@localhost:5433/hr?sslmode=disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("JWT_ISSUER", "hr-attendance")
	v.SetDefault("JWT_SIGNING_KEY", "dev-signing-secret-change")
	v.SetDefault("QUEUE_BACKEND", "redis")
	v.SetDefault("SWEEP_QUEUE_KEY", "hr:sweeps")
	v.SetDefault("NOTIFY_QUEUE_KEY", "hr:notifications")
	v.SetDefault("SWEEP_LOCK_KEY", "hr:sweep:lock")
	v.SetDefault("RATE_LIMIT", "120-M")
	v.SetDefault("DISPLAY_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SWEEP_CUTOFF", "18:00")
	v.SetDefault("SWEEP_BATCH_SIZE", 200)
	v.SetDefault("SWEEP_LOCK_TTL", "10m")
	v.SetDefault("SWEEP_TICK", "1m")
	v.SetDefault("SWEEP_REPEAT", "30m")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads .env (if present), then the environment, over defaults.
func Load() (App, error) {
	_ = godotenv.Load()
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (App, error) {
	cfg := App{
		Env:            v.GetString("APP_ENV"),
		HTTPPort:       v.GetString("HTTP_PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		JWTIssuer:      v.GetString("JWT_ISSUER"),
		JWTSigningKey:  v.GetString("JWT_SIGNING_KEY"),
		QueueBackend:   strings.ToLower(v.GetString("QUEUE_BACKEND")),
		SweepQueueKey:  v.GetString("SWEEP_QUEUE_KEY"),
		NotifyQueueKey: v.GetString("NOTIFY_QUEUE_KEY"),
		SweepLockKey:   v.GetString("SWEEP_LOCK_KEY"),
		RateLimit:      v.GetString("RATE_LIMIT"),
		SweepBatchSize: v.GetInt("SWEEP_BATCH_SIZE"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		RunMigrations:  v.GetBool("RUN_MIGRATIONS"),
	}

	var err error
	if cfg.DisplayTimezone, err = time.LoadLocation(v.GetString("DISPLAY_TIMEZONE")); err != nil {
		return App{}, fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	if cfg.SweepCutoff, err = clock.ParseHHMM(v.GetString("SWEEP_CUTOFF")); err != nil {
		return App{}, fmt.Errorf("SWEEP_CUTOFF: %w", err)
	}
	cfg.SweepLockTTL = durationOr(v, "SWEEP_LOCK_TTL", 10*time.Minute)
	cfg.SweepTick = durationOr(v, "SWEEP_TICK", time.Minute)
	cfg.SweepRepeat = durationOr(v, "SWEEP_REPEAT", 30*time.Minute)

	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	switch cfg.QueueBackend {
	case "redis", "memory":
	default:
		return App{}, fmt.Errorf("QUEUE_BACKEND must be redis or memory, got %q", cfg.QueueBackend)
	}
	if cfg.SweepBatchSize <= 0 {
		return App{}, fmt.Errorf("SWEEP_BATCH_SIZE must be positive")
	}
	if cfg.IsProduction() && cfg.JWTSigningKey == "dev-signing-secret-change" {
		return App{}, fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return cfg, nil
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("invalid duration, using fallback", slog.String("key", key), slog.String("value", raw), slog.Duration("fallback", fallback))
		return fallback
	}
	return d
}
