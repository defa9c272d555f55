package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/metrics"
)

// DefaultLockTTL bounds how long a crashed sweeper can hold the lease.
const DefaultLockTTL = 10 * time.Minute

// ErrSweepInProgress is returned when another sweep holds the lock.
var ErrSweepInProgress = apperrors.New(apperrors.ErrConflict, "sweep already in progress")

// Request is the body of a sweep queue message.
type Request struct {
	// Day is an optional YYYY-MM-DD work date; empty means today.
	Day         string `json:"day,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Runner executes sweeps one at a time across processes.
type Runner struct {
	sweeper *Sweeper
	locker  Locker
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
	mu      sync.Mutex
}

// NewRunner creates a runner. A nil locker limits exclusion to this process.
func NewRunner(sweeper *Sweeper, locker Locker, ttl time.Duration, log *slog.Logger) *Runner {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{sweeper: sweeper, locker: locker, ttl: ttl, now: time.Now, log: log}
}

// WithClock replaces the time source.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run performs the sweep described by req.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	if !r.mu.TryLock() {
		metrics.SweepRuns.WithLabelValues("busy").Inc()
		return Report{}, ErrSweepInProgress
	}
	defer r.mu.Unlock()

	now := r.now()
	day := now
	if req.Day != "" {
		d, err := time.ParseInLocation("2006-01-02", req.Day, r.sweeper.cfg.Location)
		if err != nil {
			return Report{}, apperrors.Wrap(apperrors.ErrValidation, err, "invalid sweep day")
		}
		day = d
	}

	if r.locker != nil {
		release, ok, err := r.locker.Acquire(ctx, r.ttl)
		if err != nil {
			metrics.SweepRuns.WithLabelValues("error").Inc()
			return Report{}, apperrors.Transient(err, "acquire sweep lock")
		}
		if !ok {
			metrics.SweepRuns.WithLabelValues("busy").Inc()
			return Report{}, ErrSweepInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.log.Warn("sweep lock release failed", slog.Any("error", err))
			}
		}()
	}

	start := time.Now()
	rep, err := r.sweeper.SweepDay(ctx, day, now)
	switch {
	case err != nil:
		metrics.SweepRuns.WithLabelValues("error").Inc()
		r.log.Error("sweep failed", slog.String("day", rep.Day), slog.Any("error", err))
	case rep.Skipped:
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
	default:
		metrics.SweepRuns.WithLabelValues("completed").Inc()
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	if req.RequestedBy != "" {
		r.log.Info("sweep requested", slog.String("requested_by", req.RequestedBy), slog.String("day", rep.Day))
	}
	return rep, err
}
