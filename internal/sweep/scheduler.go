package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hrattendance/internal/clock"
	"hrattendance/internal/queue"
)

// SchedulerConfig tunes when sweep messages are published.
type SchedulerConfig struct {
	Cutoff   int
	Location *time.Location
	// Tick is how often the clock is checked.
	Tick time.Duration
	// Repeat re-publishes after the first sweep of the day so records whose
	// tenant auto-checkout is later than the cutoff get closed. Zero means
	// once per day.
	Repeat time.Duration
}

// Scheduler publishes sweep messages after the daily cutoff, and a sweep of
// the previous day on the first tick of each new day.
type Scheduler struct {
	q        queue.Queue
	cfg      SchedulerConfig
	now      func() time.Time
	log      *slog.Logger
	lastDay  string
	lastAt   time.Time
	caughtUp string // day whose predecessor has been queued
}

// NewScheduler creates a scheduler publishing to q.
func NewScheduler(q queue.Queue, cfg SchedulerConfig, log *slog.Logger) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	if cfg.Cutoff <= 0 {
		cfg.Cutoff = clock.MustHHMM("18:00")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{q: q, cfg: cfg, now: time.Now, log: log}
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) due(now time.Time) bool {
	if clock.Minutes(now, s.cfg.Location) < s.cfg.Cutoff {
		return false
	}
	if clock.Day(now, s.cfg.Location).Format("2006-01-02") != s.lastDay {
		return true
	}
	return s.cfg.Repeat > 0 && now.Sub(s.lastAt) >= s.cfg.Repeat
}

// Tick publishes the previous day's sweep once the day rolls over, and a
// sweep for today when one is due. It reports whether anything was published.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	now := s.now()
	today := clock.Day(now, s.cfg.Location).Format("2006-01-02")
	published := false
	if s.caughtUp != today {
		if err := s.catchUp(ctx, now); err != nil {
			return false, err
		}
		published = true
	}
	if !s.due(now) {
		return published, nil
	}
	if err := s.publish(ctx, Request{RequestedBy: "scheduler"}); err != nil {
		return published, err
	}
	s.lastDay = today
	s.lastAt = now
	return true, nil
}

// CatchUp publishes a sweep of yesterday so records still open when the day
// ended get closed at their tenant's auto-checkout time.
func (s *Scheduler) CatchUp(ctx context.Context) error {
	return s.catchUp(ctx, s.now())
}

func (s *Scheduler) catchUp(ctx context.Context, now time.Time) error {
	today := clock.Day(now, s.cfg.Location)
	yesterday := today.AddDate(0, 0, -1)
	if err := s.publish(ctx, Request{Day: yesterday.Format("2006-01-02"), RequestedBy: "scheduler"}); err != nil {
		return err
	}
	s.caughtUp = today.Format("2006-01-02")
	return nil
}

func (s *Scheduler) publish(ctx context.Context, req Request) error {
	msg, err := queue.NewMessage(queue.TypeSweep, req)
	if err != nil {
		return err
	}
	if err := s.q.Publish(ctx, msg); err != nil {
		return err
	}
	s.log.Info("sweep scheduled", slog.String("message_id", msg.ID), slog.String("day", req.Day))
	return nil
}

// Run ticks until ctx is done. It checks immediately so a worker started
// after the cutoff sweeps without waiting a full tick, and the first tick
// queues yesterday.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()
	for {
		if _, err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("sweep not scheduled", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Handle runs the sweep carried by msg. Messages of other types are ignored.
func (r *Runner) Handle(ctx context.Context, msg queue.Message) (Report, error) {
	if msg.Type != queue.TypeSweep {
		return Report{}, nil
	}
	var req Request
	if len(msg.Body) > 0 {
		if err := msg.Decode(&req); err != nil {
			return Report{}, err
		}
	}
	return r.Run(ctx, req)
}
