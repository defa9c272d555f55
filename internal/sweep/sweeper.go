// Package sweep force-closes check-ins that were never closed.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/attendance"
	"hrattendance/internal/clock"
	"hrattendance/internal/metrics"
	"hrattendance/internal/notify"
	"hrattendance/internal/tenant"
)

// DefaultBatchSize bounds one page of open records.
const DefaultBatchSize = 200

// Records is the attendance port of the sweeper.
type Records interface {
	ListOpen(ctx context.Context, day time.Time, afterID string, limit int) ([]attendance.Record, error)
	AutoClose(ctx context.Context, rec attendance.Record, th tenant.Thresholds) (attendance.Record, error)
}

// SettingsSource returns effective tenant settings.
type SettingsSource interface {
	Get(ctx context.Context, tenantID string) (tenant.Settings, error)
}

// Config tunes the sweeper.
type Config struct {
	// Cutoff is the global gate in minutes since midnight.
	Cutoff    int
	BatchSize int
	Location  *time.Location
}

// Report summarizes one sweep.
type Report struct {
	Day      string `json:"day"`
	Skipped  bool   `json:"skipped"`
	Scanned  int    `json:"scanned"`
	Closed   int    `json:"closed"`
	Deferred int    `json:"deferred"`
	Failed   int    `json:"failed"`
}

// Sweeper closes open records of a day at each tenant's auto-checkout time.
type Sweeper struct {
	records  Records
	settings SettingsSource
	notifier notify.Notifier
	cfg      Config
	log      *slog.Logger
}

// NewSweeper creates a sweeper. Zero config fields take defaults.
func NewSweeper(records Records, settings SettingsSource, notifier notify.Notifier, cfg Config, log *slog.Logger) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Cutoff <= 0 {
		cfg.Cutoff = clock.MustHHMM("18:00")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{records: records, settings: settings, notifier: notifier, cfg: cfg, log: log}
}

// Sweep closes today's open records. Before the cutoff it does nothing.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Report, error) {
	return s.SweepDay(ctx, clock.Day(now, s.cfg.Location), now)
}

// SweepDay closes the open records of day as seen at now. A past day is
// swept unconditionally; the current day is gated by the cutoff and records
// whose tenant auto-checkout time is still ahead are deferred.
func (s *Sweeper) SweepDay(ctx context.Context, day, now time.Time) (Report, error) {
	loc := s.cfg.Location
	day = clock.Day(day, loc)
	today := clock.Day(now, loc)
	rep := Report{Day: day.Format("2006-01-02")}

	if day.After(today) {
		return rep, apperrors.New(apperrors.ErrValidation, "cannot sweep a future day")
	}
	current := day.Equal(today)
	nowMinutes := clock.Minutes(now, loc)
	if current && nowMinutes < s.cfg.Cutoff {
		rep.Skipped = true
		return rep, nil
	}

	thresholds := map[string]tenant.Thresholds{}
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		batch, err := s.records.ListOpen(ctx, day, afterID, s.cfg.BatchSize)
		if err != nil {
			return rep, err
		}
		for _, rec := range batch {
			afterID = rec.ID
			rep.Scanned++

			th, ok := thresholds[rec.TenantID]
			if !ok {
				th, err = s.tenantThresholds(ctx, rec.TenantID)
				if err != nil {
					rep.Failed++
					metrics.SweepRecords.WithLabelValues("failed").Inc()
					s.log.Error("sweep: tenant settings unavailable",
						slog.String("record_id", rec.ID),
						slog.String("tenant_id", rec.TenantID),
						slog.Any("error", err))
					continue
				}
				thresholds[rec.TenantID] = th
			}

			if current && nowMinutes < th.AutoCheckout {
				rep.Deferred++
				metrics.SweepRecords.WithLabelValues("deferred").Inc()
				continue
			}

			closed, err := s.records.AutoClose(ctx, rec, th)
			switch {
			case errors.Is(err, attendance.ErrAlreadyCheckedOut):
				// closed by the subject between listing and update
				continue
			case err != nil:
				rep.Failed++
				metrics.SweepRecords.WithLabelValues("failed").Inc()
				s.log.Error("sweep: close failed",
					slog.String("record_id", rec.ID),
					slog.String("tenant_id", rec.TenantID),
					slog.Any("error", err))
				continue
			}
			rep.Closed++
			metrics.SweepRecords.WithLabelValues("closed").Inc()
			metrics.CheckOuts.WithLabelValues(closed.Remark, "sweep").Inc()
			s.notifier.Notify(ctx, notify.Event{
				Type:        notify.AutoCheckedOut,
				TenantID:    closed.TenantID,
				SubjectID:   closed.SubjectID,
				SubjectKind: string(closed.SubjectKind),
				RecordID:    closed.ID,
				Status:      closed.Status,
				At:          now.UTC(),
			})
		}
		if len(batch) < s.cfg.BatchSize {
			break
		}
	}
	s.log.Info("sweep finished",
		slog.String("day", rep.Day),
		slog.Int("scanned", rep.Scanned),
		slog.Int("closed", rep.Closed),
		slog.Int("deferred", rep.Deferred),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

func (s *Sweeper) tenantThresholds(ctx context.Context, tenantID string) (tenant.Thresholds, error) {
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return tenant.Thresholds{}, err
	}
	return st.Attendance.Thresholds()
}
