package attendance

import (
	"context"
	"log/slog"
	"time"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/clock"
	"hrattendance/internal/logging"
	"hrattendance/internal/tenant"
)

// ErrDayStarted rejects an absence mark on a day that already has a check-in.
var ErrDayStarted = apperrors.New(apperrors.ErrConflict, "cannot mark absent after check-in")

// Store is the persistence port of the engine.
type Store interface {
	// StartDay atomically creates the (subject, work date) record or fills the
	// check-in of an existing one that has none. It returns
	// ErrAlreadyCheckedIn when a check-in is already present.
	StartDay(ctx context.Context, rec Record) (Record, error)
	// FindDay returns the record for subject on day, or nil when none exists.
	FindDay(ctx context.Context, subj Subject, day time.Time) (*Record, error)
	// CloseDay writes the check-out side of rec if it is still open. It
	// returns ErrAlreadyCheckedOut when the record was closed meanwhile.
	CloseDay(ctx context.Context, rec Record) (Record, error)
	// MarkAbsent upserts an Absent record unless the day has a check-in, in
	// which case it returns ErrDayStarted.
	MarkAbsent(ctx context.Context, rec Record) (Record, error)
	// ListOpen returns checked-in, not checked-out records of day across all
	// tenants with id > afterID, ordered by id.
	ListOpen(ctx context.Context, day time.Time, afterID string, limit int) ([]Record, error)
	// ListRange returns records of the given subjects between from and to
	// inclusive, ordered by work date.
	ListRange(ctx context.Context, kind SubjectKind, ids []string, from, to time.Time) ([]Record, error)
}

// Engine runs the per-day state machine against a store. Calendar days and
// HH:MM strings are taken in loc.
type Engine struct {
	store Store
	loc   *time.Location
}

// NewEngine creates an engine.
func NewEngine(store Store, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: store, loc: loc}
}

// Location returns the display timezone.
func (e *Engine) Location() *time.Location { return e.loc }

func thresholds(settings tenant.AttendanceSettings) (tenant.Thresholds, error) {
	th, err := settings.Thresholds()
	if err != nil {
		return tenant.Thresholds{}, apperrors.Wrap(apperrors.ErrValidation, err, "invalid attendance settings")
	}
	return th, nil
}

// CheckIn opens subj's day at now.
func (e *Engine) CheckIn(ctx context.Context, subj Subject, now time.Time, settings tenant.AttendanceSettings) (Record, error) {
	if err := subj.validate(); err != nil {
		return Record{}, err
	}
	th, err := thresholds(settings)
	if err != nil {
		return Record{}, err
	}
	in := now.UTC()
	status := ClassifyCheckIn(clock.Minutes(now, e.loc), th)
	rec := Record{
		SubjectID:   subj.ID,
		SubjectKind: subj.Kind,
		TenantID:    subj.TenantID,
		WorkDate:    clock.Day(now, e.loc),
		CheckIn:     &in,
		LoginTime:   clock.FormatHHMM(now, e.loc),
		Status:      status,
		Remark:      status,
	}
	saved, err := e.store.StartDay(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	logging.FromContext(ctx).Info("checked in",
		slog.String("subject_id", subj.ID),
		slog.String("subject_kind", string(subj.Kind)),
		slog.String("status", status))
	return saved, nil
}

// CheckOut closes subj's day at now.
func (e *Engine) CheckOut(ctx context.Context, subj Subject, now time.Time, settings tenant.AttendanceSettings) (Record, error) {
	if err := subj.validate(); err != nil {
		return Record{}, err
	}
	th, err := thresholds(settings)
	if err != nil {
		return Record{}, err
	}
	rec, err := e.store.FindDay(ctx, subj, clock.Day(now, e.loc))
	if err != nil {
		return Record{}, err
	}
	switch rec.State() {
	case NotStarted:
		return Record{}, ErrNoCheckIn
	case CheckedOut:
		return Record{}, ErrAlreadyCheckedOut
	}
	Close(rec, now, th, e.loc)
	saved, err := e.store.CloseDay(ctx, *rec)
	if err != nil {
		return Record{}, err
	}
	logging.FromContext(ctx).Info("checked out",
		slog.String("subject_id", subj.ID),
		slog.String("remark", saved.Remark))
	return saved, nil
}

// AutoClose closes an open record at the tenant's auto-checkout time on the
// record's own work date.
func (e *Engine) AutoClose(ctx context.Context, rec Record, th tenant.Thresholds) (Record, error) {
	if rec.State() != CheckedIn {
		return Record{}, ErrAlreadyCheckedOut
	}
	Close(&rec, clock.At(rec.WorkDate, th.AutoCheckout, e.loc), th, e.loc)
	rec.AutoClosed = true
	return e.store.CloseDay(ctx, rec)
}

// MarkAbsent records subj as absent on day.
func (e *Engine) MarkAbsent(ctx context.Context, subj Subject, day time.Time) (Record, error) {
	if err := subj.validate(); err != nil {
		return Record{}, err
	}
	return e.store.MarkAbsent(ctx, Record{
		SubjectID:   subj.ID,
		SubjectKind: subj.Kind,
		TenantID:    subj.TenantID,
		WorkDate:    clock.Day(day, e.loc),
		Status:      StatusAbsent,
		Remark:      StatusAbsent,
	})
}

// Today returns subj's record for the day containing now.
func (e *Engine) Today(ctx context.Context, subj Subject, now time.Time) (Record, error) {
	rec, err := e.store.FindDay(ctx, subj, clock.Day(now, e.loc))
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, ErrNoRecord
	}
	return *rec, nil
}

// ListOpen pages through open records of day.
func (e *Engine) ListOpen(ctx context.Context, day time.Time, afterID string, limit int) ([]Record, error) {
	return e.store.ListOpen(ctx, clock.Day(day, e.loc), afterID, limit)
}

// ListRange returns records of ids between from and to.
func (e *Engine) ListRange(ctx context.Context, kind SubjectKind, ids []string, from, to time.Time) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return e.store.ListRange(ctx, kind, ids, clock.Day(from, e.loc), clock.Day(to, e.loc))
}
