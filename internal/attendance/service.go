package attendance

import (
	"context"
	"time"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/clock"
	"hrattendance/internal/metrics"
	"hrattendance/internal/notify"
	"hrattendance/internal/org"
	"hrattendance/internal/tenant"
)

// maxListDays bounds a List query.
const maxListDays = 366

// Scope is the part of the org resolver the service needs.
type Scope interface {
	TenantOf(ctx context.Context, ident org.Identity) (string, error)
	EmployeeScope(ctx context.Context, ident org.Identity) (org.Set, error)
	AuthorizeEmployee(ctx context.Context, ident org.Identity, employeeID string) (*org.Employee, error)
}

// SettingsSource returns effective tenant settings.
type SettingsSource interface {
	Get(ctx context.Context, tenantID string) (tenant.Settings, error)
}

// Service exposes the engine to authenticated callers.
type Service struct {
	engine   *Engine
	scope    Scope
	settings SettingsSource
	notifier notify.Notifier
	now      func() time.Time
}

// NewService wires the service.
func NewService(engine *Engine, scope Scope, settings SettingsSource, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{engine: engine, scope: scope, settings: settings, notifier: notifier, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) subject(ctx context.Context, ident org.Identity) (Subject, error) {
	var kind SubjectKind
	switch {
	case ident.IsOrgNode():
		kind = KindAdmin
	case ident.Role == org.RoleEmployee:
		kind = KindEmployee
	default:
		return Subject{}, apperrors.New(apperrors.ErrValidation, "unrecognized role "+string(ident.Role))
	}
	if ident.ID == "" {
		return Subject{}, apperrors.New(apperrors.ErrValidation, "identity id required")
	}
	tenantID, err := s.scope.TenantOf(ctx, ident)
	if err != nil {
		return Subject{}, err
	}
	return Subject{ID: ident.ID, Kind: kind, TenantID: tenantID}, nil
}

func (s *Service) attendanceSettings(ctx context.Context, tenantID string) (tenant.AttendanceSettings, error) {
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return tenant.AttendanceSettings{}, err
	}
	return st.Attendance, nil
}

func (s *Service) publish(ctx context.Context, typ string, rec Record) {
	s.notifier.Notify(ctx, notify.Event{
		Type:        typ,
		TenantID:    rec.TenantID,
		SubjectID:   rec.SubjectID,
		SubjectKind: string(rec.SubjectKind),
		RecordID:    rec.ID,
		Status:      rec.Status,
		At:          s.now().UTC(),
	})
}

// CheckIn opens the caller's day.
func (s *Service) CheckIn(ctx context.Context, ident org.Identity) (Record, error) {
	subj, err := s.subject(ctx, ident)
	if err != nil {
		return Record{}, err
	}
	settings, err := s.attendanceSettings(ctx, subj.TenantID)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.engine.CheckIn(ctx, subj, s.now(), settings)
	if err != nil {
		return Record{}, err
	}
	metrics.CheckIns.WithLabelValues(rec.Status).Inc()
	s.publish(ctx, notify.CheckedIn, rec)
	return rec, nil
}

// CheckOut closes the caller's day.
func (s *Service) CheckOut(ctx context.Context, ident org.Identity) (Record, error) {
	subj, err := s.subject(ctx, ident)
	if err != nil {
		return Record{}, err
	}
	settings, err := s.attendanceSettings(ctx, subj.TenantID)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.engine.CheckOut(ctx, subj, s.now(), settings)
	if err != nil {
		return Record{}, err
	}
	metrics.CheckOuts.WithLabelValues(rec.Remark, "manual").Inc()
	s.publish(ctx, notify.CheckedOut, rec)
	return rec, nil
}

// Today returns the caller's record for the current day.
func (s *Service) Today(ctx context.Context, ident org.Identity) (Record, error) {
	subj, err := s.subject(ctx, ident)
	if err != nil {
		return Record{}, err
	}
	return s.engine.Today(ctx, subj, s.now())
}

// List returns employee records visible to ident between from and to. Org
// nodes see their employee scope, employees see only themselves.
func (s *Service) List(ctx context.Context, ident org.Identity, from, to time.Time) ([]Record, error) {
	loc := s.engine.Location()
	from, to = clock.Day(from, loc), clock.Day(to, loc)
	if to.Before(from) {
		return nil, apperrors.New(apperrors.ErrValidation, "from must not be after to")
	}
	if to.Sub(from) > maxListDays*24*time.Hour {
		return nil, apperrors.New(apperrors.ErrValidation, "date range too large")
	}

	var ids []string
	switch {
	case ident.IsOrgNode():
		scope, err := s.scope.EmployeeScope(ctx, ident)
		if err != nil {
			return nil, err
		}
		ids = scope.IDs()
	case ident.Role == org.RoleEmployee:
		ids = []string{ident.ID}
	default:
		return nil, apperrors.New(apperrors.ErrValidation, "unrecognized role "+string(ident.Role))
	}
	recs, err := s.engine.ListRange(ctx, KindEmployee, ids, from, to)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// MarkAbsent records an in-scope employee as absent on day. Future days are
// rejected.
func (s *Service) MarkAbsent(ctx context.Context, ident org.Identity, employeeID string, day time.Time) (Record, error) {
	if !ident.IsOrgNode() {
		return Record{}, apperrors.New(apperrors.ErrForbidden, "only administrators can mark absences")
	}
	if day.IsZero() {
		return Record{}, apperrors.New(apperrors.ErrValidation, "date required")
	}
	loc := s.engine.Location()
	if clock.Day(day, loc).After(clock.Day(s.now(), loc)) {
		return Record{}, apperrors.New(apperrors.ErrValidation, "cannot mark a future day absent")
	}
	if _, err := s.scope.AuthorizeEmployee(ctx, ident, employeeID); err != nil {
		return Record{}, err
	}
	tenantID, err := s.scope.TenantOf(ctx, ident)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.engine.MarkAbsent(ctx, Subject{ID: employeeID, Kind: KindEmployee, TenantID: tenantID}, day)
	if err != nil {
		return Record{}, err
	}
	s.publish(ctx, notify.MarkedAbsent, rec)
	return rec, nil
}
