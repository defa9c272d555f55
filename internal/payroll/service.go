package payroll

import (
	"context"
	"log/slog"
	"time"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/attendance"
	"hrattendance/internal/clock"
	"hrattendance/internal/logging"
	"hrattendance/internal/notify"
	"hrattendance/internal/org"
	"hrattendance/internal/tenant"
)

// Scope is the part of the org resolver payroll needs.
type Scope interface {
	TenantOf(ctx context.Context, ident org.Identity) (string, error)
	AuthorizeEmployee(ctx context.Context, ident org.Identity, employeeID string) (*org.Employee, error)
}

// Records lists attendance in a date range.
type Records interface {
	ListRange(ctx context.Context, kind attendance.SubjectKind, ids []string, from, to time.Time) ([]attendance.Record, error)
}

// SettingsSource returns effective tenant settings.
type SettingsSource interface {
	Get(ctx context.Context, tenantID string) (tenant.Settings, error)
}

// SlipStore persists generated slips.
type SlipStore interface {
	SaveSlip(ctx context.Context, slip Slip) (Slip, error)
	FindSlip(ctx context.Context, employeeID string, month time.Month, year int) (*Slip, error)
}

// Slip is a persisted payroll result.
type Slip struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	GeneratedBy string    `json:"generatedBy"`
	GeneratedAt time.Time `json:"generatedAt"`
	Result
}

// Service computes payroll for employees in the caller's scope.
type Service struct {
	scope    Scope
	records  Records
	settings SettingsSource
	slips    SlipStore
	notifier notify.Notifier
	loc      *time.Location
}

// NewService wires the service.
func NewService(scope Scope, records Records, settings SettingsSource, slips SlipStore, notifier notify.Notifier, loc *time.Location) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{scope: scope, records: records, settings: settings, slips: slips, notifier: notifier, loc: loc}
}

func validPeriod(month time.Month, year int) error {
	if month < time.January || month > time.December {
		return apperrors.New(apperrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return apperrors.New(apperrors.ErrValidation, "year out of range")
	}
	return nil
}

// Calculate returns the payroll of employeeID for month/year.
func (s *Service) Calculate(ctx context.Context, ident org.Identity, employeeID string, month time.Month, year int) (Result, error) {
	if err := validPeriod(month, year); err != nil {
		return Result{}, err
	}
	emp, err := s.scope.AuthorizeEmployee(ctx, ident, employeeID)
	if err != nil {
		return Result{}, err
	}
	tenantID, err := s.scope.TenantOf(ctx, ident)
	if err != nil {
		return Result{}, err
	}
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}

	first, last, days := clock.MonthRange(year, month, s.loc)
	recs, err := s.records.ListRange(ctx, attendance.KindEmployee, []string{emp.ID}, first, last)
	if err != nil {
		return Result{}, err
	}
	absent, late := Tally(recs)
	res := Compute(emp.Salary, days, absent, late, st.Payroll)
	res.EmployeeID, res.Month, res.Year = emp.ID, month, year

	logging.FromContext(ctx).Debug("payroll calculated",
		slog.String("employee_id", emp.ID),
		slog.Int("absent_days", absent),
		slog.Int("late_days", late),
		slog.String("deduction", res.Deduction.String()))
	return res, nil
}

// GenerateSlip calculates and persists the slip, replacing any earlier slip
// for the same month.
func (s *Service) GenerateSlip(ctx context.Context, ident org.Identity, employeeID string, month time.Month, year int) (Slip, error) {
	if !ident.IsOrgNode() {
		return Slip{}, apperrors.New(apperrors.ErrForbidden, "only administrators can generate payroll slips")
	}
	res, err := s.Calculate(ctx, ident, employeeID, month, year)
	if err != nil {
		return Slip{}, err
	}
	tenantID, err := s.scope.TenantOf(ctx, ident)
	if err != nil {
		return Slip{}, err
	}
	slip, err := s.slips.SaveSlip(ctx, Slip{TenantID: tenantID, GeneratedBy: ident.ID, Result: res})
	if err != nil {
		return Slip{}, err
	}
	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.PayslipIssued,
		TenantID:    tenantID,
		SubjectID:   employeeID,
		SubjectKind: string(attendance.KindEmployee),
		RecordID:    slip.ID,
		At:          slip.GeneratedAt,
	})
	logging.FromContext(ctx).Info("payroll slip generated",
		slog.String("employee_id", employeeID),
		slog.Int("month", int(month)),
		slog.Int("year", year))
	return slip, nil
}

// GetSlip returns a stored slip.
func (s *Service) GetSlip(ctx context.Context, ident org.Identity, employeeID string, month time.Month, year int) (Slip, error) {
	if err := validPeriod(month, year); err != nil {
		return Slip{}, err
	}
	if _, err := s.scope.AuthorizeEmployee(ctx, ident, employeeID); err != nil {
		return Slip{}, err
	}
	slip, err := s.slips.FindSlip(ctx, employeeID, month, year)
	if err != nil {
		return Slip{}, err
	}
	if slip == nil {
		return Slip{}, apperrors.New(apperrors.ErrNotFound, "payroll slip not found")
	}
	return *slip, nil
}
