package tenant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/clock"
)

// AttendanceSettings are the per-tenant attendance thresholds. All times are
// 24-hour "HH:MM" in the display timezone.
type AttendanceSettings struct {
	OfficeStart           string `json:"officeStartTime"`
	OfficeEnd             string `json:"officeEndTime"`
	GraceMinutes          int    `json:"graceMinutes"`
	HalfDayLoginCutoff    string `json:"halfDayLoginCutoff"`
	HalfDayCheckoutCutoff string `json:"halfDayCheckoutCutoff"`
	AutoCheckout          string `json:"autoCheckoutTime"`
}

// PayrollRules configure deductions. Rates are fractions of the daily salary.
type PayrollRules struct {
	AbsentDayRate  decimal.Decimal `json:"absentDayRate"`
	LateDayRate    decimal.Decimal `json:"lateDayRate"`
	FixedDeduction decimal.Decimal `json:"fixedDeduction"`
}

// Settings is the complete configuration of one tenant (main admin).
type Settings struct {
	TenantID   string             `json:"tenantId"`
	Attendance AttendanceSettings `json:"attendance"`
	Payroll    PayrollRules       `json:"payroll"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Thresholds is AttendanceSettings resolved to minutes since midnight.
type Thresholds struct {
	Start                 int
	End                   int
	Grace                 int
	HalfDayLoginCutoff    int
	HalfDayCheckoutCutoff int
	AutoCheckout          int
}

// DefaultAttendance returns the attendance defaults.
func DefaultAttendance() AttendanceSettings {
	return AttendanceSettings{
		OfficeStart:           "10:00",
		OfficeEnd:             "18:00",
		GraceMinutes:          10,
		HalfDayLoginCutoff:    "11:00",
		HalfDayCheckoutCutoff: "16:00",
		AutoCheckout:          "18:00",
	}
}

// DefaultPayroll returns the payroll defaults: a full day per absence and
// half a day per late arrival.
func DefaultPayroll() PayrollRules {
	return PayrollRules{
		AbsentDayRate:  decimal.NewFromInt(1),
		LateDayRate:    decimal.NewFromFloat(0.5),
		FixedDeduction: decimal.Zero,
	}
}

// Defaults returns a fully populated Settings for tenantID.
func Defaults(tenantID string) Settings {
	return Settings{
		TenantID:   tenantID,
		Attendance: DefaultAttendance(),
		Payroll:    DefaultPayroll(),
	}
}

// Thresholds parses the attendance times. Settings that passed Validate
// always parse.
func (a AttendanceSettings) Thresholds() (Thresholds, error) {
	var (
		t   Thresholds
		err error
	)
	fields := []struct {
		name string
		val  string
		dst  *int
	}{
		{"officeStartTime", a.OfficeStart, &t.Start},
		{"officeEndTime", a.OfficeEnd, &t.End},
		{"halfDayLoginCutoff", a.HalfDayLoginCutoff, &t.HalfDayLoginCutoff},
		{"halfDayCheckoutCutoff", a.HalfDayCheckoutCutoff, &t.HalfDayCheckoutCutoff},
		{"autoCheckoutTime", a.AutoCheckout, &t.AutoCheckout},
	}
	for _, f := range fields {
		if *f.dst, err = clock.ParseHHMM(f.val); err != nil {
			return Thresholds{}, fmt.Errorf("%w: %s: %v", apperrors.ErrValidation, f.name, err)
		}
	}
	t.Grace = a.GraceMinutes
	return t, nil
}

// Validate checks that every field parses and that the thresholds are
// ordered sensibly.
func (s Settings) Validate() error {
	t, err := s.Attendance.Thresholds()
	if err != nil {
		return err
	}
	switch {
	case t.Grace < 0:
		return fmt.Errorf("%w: graceMinutes must not be negative", apperrors.ErrValidation)
	case t.Start >= t.End:
		return fmt.Errorf("%w: officeStartTime must be before officeEndTime", apperrors.ErrValidation)
	case t.HalfDayLoginCutoff < t.Start:
		return fmt.Errorf("%w: halfDayLoginCutoff must not be before officeStartTime", apperrors.ErrValidation)
	case t.HalfDayCheckoutCutoff > t.End:
		return fmt.Errorf("%w: halfDayCheckoutCutoff must not be after officeEndTime", apperrors.ErrValidation)
	}
	p := s.Payroll
	if p.AbsentDayRate.IsNegative() || p.LateDayRate.IsNegative() || p.FixedDeduction.IsNegative() {
		return fmt.Errorf("%w: payroll rates must not be negative", apperrors.ErrValidation)
	}
	return nil
}

// Patch is the allow-list of fields a caller may change. Absent fields keep
// their current value.
type Patch struct {
	OfficeStart           *string          `json:"officeStartTime" validate:"omitempty,hhmm"`
	OfficeEnd             *string          `json:"officeEndTime" validate:"omitempty,hhmm"`
	GraceMinutes          *int             `json:"graceMinutes" validate:"omitempty,min=0,max=240"`
	HalfDayLoginCutoff    *string          `json:"halfDayLoginCutoff" validate:"omitempty,hhmm"`
	HalfDayCheckoutCutoff *string          `json:"halfDayCheckoutCutoff" validate:"omitempty,hhmm"`
	AutoCheckout          *string          `json:"autoCheckoutTime" validate:"omitempty,hhmm"`
	AbsentDayRate         *decimal.Decimal `json:"absentDayRate"`
	LateDayRate           *decimal.Decimal `json:"lateDayRate"`
	FixedDeduction        *decimal.Decimal `json:"fixedDeduction"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseHHMM(fl.Field().String())
		return err == nil
	})
	return v
}

// DecodePatch reads a JSON patch, rejecting keys outside the allow-list.
func DecodePatch(r io.Reader) (Patch, error) {
	var p Patch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Patch{}, fmt.Errorf("%w: empty settings body", apperrors.ErrValidation)
		}
		return Patch{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if dec.More() {
		return Patch{}, fmt.Errorf("%w: trailing data after settings object", apperrors.ErrValidation)
	}
	return p, nil
}

// Apply returns s with p merged in, validated as a whole.
func (s Settings) Apply(p Patch) (Settings, error) {
	if err := validate.Struct(p); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	out := s
	setString(&out.Attendance.OfficeStart, p.OfficeStart)
	setString(&out.Attendance.OfficeEnd, p.OfficeEnd)
	setString(&out.Attendance.HalfDayLoginCutoff, p.HalfDayLoginCutoff)
	setString(&out.Attendance.HalfDayCheckoutCutoff, p.HalfDayCheckoutCutoff)
	setString(&out.Attendance.AutoCheckout, p.AutoCheckout)
	if p.GraceMinutes != nil {
		out.Attendance.GraceMinutes = *p.GraceMinutes
	}
	if p.AbsentDayRate != nil {
		out.Payroll.AbsentDayRate = *p.AbsentDayRate
	}
	if p.LateDayRate != nil {
		out.Payroll.LateDayRate = *p.LateDayRate
	}
	if p.FixedDeduction != nil {
		out.Payroll.FixedDeduction = *p.FixedDeduction
	}
	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// decodeStored overlays stored JSON columns onto defaults so fields added
// later still come back populated.
func decodeStored(tenantID string, attendance, payroll []byte) (Settings, error) {
	s := Defaults(tenantID)
	if len(bytes.TrimSpace(attendance)) > 0 {
		if err := json.Unmarshal(attendance, &s.Attendance); err != nil {
			return Settings{}, fmt.Errorf("decode attendance settings: %w", err)
		}
	}
	if len(bytes.TrimSpace(payroll)) > 0 {
		if err := json.Unmarshal(payroll, &s.Payroll); err != nil {
			return Settings{}, fmt.Errorf("decode payroll rules: %w", err)
		}
	}
	return s, nil
}
