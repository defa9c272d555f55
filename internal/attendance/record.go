package attendance

import (
	"time"

	"hrattendance/internal/apperrors"
)

// SubjectKind distinguishes employees from hierarchy nodes that also clock in.
type SubjectKind string

const (
	KindEmployee SubjectKind = "employee"
	KindAdmin    SubjectKind = "admin"
)

// Valid reports whether k is a known kind.
func (k SubjectKind) Valid() bool {
	return k == KindEmployee || k == KindAdmin
}

// Status and remark labels.
const (
	StatusPresent       = "Present"
	StatusLate          = "Late"
	StatusLateLogin     = "Late Login"
	StatusHalfDay       = "Half Day"
	StatusEarlyCheckout = "Early Checkout"
	StatusIncomplete    = "Incomplete"
	StatusAbsent        = "Absent"
)

// State is the per-day position in the check-in/check-out lifecycle.
type State string

const (
	NotStarted State = "not_started"
	CheckedIn  State = "checked_in"
	CheckedOut State = "checked_out"
)

// Domain errors.
var (
	ErrAlreadyCheckedIn  = apperrors.New(apperrors.ErrConflict, "already checked in today")
	ErrAlreadyCheckedOut = apperrors.New(apperrors.ErrConflict, "already checked out today")
	ErrNoCheckIn         = apperrors.New(apperrors.ErrNotFound, "no check-in recorded today")
	ErrNoRecord          = apperrors.New(apperrors.ErrNotFound, "no attendance record for this day")
)

// Subject identifies whose day a record tracks.
type Subject struct {
	ID       string
	Kind     SubjectKind
	TenantID string
}

func (s Subject) validate() error {
	if s.ID == "" || !s.Kind.Valid() || s.TenantID == "" {
		return apperrors.New(apperrors.ErrValidation, "subject id, kind and tenant are required")
	}
	return nil
}

// Record is one subject's attendance for one work date.
type Record struct {
	ID          string      `json:"id"`
	SubjectID   string      `json:"subjectId"`
	SubjectKind SubjectKind `json:"subjectKind"`
	TenantID    string      `json:"tenantId"`
	WorkDate    time.Time   `json:"workDate"`
	CheckIn     *time.Time  `json:"checkIn,omitempty"`
	CheckOut    *time.Time  `json:"checkOut,omitempty"`
	LoginTime   string      `json:"loginTime,omitempty"`
	LogoutTime  string      `json:"logoutTime,omitempty"`
	TotalHours  *float64    `json:"totalHours,omitempty"`
	Status      string      `json:"status"`
	Remark      string      `json:"remark"`
	AutoClosed  bool        `json:"autoClosed"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// State derives the lifecycle position from the timestamps.
func (r *Record) State() State {
	switch {
	case r == nil || r.CheckIn == nil:
		return NotStarted
	case r.CheckOut == nil:
		return CheckedIn
	default:
		return CheckedOut
	}
}

// Subject returns the record's subject.
func (r *Record) Subject() Subject {
	return Subject{ID: r.SubjectID, Kind: r.SubjectKind, TenantID: r.TenantID}
}
