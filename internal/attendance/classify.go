package attendance

import (
	"math"
	"time"

	"hrattendance/internal/clock"
	"hrattendance/internal/tenant"
)

// ClassifyCheckIn labels a login at loginMinutes past midnight.
func ClassifyCheckIn(loginMinutes int, th tenant.Thresholds) string {
	switch {
	case loginMinutes > th.HalfDayLoginCutoff:
		return StatusHalfDay
	case loginMinutes > th.Start+th.Grace:
		return StatusLate
	default:
		return StatusPresent
	}
}

// ClassifyCheckOut labels a closed day from its HH:MM login and logout.
// The first matching rule wins.
func ClassifyCheckOut(login, logout string, th tenant.Thresholds) string {
	if login == "" || logout == "" {
		return StatusIncomplete
	}
	in, err := clock.ParseHHMM(login)
	if err != nil {
		return StatusIncomplete
	}
	out, err := clock.ParseHHMM(logout)
	if err != nil {
		return StatusIncomplete
	}
	switch {
	case in > th.Start+th.Grace:
		return StatusLateLogin
	case out < th.HalfDayCheckoutCutoff:
		return StatusHalfDay
	case out < th.End:
		return StatusEarlyCheckout
	default:
		return StatusPresent
	}
}

// TotalHours is the elapsed time between in and out in hours, rounded to two
// decimals and never negative.
func TotalHours(in, out time.Time) float64 {
	d := out.Sub(in)
	if d < 0 {
		return 0
	}
	return math.Round(d.Hours()*100) / 100
}

// Close sets the check-out side of rec at the given instant and reclassifies
// it. The check-out is clamped so it never precedes the check-in.
func Close(rec *Record, at time.Time, th tenant.Thresholds, loc *time.Location) {
	if rec.CheckIn != nil && at.Before(*rec.CheckIn) {
		at = *rec.CheckIn
	}
	out := at.UTC()
	rec.CheckOut = &out
	rec.LogoutTime = clock.FormatHHMM(at, loc)
	if rec.CheckIn != nil {
		hours := TotalHours(*rec.CheckIn, out)
		rec.TotalHours = &hours
	}
	rec.Remark = ClassifyCheckOut(rec.LoginTime, rec.LogoutTime, th)
	rec.Status = rec.Remark
}
