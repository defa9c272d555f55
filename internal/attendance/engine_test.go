package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/tenant"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, ist)
}

var emp = Subject{ID: "emp-1", Kind: KindEmployee, TenantID: "root"}

func TestCheckInThenDoubleCheckIn(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := NewEngine(store, ist)

	first, err := e.CheckIn(ctx, emp, at(10, 15), tenant.DefaultAttendance())
	require.NoError(t, err)
	assert.Equal(t, "10:15", first.LoginTime)
	assert.Equal(t, StatusLate, first.Status)
	assert.Equal(t, StatusLate, first.Remark)
	assert.Equal(t, CheckedIn, first.State())

	_, err = e.CheckIn(ctx, emp, at(10, 40), tenant.DefaultAttendance())
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, ok := store.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, "10:15", stored.LoginTime)
	assert.True(t, stored.CheckIn.Equal(*first.CheckIn))
}

func TestConcurrentCheckInsCreateOneRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := NewEngine(store, ist)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CheckIn(ctx, emp, at(9, 55), tenant.DefaultAttendance())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyCheckedIn):
				dupes++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 15, dupes)
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	e := NewEngine(NewMemoryStore(), ist)
	_, err := e.CheckOut(context.Background(), emp, at(18, 0), tenant.DefaultAttendance())
	assert.ErrorIs(t, err, ErrNoCheckIn)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckOutComputesHoursAndRemark(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), ist)

	_, err := e.CheckIn(ctx, emp, at(9, 0), tenant.DefaultAttendance())
	require.NoError(t, err)

	rec, err := e.CheckOut(ctx, emp, at(17, 30), tenant.DefaultAttendance())
	require.NoError(t, err)
	require.NotNil(t, rec.TotalHours)
	assert.Equal(t, 8.5, *rec.TotalHours)
	assert.Equal(t, "17:30", rec.LogoutTime)
	assert.Equal(t, StatusEarlyCheckout, rec.Remark)
	assert.Equal(t, CheckedOut, rec.State())
	assert.False(t, rec.AutoClosed)

	_, err = e.CheckOut(ctx, emp, at(18, 30), tenant.DefaultAttendance())
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func TestCheckOutNextDayNeedsNewCheckIn(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), ist)

	_, err := e.CheckIn(ctx, emp, at(10, 0), tenant.DefaultAttendance())
	require.NoError(t, err)

	_, err = e.CheckOut(ctx, emp, at(10, 0).AddDate(0, 0, 1), tenant.DefaultAttendance())
	assert.ErrorIs(t, err, ErrNoCheckIn)
}

func TestInvalidSettingsAreValidationErrors(t *testing.T) {
	bad := tenant.DefaultAttendance()
	bad.OfficeStart = "25:00"
	_, err := NewEngine(NewMemoryStore(), ist).CheckIn(context.Background(), emp, at(10, 0), bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSubjectValidation(t *testing.T) {
	_, err := NewEngine(NewMemoryStore(), ist).CheckIn(context.Background(), Subject{ID: "x", Kind: "robot", TenantID: "root"}, at(10, 0), tenant.DefaultAttendance())
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestMarkAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := NewEngine(store, ist)

	rec, err := e.MarkAbsent(ctx, emp, at(0, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, rec.Status)
	assert.Equal(t, NotStarted, rec.State())

	// a late arrival overrides the absence mark
	in, err := e.CheckIn(ctx, emp, at(11, 30), tenant.DefaultAttendance())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, in.ID)
	assert.Equal(t, StatusHalfDay, in.Status)

	_, err = e.MarkAbsent(ctx, emp, at(0, 0))
	assert.ErrorIs(t, err, ErrDayStarted)
}

func TestAutoCloseUsesWorkDate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := NewEngine(store, ist)

	opened, err := e.CheckIn(ctx, emp, at(9, 0), tenant.DefaultAttendance())
	require.NoError(t, err)
	th, err := tenant.DefaultAttendance().Thresholds()
	require.NoError(t, err)
	th.AutoCheckout = 19*60 + 30

	closed, err := e.AutoClose(ctx, opened, th)
	require.NoError(t, err)
	assert.Equal(t, "19:30", closed.LogoutTime)
	assert.True(t, closed.AutoClosed)
	assert.Equal(t, 10.5, *closed.TotalHours)
	assert.Equal(t, StatusPresent, closed.Remark)

	_, err = e.AutoClose(ctx, opened, th)
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func TestTodayAndListRange(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), ist)

	_, err := e.Today(ctx, emp, at(12, 0))
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = e.CheckIn(ctx, emp, at(10, 0), tenant.DefaultAttendance())
	require.NoError(t, err)
	_, err = e.MarkAbsent(ctx, emp, at(0, 0).AddDate(0, 0, -1))
	require.NoError(t, err)

	today, err := e.Today(ctx, emp, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, "10:00", today.LoginTime)

	recs, err := e.ListRange(ctx, KindEmployee, []string{emp.ID}, at(0, 0).AddDate(0, 0, -7), at(0, 0))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, StatusAbsent, recs[0].Status)
	assert.Equal(t, StatusPresent, recs[1].Status)

	none, err := e.ListRange(ctx, KindEmployee, nil, at(0, 0), at(0, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}
