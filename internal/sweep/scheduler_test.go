package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrattendance/internal/attendance"
	"hrattendance/internal/clock"
	"hrattendance/internal/queue"
	"hrattendance/internal/tenant"
)

func drain(t *testing.T, q *queue.InMemory) []Request {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	var out []Request
	for msg := range ch {
		require.Equal(t, queue.TypeSweep, msg.Type)
		var req Request
		require.NoError(t, msg.Decode(&req))
		out = append(out, req)
	}
	return out
}

// listQueue keeps published messages for synchronous handling.
type listQueue struct {
	msgs []queue.Message
}

func (q *listQueue) Publish(_ context.Context, msg queue.Message) error {
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *listQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, nil
}

func (q *listQueue) take() []queue.Message {
	out := q.msgs
	q.msgs = nil
	return out
}

func TestSchedulerPublishesOncePerDay(t *testing.T) {
	q := queue.NewInMemory(8)
	now := at(17, 59)
	s := NewScheduler(q, SchedulerConfig{Cutoff: clock.MustHHMM("18:00"), Location: ist}, nil).
		WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, s.CatchUp(ctx))

	published, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, published)

	now = at(18, 0)
	published, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	now = at(21, 0)
	published, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, published)

	reqs := drain(t, q)
	require.Len(t, reqs, 2)
	assert.Equal(t, "2026-03-01", reqs[0].Day)
	assert.Equal(t, "scheduler", reqs[1].RequestedBy)
	assert.Empty(t, reqs[1].Day)
}

func TestSchedulerQueuesYesterdayAfterMidnight(t *testing.T) {
	q := queue.NewInMemory(8)
	now := at(18, 0)
	s := NewScheduler(q, SchedulerConfig{Location: ist}, nil).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	// first tick ever: yesterday plus today's sweep
	published, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	now = at(23, 59)
	published, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, published)

	now = at(0, 1).AddDate(0, 0, 1)
	published, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	now = at(0, 2).AddDate(0, 0, 1)
	published, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, published)

	reqs := drain(t, q)
	require.Len(t, reqs, 3)
	assert.Equal(t, "2026-03-01", reqs[0].Day)
	assert.Empty(t, reqs[1].Day)
	assert.Equal(t, "2026-03-02", reqs[2].Day)
}

func TestSchedulerRepeats(t *testing.T) {
	q := queue.NewInMemory(8)
	now := at(18, 0)
	s := NewScheduler(q, SchedulerConfig{Location: ist, Repeat: 30 * time.Minute}, nil).
		WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, s.CatchUp(ctx))

	for _, step := range []struct {
		at   time.Time
		want bool
	}{
		{at(18, 0), true},
		{at(18, 20), false},
		{at(18, 30), true},
		{at(19, 15), true},
	} {
		now = step.at
		published, err := s.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, step.want, published, step.at.Format(clock.Layout))
	}
}

func TestSchedulerCatchUpTargetsYesterday(t *testing.T) {
	q := queue.NewInMemory(1)
	s := NewScheduler(q, SchedulerConfig{Location: ist}, nil).
		WithClock(func() time.Time { return at(8, 0) })

	require.NoError(t, s.CatchUp(context.Background()))
	reqs := drain(t, q)
	require.Len(t, reqs, 1)
	assert.Equal(t, "2026-03-01", reqs[0].Day)
}

func TestLateTenantDayClosesAfterMidnight(t *testing.T) {
	ctx := context.Background()
	store := attendance.NewMemoryStore()
	engine := attendance.NewEngine(store, ist)
	open, err := engine.CheckIn(ctx, attendance.Subject{ID: "e1", Kind: attendance.KindEmployee, TenantID: "night"}, at(9, 0), tenant.DefaultAttendance())
	require.NoError(t, err)

	now := at(17, 55)
	clockFn := func() time.Time { return now }
	settings := settingsByTenant{autoCheckout: map[string]string{"night": "23:50"}}
	sw := NewSweeper(engine, settings, nil, Config{Cutoff: clock.MustHHMM("18:00"), Location: ist}, nil)
	runner := NewRunner(sw, NewMemoryLocker(), time.Minute, nil).WithClock(clockFn)
	q := &listQueue{}
	sched := NewScheduler(q, SchedulerConfig{Location: ist, Repeat: 30 * time.Minute}, nil).WithClock(clockFn)

	// the last same-day repeat slot falls before 23:50, so only the
	// next day's catch-up can close the record
	end := at(19, 0).AddDate(0, 0, 1)
	for ; !now.After(end); now = now.Add(time.Minute) {
		_, err := sched.Tick(ctx)
		require.NoError(t, err)
		for _, msg := range q.take() {
			_, err := runner.Handle(ctx, msg)
			require.NoError(t, err)
		}
	}

	got, ok := store.Get(open.ID)
	require.True(t, ok)
	assert.Equal(t, attendance.CheckedOut, got.State())
	assert.Equal(t, "23:50", got.LogoutTime)
	assert.True(t, got.AutoClosed)
}
