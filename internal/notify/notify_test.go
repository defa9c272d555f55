package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrattendance/internal/logging"
	"hrattendance/internal/queue"
)

type failingQueue struct{ calls chan struct{} }

func (f failingQueue) Publish(context.Context, queue.Message) error {
	f.calls <- struct{}{}
	return errors.New("redis down")
}

func (failingQueue) Consume(context.Context) (<-chan queue.Message, error) { return nil, nil }

func TestDispatcherPublishesEvent(t *testing.T) {
	q := queue.NewInMemory(1)
	d := NewDispatcher(q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, Event{Type: CheckedIn, TenantID: "root", SubjectID: "emp-1", Status: "Late"})
	// the request context ending must not abort delivery
	cancel()

	consumeCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	ch, err := q.Consume(consumeCtx)
	require.NoError(t, err)

	msg, ok := <-ch
	require.True(t, ok, "event not delivered")
	assert.Equal(t, queue.TypeNotification, msg.Type)
	var evt Event
	require.NoError(t, msg.Decode(&evt))
	assert.Equal(t, "emp-1", evt.SubjectID)
	assert.Equal(t, "Late", evt.Status)
}

func TestDispatcherSwallowsPublishFailure(t *testing.T) {
	calls := make(chan struct{}, 1)
	d := NewDispatcher(failingQueue{calls: calls}, nil)

	assert.NotPanics(t, func() { d.Notify(context.Background(), Event{Type: MarkedAbsent}) })
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("publish not attempted")
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() { d.Notify(context.Background(), Event{}) })
}

func TestLogSinkDrainsQueue(t *testing.T) {
	q := queue.NewInMemory(2)
	msg, err := queue.NewMessage(queue.TypeNotification, Event{Type: CheckedOut, SubjectID: "emp-1"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), msg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- LogSink(ctx, q, nil) }()

	require.Eventually(t, func() bool {
		pctx, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer stop()
		// a free slot pair means the sink took the first message
		return q.Publish(pctx, msg) == nil && q.Publish(pctx, msg) == nil
	}, time.Second, 20*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDispatcherLogsDropsToItsLoggerByDefault(t *testing.T) {
	var own, scoped lockedBuffer
	d := NewDispatcher(failingQueue{calls: make(chan struct{}, 2)}, slog.New(slog.NewJSONHandler(&own, nil)))

	d.Notify(context.Background(), Event{Type: CheckedIn})
	require.Eventually(t, func() bool { return own.String() != "" }, time.Second, 10*time.Millisecond)
	assert.Contains(t, own.String(), "notification dropped")

	ctx := logging.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)))
	d.Notify(ctx, Event{Type: CheckedOut})
	require.Eventually(t, func() bool { return scoped.String() != "" }, time.Second, 10*time.Millisecond)
	assert.Contains(t, scoped.String(), CheckedOut)
	assert.NotContains(t, own.String(), CheckedOut)
}
