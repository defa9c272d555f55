// Package notify publishes fire-and-forget domain events to the
// notification queue.
package notify

import (
	"context"
	"log/slog"
	"time"

	"hrattendance/internal/logging"
	"hrattendance/internal/metrics"
	"hrattendance/internal/queue"
)

// Event types.
const (
	CheckedIn      = "attendance.checked_in"
	CheckedOut     = "attendance.checked_out"
	AutoCheckedOut = "attendance.auto_checked_out"
	MarkedAbsent   = "attendance.marked_absent"
	PayslipIssued  = "payroll.slip_generated"
)

const publishDeadline = 3 * time.Second

// Event is the payload delivered to the notification consumer.
type Event struct {
	Type        string    `json:"type"`
	TenantID    string    `json:"tenant_id"`
	SubjectID   string    `json:"subject_id"`
	SubjectKind string    `json:"subject_kind,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// Dispatcher publishes events to a queue on a detached goroutine.
type Dispatcher struct {
	q   queue.Queue
	log *slog.Logger
}

// NewDispatcher creates a dispatcher over q.
func NewDispatcher(q queue.Queue, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{q: q, log: log}
}

// Notify publishes evt in the background. Failures are logged and counted.
func (d *Dispatcher) Notify(ctx context.Context, evt Event) {
	if d == nil || d.q == nil {
		return
	}
	log, ok := logging.Lookup(ctx)
	if !ok {
		log = d.log
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishDeadline)
		defer cancel()
		msg, err := queue.NewMessage(queue.TypeNotification, evt)
		if err == nil {
			err = d.q.Publish(pubCtx, msg)
		}
		if err != nil {
			metrics.Notifications.WithLabelValues(evt.Type, "error").Inc()
			log.Warn("notification dropped", slog.String("type", evt.Type), slog.Any("error", err))
			return
		}
		metrics.Notifications.WithLabelValues(evt.Type, "ok").Inc()
	}()
}

// Discard drops every event.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, Event) {}
