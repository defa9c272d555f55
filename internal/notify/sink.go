package notify

import (
	"context"
	"log/slog"

	"hrattendance/internal/queue"
)

// LogSink drains q and logs each event. It stands in for a delivery
// service when the queues are in-process.
func LogSink(ctx context.Context, q queue.Queue, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range msgs {
		var evt Event
		if err := msg.Decode(&evt); err != nil {
			log.Warn("undecodable notification", slog.String("message_id", msg.ID), slog.Any("error", err))
			continue
		}
		log.Info("notification",
			slog.String("type", evt.Type),
			slog.String("tenant_id", evt.TenantID),
			slog.String("subject_id", evt.SubjectID),
			slog.String("status", evt.Status),
		)
	}
	return ctx.Err()
}
