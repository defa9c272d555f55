package sweep

import (
	"context"
	"errors"
	"log/slog"

	"hrattendance/internal/queue"
)

// Serve consumes sweep messages from q until ctx is done. A sweep already in
// progress elsewhere is not an error for the consumer.
func (r *Runner) Serve(ctx context.Context, q queue.Queue) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			rep, err := r.Handle(ctx, msg)
			switch {
			case errors.Is(err, ErrSweepInProgress):
				r.log.Info("sweep skipped, another run holds the lock", slog.String("message_id", msg.ID))
			case err != nil:
				r.log.Error("sweep message failed", slog.String("message_id", msg.ID), slog.Any("error", err))
			case msg.Type == queue.TypeSweep:
				r.log.Info("sweep finished",
					slog.String("message_id", msg.ID),
					slog.String("day", rep.Day),
					slog.Bool("skipped", rep.Skipped),
					slog.Int("scanned", rep.Scanned),
					slog.Int("closed", rep.Closed),
					slog.Int("deferred", rep.Deferred),
					slog.Int("failed", rep.Failed),
				)
			}
		}
	}
}
