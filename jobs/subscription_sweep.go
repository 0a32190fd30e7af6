package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SubscriptionSweeper normalizes lapsed subscriptions.
type SubscriptionSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// NewSubscriptionSweepHandler returns the asynq handler for the expiry sweep.
func NewSubscriptionSweepHandler(sweeper SubscriptionSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		swept, err := sweeper.SweepExpired(ctx, time.Now())
		if err != nil {
			logger.Error("subscription sweep failed", slog.Any("error", err))
			return err
		}
		logger.Info("subscription sweep done", slog.Int("swept", swept))
		return nil
	}
}
