package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultFreeViewRetention keeps events for a week. The quota window only
// looks back 24 hours, so anything older is dead weight.
const DefaultFreeViewRetention = 7 * 24 * time.Hour

// FreeViewPruner deletes free-view events older than a cutoff.
type FreeViewPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewFreeViewPruneHandler returns the asynq handler for event retention.
func NewFreeViewPruneHandler(pruner FreeViewPruner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		retention := DefaultFreeViewRetention
		if len(t.Payload()) > 0 {
			var payload FreeViewPrunePayload
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
			if payload.Retention > 0 {
				retention = payload.Retention
			}
		}
		deleted, err := pruner.DeleteBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Error("free-view prune failed", slog.Any("error", err))
			return err
		}
		logger.Info("free-view prune done", slog.Int64("deleted", deleted))
		return nil
	}
}
