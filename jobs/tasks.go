package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSubscriptionSweep normalizes stored subscriptions past their expiry.
	TaskSubscriptionSweep = "subscription:sweep"
	// TaskFreeViewPrune deletes free-view events older than the retention cutoff.
	TaskFreeViewPrune = "freeview:prune"
)

// FreeViewPrunePayload configures the retention cutoff for a prune run.
type FreeViewPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewSubscriptionSweepTask constructs the expiry sweep task.
func NewSubscriptionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSubscriptionSweep, nil)
}

// NewFreeViewPruneTask constructs a prune task with the given retention.
func NewFreeViewPruneTask(payload FreeViewPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFreeViewPrune, data), nil
}
