package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPruneDangling removes references to deleted permissions.
	TaskPruneDangling = "rbac:prune_dangling"
)

// PruneDanglingPayload records why a prune run was requested.
type PruneDanglingPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewPruneDanglingTask constructs an Asynq task for the prune job.
func NewPruneDanglingTask(reason string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(PruneDanglingPayload{Reason: reason, RequestedAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPruneDangling, body, asynq.Queue(QueueDefault)), nil
}
