package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
)

// Pruner drops dangling permission references.
type Pruner interface {
	PruneDangling(ctx context.Context) (rbac.PruneReport, error)
}

// Recorder receives job outcome metrics.
type Recorder interface {
	RecordJob(task string, err error)
	RecordPruned(roles, users int)
}

// PruneDanglingJob rewrites roles and users that still reference deleted
// permissions. Resolution already ignores such ids; this only tidies storage.
type PruneDanglingJob struct {
	Pruner  Pruner
	Logger  *slog.Logger
	Metrics Recorder
	clock   func() time.Time
}

// NewPruneDanglingJob initialises the prune handler.
func NewPruneDanglingJob(pruner Pruner, logger *slog.Logger, metrics Recorder) *PruneDanglingJob {
	return &PruneDanglingJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one prune run.
func (j *PruneDanglingJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("prune dangling: handler not configured")
	}
	var payload PruneDanglingPayload
	if body := t.Payload(); len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	start := j.clock()
	report, err := j.Pruner.PruneDangling(ctx)
	if j.Metrics != nil {
		j.Metrics.RecordJob(TaskPruneDangling, err)
	}
	if err != nil {
		j.log().Error("prune dangling failed", slog.String("reason", payload.Reason), slog.Any("error", err))
		return err
	}
	if j.Metrics != nil {
		j.Metrics.RecordPruned(report.Roles, report.Users)
	}
	j.log().Info("prune dangling complete",
		slog.String("reason", payload.Reason),
		slog.Int("roles", report.Roles),
		slog.Int("users", report.Users),
		slog.Duration("took", j.clock().Sub(start)),
	)
	return nil
}

func (j *PruneDanglingJob) log() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
