package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
)

type recorder struct {
	runs         map[string]int
	failures     int
	roles, users int
}

func (r *recorder) RecordJob(task string, err error) {
	if r.runs == nil {
		r.runs = map[string]int{}
	}
	r.runs[task]++
	if err != nil {
		r.failures++
	}
}

func (r *recorder) RecordPruned(roles, users int) {
	r.roles += roles
	r.users += users
}

type failingPruner struct{}

func (failingPruner) PruneDangling(ctx context.Context) (rbac.PruneReport, error) {
	return rbac.PruneReport{}, errors.New("db down")
}

func TestPruneDanglingJobCleansReferences(t *testing.T) {
	ctx := context.Background()
	store := rbac.NewMemoryStore()
	svc := rbac.NewService(store, nil)
	perms, err := svc.EnsureCatalog(ctx, []string{"read_user", "delete_user"})
	require.NoError(t, err)
	role, err := svc.EnsureRole(ctx, "Ops", []int64{perms[0].ID, perms[1].ID})
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, rbac.User{Name: "Ops", Email: "ops@example.com", OverrideIDs: []int64{perms[1].ID}})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePermission(ctx, perms[1].ID))

	rec := &recorder{}
	job := NewPruneDanglingJob(svc, nil, rec)
	task, err := NewPruneDanglingTask("test", time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	gotRole, err := store.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{perms[0].ID}, gotRole.PermissionIDs)
	gotUser, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, gotUser.OverrideIDs)
	assert.Equal(t, 1, rec.runs[TaskPruneDangling])
	assert.Equal(t, 1, rec.roles)
	assert.Equal(t, 1, rec.users)
}

func TestPruneDanglingJobFailures(t *testing.T) {
	rec := &recorder{}
	job := NewPruneDanglingJob(failingPruner{}, nil, rec)
	task, err := NewPruneDanglingTask("nightly", time.Now())
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, rec.failures)

	bad := asynq.NewTask(TaskPruneDangling, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)

	var unset *PruneDanglingJob
	assert.Error(t, unset.Handle(context.Background(), task))
}

func TestNewPruneDanglingTaskPayload(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task, err := NewPruneDanglingTask("permission deleted", at)
	require.NoError(t, err)
	assert.Equal(t, TaskPruneDangling, task.Type())

	var payload PruneDanglingPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "permission deleted", payload.Reason)
	assert.True(t, at.Equal(payload.RequestedAt))
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, QueueDefault, status.Queue)
	assert.Zero(t, status.Pending)
}
