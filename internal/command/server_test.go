package command

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/nudge/internal/api"
	"github.com/kazz187/nudge/pkg/cerr"
)

func newTestServer(t *testing.T, f *fixture) *api.ReminderServiceClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(api.NewReminderServiceHandler(
		NewServer(f.router, f.resolver),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor()),
	))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.NewReminderServiceClient(srv.Client(), srv.URL)
}

func TestServer_TaskLifecycle(t *testing.T) {
	f := newFixture(t)
	client := newTestServer(t, f)
	ctx := context.Background()

	added, err := client.AddTask(ctx, connect.NewRequest(&api.AddTaskRequest{
		OwnerID:     "U1",
		Description: "call mom",
		Time:        "14:30",
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, added.Msg.Task.ID)
	assert.Equal(t, "pending", added.Msg.Task.Status)
	assert.Equal(t, "scheduled", added.Msg.Task.Reminder)
	assert.True(t, f.at(14, 30).Equal(added.Msg.Task.DueAt))

	listed, err := client.ListTasks(ctx, connect.NewRequest(&api.ListTasksRequest{OwnerID: "U1"}))
	require.NoError(t, err)
	require.Len(t, listed.Msg.Tasks, 1)
	assert.Equal(t, "call mom", listed.Msg.Tasks[0].Description)

	done, err := client.CompleteTask(ctx, connect.NewRequest(&api.CompleteTaskRequest{OwnerID: "U1", ID: "1"}))
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Msg.Task.Status)
	assert.Empty(t, done.Msg.Task.Reminder)

	_, err = client.CompleteTask(ctx, connect.NewRequest(&api.CompleteTaskRequest{OwnerID: "U1", ID: "1"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	for _, when := range []string{"15:00", "16:00"} {
		_, err := client.AddTask(ctx, connect.NewRequest(&api.AddTaskRequest{OwnerID: "U1", Description: "x", Time: when}))
		require.NoError(t, err)
	}
	cleared, err := client.ClearTasks(ctx, connect.NewRequest(&api.ClearTasksRequest{OwnerID: "U1"}))
	require.NoError(t, err)
	assert.Len(t, cleared.Msg.Cleared, 2)
	assert.Zero(t, f.sched.Active())
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)
	client := newTestServer(t, f)
	ctx := context.Background()

	_, err := client.AddTask(ctx, connect.NewRequest(&api.AddTaskRequest{OwnerID: "U1", Description: "x", Time: "25:00"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.AddTask(ctx, connect.NewRequest(&api.AddTaskRequest{OwnerID: "U1", Description: "x", Time: "2025-01-01 00:00"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = client.ListTasks(ctx, connect.NewRequest(&api.ListTasksRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestServer_ResolveTime(t *testing.T) {
	f := newFixture(t)
	client := newTestServer(t, f)

	resp, err := client.ResolveTime(context.Background(), connect.NewRequest(&api.ResolveTimeRequest{Time: "09:00"}))
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", resp.Msg.Timezone)
	assert.True(t, f.at(9, 0).AddDate(0, 0, 1).Equal(resp.Msg.At))
}
