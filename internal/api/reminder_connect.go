package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/nudge/pkg/jsoncodec"
)

type ReminderServiceHandler interface {
	AddTask(context.Context, *connect.Request[AddTaskRequest]) (*connect.Response[AddTaskResponse], error)
	CompleteTask(context.Context, *connect.Request[CompleteTaskRequest]) (*connect.Response[CompleteTaskResponse], error)
	ListTasks(context.Context, *connect.Request[ListTasksRequest]) (*connect.Response[ListTasksResponse], error)
	ClearTasks(context.Context, *connect.Request[ClearTasksRequest]) (*connect.Response[ClearTasksResponse], error)
	ResolveTime(context.Context, *connect.Request[ResolveTimeRequest]) (*connect.Response[ResolveTimeResponse], error)
}

// NewReminderServiceHandler builds an HTTP handler serving every
// ReminderService procedure. It returns the path to mount it on.
func NewReminderServiceHandler(svc ReminderServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{jsoncodec.HandlerOption()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(ReminderServiceAddTaskProcedure, connect.NewUnaryHandler(ReminderServiceAddTaskProcedure, svc.AddTask, opts...))
	mux.Handle(ReminderServiceCompleteTaskProcedure, connect.NewUnaryHandler(ReminderServiceCompleteTaskProcedure, svc.CompleteTask, opts...))
	mux.Handle(ReminderServiceListTasksProcedure, connect.NewUnaryHandler(ReminderServiceListTasksProcedure, svc.ListTasks, opts...))
	mux.Handle(ReminderServiceClearTasksProcedure, connect.NewUnaryHandler(ReminderServiceClearTasksProcedure, svc.ClearTasks, opts...))
	mux.Handle(ReminderServiceResolveTimeProcedure, connect.NewUnaryHandler(ReminderServiceResolveTimeProcedure, svc.ResolveTime, opts...))
	return "/" + ReminderServiceName + "/", mux
}

type ReminderServiceClient struct {
	addTask      *connect.Client[AddTaskRequest, AddTaskResponse]
	completeTask *connect.Client[CompleteTaskRequest, CompleteTaskResponse]
	listTasks    *connect.Client[ListTasksRequest, ListTasksResponse]
	clearTasks   *connect.Client[ClearTasksRequest, ClearTasksResponse]
	resolveTime  *connect.Client[ResolveTimeRequest, ResolveTimeResponse]
}

func NewReminderServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReminderServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{jsoncodec.ClientOption()}, opts...)
	return &ReminderServiceClient{
		addTask:      connect.NewClient[AddTaskRequest, AddTaskResponse](httpClient, baseURL+ReminderServiceAddTaskProcedure, opts...),
		completeTask: connect.NewClient[CompleteTaskRequest, CompleteTaskResponse](httpClient, baseURL+ReminderServiceCompleteTaskProcedure, opts...),
		listTasks:    connect.NewClient[ListTasksRequest, ListTasksResponse](httpClient, baseURL+ReminderServiceListTasksProcedure, opts...),
		clearTasks:   connect.NewClient[ClearTasksRequest, ClearTasksResponse](httpClient, baseURL+ReminderServiceClearTasksProcedure, opts...),
		resolveTime:  connect.NewClient[ResolveTimeRequest, ResolveTimeResponse](httpClient, baseURL+ReminderServiceResolveTimeProcedure, opts...),
	}
}

func (c *ReminderServiceClient) AddTask(ctx context.Context, req *connect.Request[AddTaskRequest]) (*connect.Response[AddTaskResponse], error) {
	return c.addTask.CallUnary(ctx, req)
}

func (c *ReminderServiceClient) CompleteTask(ctx context.Context, req *connect.Request[CompleteTaskRequest]) (*connect.Response[CompleteTaskResponse], error) {
	return c.completeTask.CallUnary(ctx, req)
}

func (c *ReminderServiceClient) ListTasks(ctx context.Context, req *connect.Request[ListTasksRequest]) (*connect.Response[ListTasksResponse], error) {
	return c.listTasks.CallUnary(ctx, req)
}

func (c *ReminderServiceClient) ClearTasks(ctx context.Context, req *connect.Request[ClearTasksRequest]) (*connect.Response[ClearTasksResponse], error) {
	return c.clearTasks.CallUnary(ctx, req)
}

func (c *ReminderServiceClient) ResolveTime(ctx context.Context, req *connect.Request[ResolveTimeRequest]) (*connect.Response[ResolveTimeResponse], error) {
	return c.resolveTime.CallUnary(ctx, req)
}
