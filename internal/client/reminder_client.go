package client

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/kazz187/nudge/internal/api"
)

// ReminderClient talks to a running nudge server.
type ReminderClient struct {
	client *api.ReminderServiceClient
}

func NewReminderClient(httpClient connect.HTTPClient, baseURL, apiKey string) *ReminderClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ReminderClient{
		client: api.NewReminderServiceClient(httpClient, baseURL, connect.WithInterceptors(newAuthInterceptor(apiKey))),
	}
}

func newAuthInterceptor(apiKey string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if apiKey != "" {
				req.Header().Set("X-API-Key", apiKey)
			}
			return next(ctx, req)
		}
	}
}

func (c *ReminderClient) AddTask(ctx context.Context, ownerID, description, timeText string) (*api.Task, error) {
	resp, err := c.client.AddTask(ctx, connect.NewRequest(&api.AddTaskRequest{
		OwnerID:     ownerID,
		Description: description,
		Time:        timeText,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}
	return resp.Msg.Task, nil
}

func (c *ReminderClient) CompleteTask(ctx context.Context, ownerID, id string) (*api.Task, error) {
	resp, err := c.client.CompleteTask(ctx, connect.NewRequest(&api.CompleteTaskRequest{
		OwnerID: ownerID,
		ID:      id,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	return resp.Msg.Task, nil
}

func (c *ReminderClient) ListTasks(ctx context.Context, ownerID string) ([]*api.Task, error) {
	resp, err := c.client.ListTasks(ctx, connect.NewRequest(&api.ListTasksRequest{OwnerID: ownerID}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return resp.Msg.Tasks, nil
}

func (c *ReminderClient) ClearTasks(ctx context.Context, ownerID string) ([]*api.Task, error) {
	resp, err := c.client.ClearTasks(ctx, connect.NewRequest(&api.ClearTasksRequest{OwnerID: ownerID}))
	if err != nil {
		return nil, fmt.Errorf("failed to clear tasks: %w", err)
	}
	return resp.Msg.Cleared, nil
}

func (c *ReminderClient) ResolveTime(ctx context.Context, text string) (*api.ResolveTimeResponse, error) {
	resp, err := c.client.ResolveTime(ctx, connect.NewRequest(&api.ResolveTimeRequest{Time: text}))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve time: %w", err)
	}
	return resp.Msg, nil
}
