package command

import (
	"context"

	"connectrpc.com/connect"

	"github.com/kazz187/nudge/internal/api"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/internal/timeparse"
	"github.com/kazz187/nudge/pkg/cerr"
)

var _ api.ReminderServiceHandler = (*Server)(nil)

// Server exposes the Router over connect.
type Server struct {
	router   *Router
	resolver *timeparse.Resolver
}

func NewServer(router *Router, resolver *timeparse.Resolver) *Server {
	return &Server{router: router, resolver: resolver}
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return cerr.NewError(cerr.InvalidArgument, "owner_id is required", nil)
	}
	return nil
}

func (s *Server) AddTask(ctx context.Context, req *connect.Request[api.AddTaskRequest]) (*connect.Response[api.AddTaskResponse], error) {
	if err := requireOwner(req.Msg.OwnerID); err != nil {
		return nil, err
	}
	t, err := s.router.AddTask(ctx, req.Msg.OwnerID, req.Msg.Description, req.Msg.Time)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.AddTaskResponse{Task: s.toAPI(t)}), nil
}

func (s *Server) CompleteTask(ctx context.Context, req *connect.Request[api.CompleteTaskRequest]) (*connect.Response[api.CompleteTaskResponse], error) {
	if err := requireOwner(req.Msg.OwnerID); err != nil {
		return nil, err
	}
	t, err := s.router.CompleteTask(ctx, req.Msg.OwnerID, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.CompleteTaskResponse{Task: s.toAPI(t)}), nil
}

func (s *Server) ListTasks(ctx context.Context, req *connect.Request[api.ListTasksRequest]) (*connect.Response[api.ListTasksResponse], error) {
	if err := requireOwner(req.Msg.OwnerID); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.ListTasksResponse{
		Tasks: s.toAPIList(s.router.ListTasks(ctx, req.Msg.OwnerID)),
	}), nil
}

func (s *Server) ClearTasks(ctx context.Context, req *connect.Request[api.ClearTasksRequest]) (*connect.Response[api.ClearTasksResponse], error) {
	if err := requireOwner(req.Msg.OwnerID); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.ClearTasksResponse{
		Cleared: s.toAPIList(s.router.ClearTasks(ctx, req.Msg.OwnerID)),
	}), nil
}

func (s *Server) ResolveTime(_ context.Context, req *connect.Request[api.ResolveTimeRequest]) (*connect.Response[api.ResolveTimeResponse], error) {
	at, err := s.resolver.Resolve(req.Msg.Time, s.router.Now())
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, err.Error(), err)
	}
	return connect.NewResponse(&api.ResolveTimeResponse{
		At:       at,
		Timezone: s.resolver.Location().String(),
	}), nil
}

func (s *Server) toAPI(t *task.Task) *api.Task {
	out := &api.Task{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Description: t.Description,
		DueAt:       t.DueAt,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
	if state, ok := s.router.ReminderState(t.OwnerID, t.ID); ok {
		out.Reminder = state.String()
	}
	return out
}

func (s *Server) toAPIList(tasks []*task.Task) []*api.Task {
	out := make([]*api.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, s.toAPI(t))
	}
	return out
}
