package pushnotification

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/nudge/internal/api"
	"github.com/kazz187/nudge/internal/config"
	"github.com/kazz187/nudge/internal/pushsubscription"
	"github.com/kazz187/nudge/pkg/cerr"
)

var _ api.PushNotificationServiceHandler = (*Server)(nil)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	now      func() time.Time
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		now:      time.Now,
	}
}

func (s *Server) GetVapidPublicKey(_ context.Context, _ *connect.Request[api.GetVapidPublicKeyRequest]) (*connect.Response[api.GetVapidPublicKeyResponse], error) {
	if s.vapidEnv.VAPIDPublicKey == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	return connect.NewResponse(&api.GetVapidPublicKeyResponse{
		PublicKey: s.vapidEnv.VAPIDPublicKey,
	}), nil
}

func (s *Server) RegisterPushSubscription(ctx context.Context, req *connect.Request[api.RegisterPushSubscriptionRequest]) (*connect.Response[api.RegisterPushSubscriptionResponse], error) {
	switch {
	case req.Msg.OwnerID == "":
		return nil, cerr.NewError(cerr.InvalidArgument, "owner_id is required", nil)
	case req.Msg.Endpoint == "":
		return nil, cerr.NewError(cerr.InvalidArgument, "endpoint is required", nil)
	case req.Msg.P256dhKey == "":
		return nil, cerr.NewError(cerr.InvalidArgument, "p256dh_key is required", nil)
	case req.Msg.AuthKey == "":
		return nil, cerr.NewError(cerr.InvalidArgument, "auth_key is required", nil)
	}

	// Re-registering an endpoint replaces its keys and owner.
	existing, err := s.repo.FindByEndpoint(ctx, req.Msg.Endpoint)
	if err == nil {
		existing.OwnerID = req.Msg.OwnerID
		existing.P256dhKey = req.Msg.P256dhKey
		existing.AuthKey = req.Msg.AuthKey
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
		if err := s.repo.Create(ctx, existing); err != nil {
			return nil, err
		}
		return connect.NewResponse(&api.RegisterPushSubscriptionResponse{ID: existing.ID}), nil
	}
	if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}

	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		OwnerID:   req.Msg.OwnerID,
		Endpoint:  req.Msg.Endpoint,
		P256dhKey: req.Msg.P256dhKey,
		AuthKey:   req.Msg.AuthKey,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.RegisterPushSubscriptionResponse{ID: sub.ID}), nil
}

func (s *Server) UnregisterPushSubscription(ctx context.Context, req *connect.Request[api.UnregisterPushSubscriptionRequest]) (*connect.Response[api.UnregisterPushSubscriptionResponse], error) {
	if req.Msg.Endpoint == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "endpoint is required", nil)
	}
	if err := s.repo.DeleteByEndpoint(ctx, req.Msg.Endpoint); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.UnregisterPushSubscriptionResponse{}), nil
}
