package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/kazz187/nudge/pkg/jsoncodec"
)

type PushNotificationServiceHandler interface {
	GetVapidPublicKey(context.Context, *connect.Request[GetVapidPublicKeyRequest]) (*connect.Response[GetVapidPublicKeyResponse], error)
	RegisterPushSubscription(context.Context, *connect.Request[RegisterPushSubscriptionRequest]) (*connect.Response[RegisterPushSubscriptionResponse], error)
	UnregisterPushSubscription(context.Context, *connect.Request[UnregisterPushSubscriptionRequest]) (*connect.Response[UnregisterPushSubscriptionResponse], error)
}

func NewPushNotificationServiceHandler(svc PushNotificationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{jsoncodec.HandlerOption()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(PushServiceGetVapidPublicKeyProcedure, connect.NewUnaryHandler(PushServiceGetVapidPublicKeyProcedure, svc.GetVapidPublicKey, opts...))
	mux.Handle(PushServiceRegisterPushSubscriptionProcedure, connect.NewUnaryHandler(PushServiceRegisterPushSubscriptionProcedure, svc.RegisterPushSubscription, opts...))
	mux.Handle(PushServiceUnregisterPushSubscriptionProcedure, connect.NewUnaryHandler(PushServiceUnregisterPushSubscriptionProcedure, svc.UnregisterPushSubscription, opts...))
	return "/" + PushServiceName + "/", mux
}
