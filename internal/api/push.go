package api

const (
	PushServiceName = "nudge.v1.PushNotificationService"

	PushServiceGetVapidPublicKeyProcedure          = "/" + PushServiceName + "/GetVapidPublicKey"
	PushServiceRegisterPushSubscriptionProcedure   = "/" + PushServiceName + "/RegisterPushSubscription"
	PushServiceUnregisterPushSubscriptionProcedure = "/" + PushServiceName + "/UnregisterPushSubscription"
)

type GetVapidPublicKeyRequest struct{}

type GetVapidPublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type RegisterPushSubscriptionRequest struct {
	OwnerID   string `json:"owner_id"`
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

type RegisterPushSubscriptionResponse struct {
	ID string `json:"id"`
}

type UnregisterPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}

type UnregisterPushSubscriptionResponse struct{}
