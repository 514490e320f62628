package pushsubscription

import "time"

// Subscription is a browser push endpoint registered by an owner.
type Subscription struct {
	ID        string    `yaml:"id"`
	OwnerID   string    `yaml:"owner_id"`
	Endpoint  string    `yaml:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key"`
	AuthKey   string    `yaml:"auth_key"`
	CreatedAt time.Time `yaml:"created_at"`
}
