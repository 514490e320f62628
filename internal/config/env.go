package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// APIKey enables the Connect API. Left empty, only the chat webhook is
	// served.
	APIKey string `envconfig:"API_KEY"`
}

type ReminderEnv struct {
	Timezone           string        `envconfig:"TIMEZONE" default:"Asia/Bangkok"`
	EscalationInterval time.Duration `envconfig:"ESCALATION_INTERVAL" default:"1h"`
	MinYear            int           `envconfig:"MIN_YEAR" default:"2024"`
	NotifyChannel      string        `envconfig:"NOTIFY_CHANNEL" default:"line"`
	MessagesFile       string        `envconfig:"MESSAGES_FILE"`
}

type LINEEnv struct {
	ChannelSecret      string `envconfig:"LINE_CHANNEL_SECRET"`
	ChannelAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	APIBase            string `envconfig:"LINE_API_BASE" default:"https://api.line.me/v2/bot"`
	WebhookPath        string `envconfig:"LINE_WEBHOOK_PATH" default:"/webhook"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT"`
}

func (e *VAPIDEnv) Configured() bool {
	return e != nil && e.VAPIDPublicKey != "" && e.VAPIDPrivateKey != ""
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"memory"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".nudge/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"nudge/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-southeast-1"`
}

type Env struct {
	BaseEnv
	ReminderEnv
	LINEEnv
	VAPIDEnv
	StorageEnv
}

const (
	namespace = "NUDGE"

	ChannelLINE    = "line"
	ChannelWebPush = "webpush"
	ChannelLog     = "log"
)

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	if e.EscalationInterval <= 0 {
		return fmt.Errorf("%s_ESCALATION_INTERVAL must be positive, got %s", namespace, e.EscalationInterval)
	}
	if _, err := e.Location(); err != nil {
		return err
	}
	switch e.NotifyChannel {
	case ChannelLINE:
		if e.ChannelSecret == "" || e.ChannelAccessToken == "" {
			return fmt.Errorf("%s_LINE_CHANNEL_SECRET and %s_LINE_CHANNEL_ACCESS_TOKEN are required for the line channel", namespace, namespace)
		}
	case ChannelWebPush:
		if !e.VAPIDEnv.Configured() {
			return fmt.Errorf("%s_VAPID_PUBLIC_KEY and %s_VAPID_PRIVATE_KEY are required for the webpush channel", namespace, namespace)
		}
	case ChannelLog:
	default:
		return fmt.Errorf("unknown %s_NOTIFY_CHANNEL %q", namespace, e.NotifyChannel)
	}
	switch e.StorageEnv.Type {
	case "memory", "local":
	case "s3":
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required for s3 storage", namespace)
		}
	default:
		return fmt.Errorf("unknown %s_STORAGE_TYPE %q", namespace, e.StorageEnv.Type)
	}
	return nil
}

// Location is the single timezone every time of day is read and shown in.
func (e *ReminderEnv) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid %s_TIMEZONE %q: %w", namespace, e.Timezone, err)
	}
	return loc, nil
}

func (e *BaseEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}
