package pushnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/nudge/internal/config"
	"github.com/kazz187/nudge/internal/pushsubscription"
)

const (
	defaultTitle = "Nudge"
	ttlSeconds   = 86400
	maxParallel  = 8
)

var ErrNoSubscription = errors.New("owner has no push subscription")

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers reminders as Web Push notifications to every browser an
// owner registered.
type Sender struct {
	vapidEnv   *config.VAPIDEnv
	repo       pushsubscription.Repository
	httpClient webpush.HTTPClient
}

type SenderOption func(*Sender)

func WithHTTPClient(c webpush.HTTPClient) SenderOption {
	return func(s *Sender) {
		s.httpClient = c
	}
}

func NewSender(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, opts ...SenderOption) *Sender {
	s := &Sender{
		vapidEnv: vapidEnv,
		repo:     repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify succeeds when at least one of the owner's subscriptions accepted
// the message.
func (s *Sender) Notify(ctx context.Context, ownerID, text string) error {
	if !s.vapidEnv.Configured() {
		return errors.New("push notification: VAPID keys not configured")
	}
	subs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("push notification: list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return ErrNoSubscription
	}

	data, err := json.Marshal(&NotificationPayload{
		Title: defaultTitle,
		Body:  text,
		Tag:   ownerID,
	})
	if err != nil {
		return fmt.Errorf("push notification: marshal payload: %w", err)
	}

	var delivered atomic.Int32
	p := pool.New().WithErrors().WithMaxGoroutines(maxParallel)
	for _, sub := range subs {
		p.Go(func() error {
			if err := s.sendToSubscription(ctx, sub, data); err != nil {
				return err
			}
			delivered.Add(1)
			return nil
		})
	}
	err = p.Wait()
	if delivered.Load() > 0 {
		if err != nil {
			slog.WarnContext(ctx, "push notification: partial delivery", "delivered", delivered.Load(), "subscriptions", len(subs), "error", err)
		}
		return nil
	}
	return err
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, wpSub, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.vapidEnv.VAPIDPublicKey,
		VAPIDPrivateKey: s.vapidEnv.VAPIDPrivateKey,
		Subscriber:      s.vapidEnv.VAPIDContact,
		TTL:             ttlSeconds,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("push notification: send to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		slog.InfoContext(ctx, "push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			slog.ErrorContext(ctx, "push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return fmt.Errorf("push notification: subscription %s expired", sub.ID)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push notification: %s returned status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}
