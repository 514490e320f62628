package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/nudge/pkg/clog"
)

const maxBodySize = 1 << 20

type webhookBody struct {
	Destination string  `json:"destination"`
	Events      []event `json:"events"`
}

type event struct {
	Type       string   `json:"type"`
	ReplyToken string   `json:"replyToken,omitempty"`
	Source     source   `json:"source"`
	Message    *message `json:"message,omitempty"`
}

type source struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

type message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextHandler produces the reply for a text message from an owner.
type TextHandler interface {
	Handle(ctx context.Context, ownerID, text string) string
}

type Replier interface {
	Reply(ctx context.Context, replyToken string, texts ...string) error
}

// Webhook receives LINE platform events. Requests are acknowledged as soon
// as they are verified and parsed; the commands in them run afterwards.
type Webhook struct {
	secret  string
	handler TextHandler
	replier Replier

	wg conc.WaitGroup

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewWebhook(channelSecret string, handler TextHandler, replier Replier) *Webhook {
	return &Webhook{
		secret:  channelSecret,
		handler: handler,
		replier: replier,
		seen:    make(map[string]time.Time),
	}
}

func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		clog.AddError(r.Context(), err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !VerifySignature(wh.secret, body, r.Header.Get("X-Line-Signature")) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	var hook webhookBody
	if err := json.Unmarshal(body, &hook); err != nil {
		clog.AddError(r.Context(), err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	clog.AddAttribute(r.Context(), "events", len(hook.Events))

	// LINE retries unless it gets 200 quickly.
	w.WriteHeader(http.StatusOK)

	base := context.WithoutCancel(r.Context())
	for _, ev := range hook.Events {
		if !wh.accept(ev) {
			continue
		}
		wh.wg.Go(func() { wh.handle(base, ev) })
	}
}

// Wait blocks until every accepted event has been handled.
func (wh *Webhook) Wait() {
	if r := wh.wg.WaitAndRecover(); r != nil {
		slog.Error("line: event handler panicked", "panic", r.String())
	}
}

func (wh *Webhook) accept(ev event) bool {
	if ev.Type != "message" || ev.Message == nil || ev.Message.Type != "text" {
		return false
	}
	if ev.Source.UserID == "" || strings.TrimSpace(ev.Message.Text) == "" {
		return false
	}
	return wh.firstDelivery(ev.Message.ID)
}

// firstDelivery drops redelivered messages.
func (wh *Webhook) firstDelivery(id string) bool {
	if id == "" {
		return true
	}
	wh.mu.Lock()
	defer wh.mu.Unlock()
	now := time.Now()
	if _, ok := wh.seen[id]; ok {
		return false
	}
	wh.seen[id] = now
	if len(wh.seen) > 1000 {
		cutoff := now.Add(-time.Hour)
		for k, t := range wh.seen {
			if t.Before(cutoff) {
				delete(wh.seen, k)
			}
		}
	}
	return true
}

func (wh *Webhook) handle(base context.Context, ev event) {
	ctx := clog.ContextWithSlog(base)
	clog.AddOwner(ctx, ev.Source.UserID)

	reply := wh.handler.Handle(ctx, ev.Source.UserID, ev.Message.Text)
	if reply == "" || ev.ReplyToken == "" {
		return
	}
	if err := wh.replier.Reply(ctx, ev.ReplyToken, reply); err != nil {
		clog.AddError(ctx, err)
		slog.WarnContext(ctx, "line: reply failed")
		return
	}
	slog.DebugContext(ctx, "line: replied")
}

// VerifySignature checks X-Line-Signature, the base64 HMAC-SHA256 of the
// body keyed with the channel secret.
func VerifySignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the signature LINE would send for body.
func Sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
