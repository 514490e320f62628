package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIBase = "https://api.line.me/v2/bot"
	// maxTextLength is the LINE limit for one text message, in UTF-16 units.
	// Counting runes keeps us under it for everything but surrogate pairs.
	maxTextLength = 5000
)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client calls the LINE Messaging API.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithAPIBase(base string) ClientOption {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(base, "/")
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		apiBase:    DefaultAPIBase,
		token:      accessToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify pushes text to a user. It makes Client usable as the reminder
// channel.
func (c *Client) Notify(ctx context.Context, ownerID, text string) error {
	return c.Push(ctx, ownerID, text)
}

// Push sends messages to a user, group or room outside of any reply window.
func (c *Client) Push(ctx context.Context, to string, texts ...string) error {
	if to == "" {
		return fmt.Errorf("line: empty push target")
	}
	return c.post(ctx, "/message/push", map[string]any{
		"to":       to,
		"messages": toMessages(texts),
	})
}

// Reply answers a webhook event. Reply tokens are single use and expire
// shortly after the event.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if replyToken == "" {
		return fmt.Errorf("line: empty reply token")
	}
	return c.post(ctx, "/message/reply", map[string]any{
		"replyToken": replyToken,
		"messages":   toMessages(texts),
	})
}

func toMessages(texts []string) []textMessage {
	msgs := make([]textMessage, 0, len(texts))
	for _, t := range texts {
		if r := []rune(t); len(r) > maxTextLength {
			t = string(r[:maxTextLength-1]) + "…"
		}
		msgs = append(msgs, textMessage{Type: "text", Text: t})
	}
	return msgs
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("line: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line: HTTP %d: %s", e.Status, e.Body)
}
