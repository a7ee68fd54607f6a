package webpush

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sentinel errors callers can branch on. A gone subscription should be
// removed from storage; a rate-limited send may be retried later.
var (
	ErrSubscriptionGone = errors.New("push subscription gone")
	ErrRateLimited      = errors.New("push endpoint rate limited")
)

// Config holds the VAPID key pair identifying this application server.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subject is a contact URI (mailto: or https:) sent with each request.
	Subject string
	TTL     int
}

// Client delivers web-push notifications to browser subscriptions.
type Client struct {
	cfg Config
}

// NewClient creates a web-push client. Both VAPID keys are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("VAPID key pair is not configured")
	}
	if cfg.Subject == "" {
		cfg.Subject = "mailto:admin@localhost"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 60
	}
	return &Client{cfg: cfg}, nil
}

// Send pushes payloadJSON to the subscription stored as raw browser JSON
// (endpoint plus p256dh/auth keys). It returns ErrSubscriptionGone when the
// endpoint reports the subscription no longer exists and ErrRateLimited on a
// 429 response.
func (c *Client) Send(subscriptionJSON string, payloadJSON []byte) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(subscriptionJSON), &sub); err != nil {
		return fmt.Errorf("invalid push subscription: %w", err)
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return fmt.Errorf("push subscription is missing endpoint or keys")
	}

	resp, err := webpush.SendNotification(payloadJSON, &sub, &webpush.Options{
		Subscriber:      c.cfg.Subject,
		VAPIDPublicKey:  c.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: c.cfg.VAPIDPrivateKey,
		TTL:             c.cfg.TTL,
	})
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 400:
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
