// Package webpush delivers notifications to browser push endpoints.
package webpush

import (
	"context"
	"fmt"
	"net/http"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Messages are short-lived alerts; there is no value in the push service
// holding them for offline clients much longer than the poll interval.
const messageTTL = 120

// Sender delivers Web Push notifications using VAPID authentication.
// It implements fanout.Pusher.
type Sender struct {
	publicKey  string
	privateKey string
	subscriber string
	httpClient *http.Client
}

// NewSender creates a sender with the given VAPID key pair and contact address.
func NewSender(publicKey, privateKey, subscriber string, timeout time.Duration) *Sender {
	return &Sender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Deliver attempts one push to one endpoint. A transport error or non-2xx
// response is a delivery failure; the caller isolates it per endpoint.
func (s *Sender) Deliver(ctx context.Context, sub domain.Subscription, payload []byte) error {
	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpushgo.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpushgo.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             messageTTL,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
