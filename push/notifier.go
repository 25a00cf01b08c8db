// Package push sends web-push notifications to post authors.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"scribe/models"
	"scribe/repository"

	"github.com/SherClockHolmes/webpush-go"
)

type Notifier struct {
	subs       repository.PushRepository
	publicKey  string
	privateKey string
	subscriber string
	client     webpush.HTTPClient
}

// NewNotifier returns nil when either VAPID key is missing; a nil *Notifier is
// a valid no-op.
func NewNotifier(subs repository.PushRepository, publicKey, privateKey, subscriber string) *Notifier {
	if publicKey == "" || privateKey == "" {
		log.Println("⚠️  Push notifications disabled - set VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY")
		return nil
	}
	return &Notifier{
		subs:       subs,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the transport used to reach push services.
func (n *Notifier) WithHTTPClient(c webpush.HTTPClient) *Notifier {
	n.client = c
	return n
}

func (n *Notifier) PublicKey() string {
	if n == nil {
		return ""
	}
	return n.publicKey
}

func (n *Notifier) Enabled() bool {
	return n != nil
}

// Notify delivers one notification to userID. A user without a subscription
// is not an error. Expired subscriptions (404/410) are deleted.
func (n *Notifier) Notify(ctx context.Context, userID, title, body, url string) error {
	if n == nil || userID == "" {
		return nil
	}

	sub, err := n.subs.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title": title,
		"body":  truncate(body, 100),
		"data": map[string]interface{}{
			"url":       url,
			"timestamp": time.Now().Unix(),
		},
	})
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub.Sub, &webpush.Options{
		HTTPClient:      n.client,
		Subscriber:      n.subscriber,
		VAPIDPublicKey:  n.publicKey,
		VAPIDPrivateKey: n.privateKey,
		TTL:             30,
	})
	if err != nil {
		return err
	}
	if resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		log.Printf("Push subscription expired for user %s, deleting...", userID)
		return n.subs.DeleteByUser(ctx, userID)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
