package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"dispenser-status-backend/internal/machine"
	"dispenser-status-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WebPushSink pushes each transition to every registered browser subscription.
type WebPushSink struct {
	registry *SubscriptionRegistry
	webpush  *webpush.Options
	sender   NotificationSender
}

// NewWebPushSink creates a sink that delivers through the real push services.
func NewWebPushSink(registry *SubscriptionRegistry, webpushOptions *webpush.Options) *WebPushSink {
	return &WebPushSink{
		registry: registry,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
	}
}

type pushPayload struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	State machine.Snapshot `json:"state"`
}

// Notify implements Sink.
func (s *WebPushSink) Notify(ctx context.Context, t machine.Transition) error {
	subscriptions := s.registry.List()
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Title: "Dispenser " + t.To.String(),
		Body:  messageFor(t),
		State: t.Snapshot,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	log.Printf("Sending %d notifications for transition %d", len(subscriptions), t.Seq)
	for _, sub := range subscriptions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sendNotification(sub, payload)
	}
	return nil
}

func messageFor(t machine.Transition) string {
	switch t.To {
	case machine.Open:
		return "The dispenser is open, help yourself!"
	case machine.Denied:
		return "Access denied."
	}
	return "The dispenser is closed."
}

// sendNotification sends a single web push notification.
func (s *WebPushSink) sendNotification(sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := s.sender.Send(payload, wpSub, s.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		s.registry.Delete(sub.Endpoint)
	}
}
