package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"dispenser-status-backend/internal/machine"
	"dispenser-status-backend/internal/metrics"
	"dispenser-status-backend/internal/notification"
)

// StateController is the part of machine.Controller the handlers use.
type StateController interface {
	GetState() machine.Snapshot
	SetState(target machine.Mode) (machine.Snapshot, error)
	Windows() machine.Windows
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	controller    StateController
	subscriptions *notification.SubscriptionRegistry
	webpush       *webpush.Options
	recorder      metrics.Recorder
}

// NewHandler creates a new API handler. webpushOptions may be nil when push is
// disabled; a nil recorder records nothing.
func NewHandler(controller StateController, subscriptions *notification.SubscriptionRegistry, webpushOptions *webpush.Options, recorder metrics.Recorder) *Handler {
	if subscriptions == nil {
		subscriptions = notification.NewSubscriptionRegistry()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Handler{
		controller:    controller,
		subscriptions: subscriptions,
		webpush:       webpushOptions,
		recorder:      recorder,
	}
}
