package metrics

import "dispenser-status-backend/internal/machine"

// Recorder receives observability hooks from the API and the state controller.
type Recorder interface {
	ObserveTransition(t machine.Transition)
	IncInvalidRequest(reason string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are disabled).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTransition(machine.Transition) {}
func (NoopRecorder) IncInvalidRequest(string)             {}
