package notification

import (
	"context"
	"log"

	"dispenser-status-backend/internal/machine"
)

// Sink receives every transition dispatched to the pool.
type Sink interface {
	Notify(ctx context.Context, t machine.Transition) error
}

// WorkerPool fans transitions out to the configured sinks off the controller's goroutine.
type WorkerPool struct {
	size  int
	jobs  chan machine.Transition
	sinks []Sink
}

// NewWorkerPool creates a new worker pool. queueSize bounds the number of
// transitions waiting to be delivered.
func NewWorkerPool(size, queueSize int, sinks ...Sink) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:  size,
		jobs:  make(chan machine.Transition, queueSize),
		sinks: sinks,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case t := <-wp.jobs:
			wp.deliver(ctx, t)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a transition for delivery. It never blocks: when the queue is
// full the transition is dropped and false is returned.
func (wp *WorkerPool) Dispatch(t machine.Transition) bool {
	select {
	case wp.jobs <- t:
		return true
	default:
		log.Printf("Notification queue full, dropping transition %d (%s -> %s)", t.Seq, t.From, t.To)
		return false
	}
}

// Observe adapts Dispatch to machine.Controller.OnTransition.
func (wp *WorkerPool) Observe(t machine.Transition) {
	wp.Dispatch(t)
}

func (wp *WorkerPool) deliver(ctx context.Context, t machine.Transition) {
	for _, sink := range wp.sinks {
		if err := sink.Notify(ctx, t); err != nil {
			log.Printf("Error delivering transition %d to %T: %v", t.Seq, sink, err)
		}
	}
}
