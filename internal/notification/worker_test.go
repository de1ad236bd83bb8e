package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispenser-status-backend/internal/machine"
	"dispenser-status-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

// sinkFunc adapts a function to the Sink interface.
type sinkFunc func(ctx context.Context, t machine.Transition) error

func (f sinkFunc) Notify(ctx context.Context, t machine.Transition) error { return f(ctx, t) }

func openTransition(seq uint64) machine.Transition {
	remaining := 30 * time.Second
	entered := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return machine.Transition{
		Seq:   seq,
		From:  machine.Closed,
		To:    machine.Open,
		Cause: machine.CauseCommand,
		At:    entered,
		Snapshot: machine.Snapshot{
			Mode:      machine.Open,
			EnteredAt: &entered,
			Remaining: &remaining,
			At:        entered,
		},
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, 1)

	assert.True(t, wp.Dispatch(openTransition(1)))
	// The queue holds one job and no worker is running.
	assert.False(t, wp.Dispatch(openTransition(2)))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, uint64(1), job.Seq)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DeliversToEverySink(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
		wg       sync.WaitGroup
	)
	wg.Add(2)
	record := func(name string, err error) Sink {
		return sinkFunc(func(ctx context.Context, tr machine.Transition) error {
			mu.Lock()
			received = append(received, name)
			mu.Unlock()
			wg.Done()
			return err
		})
	}

	// A failing sink must not stop delivery to the next one.
	wp := NewWorkerPool(1, 4, record("failing", errors.New("boom")), record("ok", nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Observe(openTransition(1))
	wg.Wait()

	assert.Equal(t, []string{"failing", "ok"}, received)
}

func TestWebPushSink_Notify(t *testing.T) {
	t.Run("sends payload to every subscription", func(t *testing.T) {
		registry := NewSubscriptionRegistry()
		registry.Put(model.PushSubscription{Endpoint: "https://example.com/a", P256DH: "p_a", Auth: "a_a"})
		registry.Put(model.PushSubscription{Endpoint: "https://example.com/b", P256DH: "p_b", Auth: "a_b"})

		sink := NewWebPushSink(registry, &webpush.Options{TTL: 30})
		var endpoints []string
		sink.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				endpoints = append(endpoints, sub.Endpoint)
				assert.Equal(t, 30, options.TTL)

				var decoded map[string]any
				require.NoError(t, json.Unmarshal(payload, &decoded))
				assert.Equal(t, "Dispenser open", decoded["title"])
				state := decoded["state"].(map[string]any)
				assert.Equal(t, "open", state["status"])
				assert.Equal(t, float64(30000), state["remainingTime"])
				return response(http.StatusCreated), nil
			},
		}

		require.NoError(t, sink.Notify(context.Background(), openTransition(1)))
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, endpoints)
		assert.Equal(t, 2, registry.Len())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		registry := NewSubscriptionRegistry()
		registry.Put(model.PushSubscription{Endpoint: "https://example.com/expired", P256DH: "p", Auth: "a"})
		registry.Put(model.PushSubscription{Endpoint: "https://example.com/live", P256DH: "p", Auth: "a"})

		sink := NewWebPushSink(registry, &webpush.Options{})
		sink.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				if sub.Endpoint == "https://example.com/expired" {
					return response(http.StatusGone), nil
				}
				return response(http.StatusCreated), nil
			},
		}

		require.NoError(t, sink.Notify(context.Background(), openTransition(1)))

		_, ok := registry.Get("https://example.com/expired")
		assert.False(t, ok)
		_, ok = registry.Get("https://example.com/live")
		assert.True(t, ok)
	})

	t.Run("send errors keep the subscription", func(t *testing.T) {
		registry := NewSubscriptionRegistry()
		registry.Put(model.PushSubscription{Endpoint: "https://example.com/flaky"})

		sink := NewWebPushSink(registry, &webpush.Options{})
		sink.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return nil, errors.New("connection reset")
			},
		}

		require.NoError(t, sink.Notify(context.Background(), openTransition(1)))
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("no subscriptions sends nothing", func(t *testing.T) {
		sink := NewWebPushSink(NewSubscriptionRegistry(), &webpush.Options{})
		sink.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Fatal("sender should not be called")
				return nil, nil
			},
		}
		require.NoError(t, sink.Notify(context.Background(), openTransition(1)))
	})
}

func TestSubscriptionRegistry_PutKeepsCreatedAt(t *testing.T) {
	registry := NewSubscriptionRegistry()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	registry.Put(model.PushSubscription{Endpoint: "e", Auth: "old", CreatedAt: created})
	registry.Put(model.PushSubscription{Endpoint: "e", Auth: "new", CreatedAt: created.Add(time.Hour)})

	sub, ok := registry.Get("e")
	require.True(t, ok)
	assert.Equal(t, "new", sub.Auth)
	assert.Equal(t, created, sub.CreatedAt)

	registry.Delete("e")
	assert.Empty(t, registry.List())
}
