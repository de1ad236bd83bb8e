package notification

import (
	"sort"

	"github.com/patrickmn/go-cache"

	"dispenser-status-backend/internal/model"
)

// SubscriptionRegistry keeps browser push subscriptions in memory, keyed by endpoint.
type SubscriptionRegistry struct {
	items *cache.Cache
}

// NewSubscriptionRegistry creates an empty registry. Entries never expire; they are
// removed explicitly or when the push service reports them gone.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{items: cache.New(cache.NoExpiration, 0)}
}

// Put creates or replaces the subscription for sub.Endpoint.
func (r *SubscriptionRegistry) Put(sub model.PushSubscription) {
	if existing, ok := r.Get(sub.Endpoint); ok {
		sub.CreatedAt = existing.CreatedAt
	}
	r.items.Set(sub.Endpoint, sub, cache.NoExpiration)
}

func (r *SubscriptionRegistry) Get(endpoint string) (model.PushSubscription, bool) {
	v, ok := r.items.Get(endpoint)
	if !ok {
		return model.PushSubscription{}, false
	}
	return v.(model.PushSubscription), true
}

func (r *SubscriptionRegistry) Delete(endpoint string) {
	r.items.Delete(endpoint)
}

// List returns all subscriptions ordered by endpoint.
func (r *SubscriptionRegistry) List() []model.PushSubscription {
	items := r.items.Items()
	subs := make([]model.PushSubscription, 0, len(items))
	for _, item := range items {
		subs = append(subs, item.Object.(model.PushSubscription))
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Endpoint < subs[j].Endpoint })
	return subs
}

func (r *SubscriptionRegistry) Len() int {
	return r.items.ItemCount()
}
