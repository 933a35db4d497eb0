// Package feed delivers full collection snapshots to subscribers whenever a collection changes.
package feed

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Collections that publish change notifications.
const (
	Participants = "participants"
	Attendance   = "attendance"
	Volunteers   = "volunteers"
	Teams        = "teams"
)

// Broker carries change notifications for named collections.
// Listeners receive a coalesced signal: several notifications may arrive as one.
type Broker interface {
	Notify(ctx context.Context, collection string) error
	Listen(ctx context.Context, collection string) (<-chan struct{}, error)
}

// Memory is an in-process broker for dev and tests.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewMemory creates an in-process broker.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[chan struct{}]struct{})}
}

// Notify wakes every listener of collection.
func (m *Memory) Notify(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Listen registers a listener until ctx is done.
func (m *Memory) Listen(ctx context.Context, collection string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[chan struct{}]struct{})
	}
	m.subs[collection][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[collection], ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// RedisBroker publishes notifications over Redis pub/sub, one channel per collection.
type RedisBroker struct {
	client *redis.Client
	prefix string
}

// NewRedisBroker creates a pub/sub broker.
func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	if prefix == "" {
		prefix = "feed:"
	}
	return &RedisBroker{client: client, prefix: prefix}
}

// Notify publishes a change for collection.
func (b *RedisBroker) Notify(ctx context.Context, collection string) error {
	return b.client.Publish(ctx, b.prefix+collection, "changed").Err()
}

// Listen subscribes to collection until ctx is done.
func (b *RedisBroker) Listen(ctx context.Context, collection string) (<-chan struct{}, error) {
	sub := b.client.Subscribe(ctx, b.prefix+collection)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
