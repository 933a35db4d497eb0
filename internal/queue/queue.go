package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

// DefaultKey is the Redis list carrying operator notifications.
const DefaultKey = "retreat:signals"

// TypeSignal marks a message whose body is one presence.Signal.
const TypeSignal = "presence.signal"

// Message is one queued job; Body is decoded according to Type.
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Queue hands presence signals from the api to whoever notifies operators.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a channel queue shared by producers and consumers of one process.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a queue buffering size messages.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers; it is closed when ctx is done.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume streams messages using BRPOP. Undecodable entries are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SignalPublisher enqueues every signal as its own message.
func SignalPublisher(q Queue) presence.PublishFunc {
	return func(ctx context.Context, signals []presence.Signal) error {
		for _, s := range signals {
			body, err := json.Marshal(s)
			if err != nil {
				return err
			}
			if err := q.Publish(ctx, Message{Type: TypeSignal, Body: body}); err != nil {
				return fmt.Errorf("publish %s: %w", s.Type, err)
			}
		}
		return nil
	}
}

// DecodeSignal extracts the signal carried by msg.
func DecodeSignal(msg Message) (presence.Signal, error) {
	var s presence.Signal
	if msg.Type != TypeSignal {
		return s, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if err := json.Unmarshal(msg.Body, &s); err != nil {
		return s, fmt.Errorf("decode signal: %w", err)
	}
	return s, nil
}
