package feed

import (
	"context"
	"errors"
	"sync"
)

// ErrStarted is returned when Start is called on a running subscription.
var ErrStarted = errors.New("subscription already started")

// LoadFunc reads the full current snapshot of a collection.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Subscription delivers a full snapshot on start and after every change notification.
// Callbacks run one at a time on the subscription's goroutine. After Stop returns,
// no further callbacks are made.
type Subscription[T any] struct {
	broker     Broker
	collection string
	load       LoadFunc[T]
	deliver    func(T)
	onError    func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscription creates a stopped subscription. onError may be nil.
func NewSubscription[T any](broker Broker, collection string, load LoadFunc[T], deliver func(T), onError func(error)) *Subscription[T] {
	if onError == nil {
		onError = func(error) {}
	}
	return &Subscription[T]{
		broker:     broker,
		collection: collection,
		load:       load,
		deliver:    deliver,
		onError:    onError,
	}
}

// Start begins listening and delivers the initial snapshot asynchronously.
func (s *Subscription[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	changes, err := s.broker.Listen(ctx, s.collection)
	if err != nil {
		cancel()
		return err
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, changes, s.done)
	return nil
}

// Stop cancels the subscription and waits for an in-flight callback to finish.
// It is safe to call on a stopped subscription.
func (s *Subscription[T]) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Subscription[T]) run(ctx context.Context, changes <-chan struct{}, done chan struct{}) {
	defer close(done)
	s.reload(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.reload(ctx)
		}
	}
}

func (s *Subscription[T]) reload(ctx context.Context) {
	snap, err := s.load(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.onError(err)
		return
	}
	s.deliver(snap)
}
