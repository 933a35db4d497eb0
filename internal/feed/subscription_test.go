package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionDeliversSnapshots(t *testing.T) {
	broker := NewMemory()
	var version atomic.Int32
	got := make(chan int32, 10)

	sub := NewSubscription(broker, Participants,
		func(context.Context) (int32, error) { return version.Load(), nil },
		func(v int32) { got <- v },
		nil,
	)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Stop()

	assert.Equal(t, int32(0), <-got)

	version.Store(1)
	require.NoError(t, broker.Notify(context.Background(), Participants))
	select {
	case v := <-got:
		assert.Equal(t, int32(1), v)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after notify")
	}

	assert.ErrorIs(t, sub.Start(context.Background()), ErrStarted)
}

func TestSubscriptionIgnoresOtherCollections(t *testing.T) {
	broker := NewMemory()
	got := make(chan struct{}, 10)
	sub := NewSubscription(broker, Attendance,
		func(context.Context) (int, error) { return 0, nil },
		func(int) { got <- struct{}{} },
		nil,
	)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Stop()
	<-got

	require.NoError(t, broker.Notify(context.Background(), Participants))
	select {
	case <-got:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionNoCallbacksAfterStop(t *testing.T) {
	broker := NewMemory()
	var calls atomic.Int32
	first := make(chan struct{})
	sub := NewSubscription(broker, Participants,
		func(context.Context) (int, error) { return 0, nil },
		func(int) {
			if calls.Add(1) == 1 {
				close(first)
			}
		},
		nil,
	)
	require.NoError(t, sub.Start(context.Background()))
	<-first
	sub.Stop()
	before := calls.Load()

	for i := 0; i < 5; i++ {
		require.NoError(t, broker.Notify(context.Background(), Participants))
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, calls.Load())

	sub.Stop()
}

func TestSubscriptionReportsLoadErrors(t *testing.T) {
	broker := NewMemory()
	errs := make(chan error, 1)
	boom := errors.New("db down")
	sub := NewSubscription(broker, Participants,
		func(context.Context) (int, error) { return 0, boom },
		func(int) { t.Error("deliver called on failed load") },
		func(err error) { errs <- err },
	)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Stop()
	assert.ErrorIs(t, <-errs, boom)
}
