package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingFIFODelivery(t *testing.T) {
	r := NewRing[int](10)
	sub := r.Subscribe()

	for i := 0; i < 5; i++ {
		r.Publish(i)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		v, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestRingOverflowSignalsLaggedExactlyOnce(t *testing.T) {
	const capacity = 4
	r := NewRing[int](capacity)
	sub := r.Subscribe()

	// publish capacity+1 items before the subscriber reads anything
	for i := 0; i < capacity+1; i++ {
		r.Publish(i)
	}

	ctx := context.Background()
	v, err := sub.Receive(ctx)
	require.ErrorIs(t, err, ErrLagged, "subscriber capacity+1 behind must observe a Lagged signal")
	assert.Zero(t, v)
	var lagErr *LaggedError
	require.ErrorAs(t, err, &lagErr)
	assert.Equal(t, uint64(1), lagErr.N, "exactly one value fell off the ring before catch-up")

	// subsequent receives resume normal FIFO with no further lag
	for i := 1; i < capacity+1; i++ {
		v, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestRingSubscribeOnlySeesFutureValues(t *testing.T) {
	r := NewRing[int](10)
	r.Publish(1)
	sub := r.Subscribe()
	r.Publish(2)

	v, err := sub.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestRingReceiveRespectsContextCancellation(t *testing.T) {
	r := NewRing[int](10)
	sub := r.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Receive(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRingMultipleSubscribersEachGetEveryMessage(t *testing.T) {
	r := NewRing[int](10)
	sub1 := r.Subscribe()
	sub2 := r.Subscribe()

	r.Publish(42)

	ctx := context.Background()
	v1, err := sub1.Receive(ctx)
	require.NoError(t, err)
	v2, err := sub2.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v1)
	assert.Equal(t, 42, v2)
}
