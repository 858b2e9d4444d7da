package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBus_FanOut(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe(4)
	ch2, cancel2 := bus.Subscribe(4)
	defer cancel1()
	defer cancel2()

	ev := New(TypeEmergencyStop, "alice", "", map[string]interface{}{"reason": "test"})
	require.NoError(t, bus.Publish(context.Background(), ev))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, TypeEmergencyStop, got.Type)
			assert.Equal(t, "alice", got.User)
			assert.Equal(t, ev.ID, got.ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestMemoryBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	// Buffer of one and nobody draining: the second publish must not block.
	_, cancel := bus.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = bus.Publish(context.Background(), New(TypePriceUpdated, "", "WETH", nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestMemoryBus_CancelClosesChannel(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	defer bus.Close()

	ch, cancel := bus.Subscribe(1)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel is a no-op for that subscriber.
	assert.NoError(t, bus.Publish(context.Background(), New(TypeTokenAdded, "", "WETH", nil)))
}

func TestEvent_Key(t *testing.T) {
	assert.Equal(t, "alice:WETH", New(TypePositionRiskAlert, "alice", "WETH", nil).Key())
	assert.Equal(t, "alice", New(TypeEmergencyStop, "alice", "", nil).Key())
	assert.Equal(t, "WETH", New(TypePriceUpdated, "", "WETH", nil).Key())
	assert.Equal(t, "system", New(TypeIntervalChanged, "", "", nil).Key())
}
