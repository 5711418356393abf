package status

import (
	"testing"

	"shapesync/core/database"
	"shapesync/core/shape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublisher_GetReflectsSet(t *testing.T) {
	p := NewPublisher(nil, zap.NewNop())

	s, _ := p.Get()
	assert.Equal(t, StatusLocalOnly, s)

	p.Set(StatusInitialSync, "")
	s, msg := p.Get()
	assert.Equal(t, StatusInitialSync, s)
	assert.Empty(t, msg)

	p.Set(StatusError, "token fetch failed")
	s, msg = p.Get()
	assert.Equal(t, StatusError, s)
	assert.Equal(t, "token fetch failed", msg)
}

func TestPublisher_LateSubscriberSeesCurrentValue(t *testing.T) {
	p := NewPublisher(nil, zap.NewNop())
	p.Set(StatusDone, "")

	ch, cancel := p.Subscribe()
	defer cancel()

	// No missed-event problem: the current value is already waiting.
	update := <-ch
	assert.Equal(t, StatusDone, update.Status)
}

func TestPublisher_BroadcastsToAllSubscribers(t *testing.T) {
	p := NewPublisher(nil, zap.NewNop())

	ch1, cancel1 := p.Subscribe()
	defer cancel1()
	ch2, cancel2 := p.Subscribe()
	defer cancel2()

	<-ch1 // drain initial values
	<-ch2

	p.Set(StatusInitialSync, "starting")

	u1 := <-ch1
	u2 := <-ch2
	assert.Equal(t, StatusInitialSync, u1.Status)
	assert.Equal(t, "starting", u2.Message)
}

func TestPublisher_CancelledSubscriberStopsReceiving(t *testing.T) {
	p := NewPublisher(nil, zap.NewNop())

	ch, cancel := p.Subscribe()
	<-ch
	cancel()

	p.Set(StatusDone, "")

	select {
	case u, ok := <-ch:
		if ok {
			t.Fatalf("cancelled subscriber received %v", u)
		}
	default:
		// nothing delivered, as expected
	}
}

func TestPublisher_SlowSubscriberNeverBlocksSet(t *testing.T) {
	p := NewPublisher(nil, zap.NewNop())

	_, cancel := p.Subscribe() // never drained
	defer cancel()

	// More updates than the subscriber buffer holds; Set must not block.
	for i := 0; i < 100; i++ {
		p.Set(StatusInitialSync, "")
	}
	s, _ := p.Get()
	assert.Equal(t, StatusInitialSync, s)
}

func TestPublisher_PersistsAndLoads(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, shape.Registry()))

	p := NewPublisher(db, zap.NewNop())
	p.Set(StatusError, "boom")
	p.Set(StatusDone, "")

	// A fresh publisher over the same store restores the last status.
	p2 := NewPublisher(db, zap.NewNop())
	p2.Load()
	s, msg := p2.Get()
	assert.Equal(t, StatusDone, s)
	assert.Empty(t, msg)
}
