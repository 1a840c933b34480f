package alarm

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/testutil"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// failingBus rejects every publish.
type failingBus struct {
	testutil.MemoryBus
	mu    sync.Mutex
	calls int
}

func (b *failingBus) Publish(context.Context, string, atypes.Record) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return errors.ErrPublishFailed
}

func TestPublisher_Subject(t *testing.T) {
	bus := testutil.NewMemoryBus()
	pub := newPublisher(bus, slog.Default(), nil)

	rule := testutil.Rule("a1")
	record := atypes.Record{atypes.FieldDeviceID: "d1"}
	pub.publish(context.Background(), record, rule)

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "alarm.p1.d1.a1", published[0].Subject)
}

func TestPublisher_DeviceSegmentFromRecord(t *testing.T) {
	bus := testutil.NewMemoryBus()
	pub := newPublisher(bus, slog.Default(), nil)

	// Unscoped rule: the record's device drives the subject.
	rule := testutil.Rule("a1")
	pub.publish(context.Background(), atypes.Record{atypes.FieldDeviceID: "d7"}, rule)
	pub.publish(context.Background(), atypes.Record{}, rule)

	published := bus.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "alarm.p1.d7.a1", published[0].Subject)
	assert.Equal(t, "alarm.p1._.a1", published[1].Subject)
}

func TestPublisher_FailureIsBestEffort(t *testing.T) {
	bus := &failingBus{}
	pub := newPublisher(bus, slog.Default(), nil)
	rule := testutil.Rule("a1")

	// Publish never returns an error to the caller; nothing to assert
	// beyond it not panicking and every call reaching the bus.
	for i := 0; i < 10; i++ {
		pub.publish(context.Background(), atypes.Record{atypes.FieldDeviceID: "d1"}, rule)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Equal(t, 10, bus.calls)
}
