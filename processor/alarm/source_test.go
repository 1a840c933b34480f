package alarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/alarmstreams/testutil"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

func collectRows(t *testing.T, ch <-chan atypes.Row, n int) []atypes.Row {
	t.Helper()
	rows := make([]atypes.Row, 0, n)
	timeout := time.After(2 * time.Second)
	for len(rows) < n {
		select {
		case row, ok := <-ch:
			if !ok {
				return rows
			}
			rows = append(rows, row)
		case <-timeout:
			t.Fatalf("timed out after %d of %d rows", len(rows), n)
		}
	}
	return rows
}

func TestStampRow(t *testing.T) {
	rule := testutil.Rule("r1")
	rule.Name = "high temp"
	rule.DeviceName = "rule device"
	rule.ProductName = "rule product"

	t.Run("rule identity always wins", func(t *testing.T) {
		row := testutil.PropertyRow("d1", testutil.WithHeader("alarmId", "stale"))
		stamped := stampRow(row, rule)

		assert.Equal(t, "p1", stamped.Headers["productId"])
		assert.Equal(t, "r1", stamped.Headers["alarmId"])
		assert.Equal(t, "high temp", stamped.Headers["alarmName"])
	})

	t.Run("names only fill absent headers", func(t *testing.T) {
		row := testutil.PropertyRow("d1") // builder sets deviceName header
		stamped := stampRow(row, rule)

		assert.Equal(t, "device d1", stamped.Headers[atypes.HeaderDeviceName])
		assert.Equal(t, "rule product", stamped.Headers["productName"])
	})

	t.Run("original row untouched", func(t *testing.T) {
		row := testutil.PropertyRow("d1")
		_ = stampRow(row, rule)
		_, ok := row.Headers["alarmId"]
		assert.False(t, ok)
	})

	t.Run("nil headers allocated", func(t *testing.T) {
		stamped := stampRow(atypes.Row{DeviceID: "d1"}, rule)
		assert.Equal(t, "r1", stamped.Headers["alarmId"])
	})
}

func TestSubscriptionKey(t *testing.T) {
	assert.Equal(t, "device_alarm:r1:0", subscriptionKey("r1", 0))
	assert.Equal(t, "device_alarm:r1:3", subscriptionKey("r1", 3))
}

func TestSharedInput_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := newSharedInput()
	srcA := shared.subscribe(0)
	srcB := shared.subscribe(1)

	chA, err := srcA(ctx)
	require.NoError(t, err)
	chB, err := srcB(ctx)
	require.NoError(t, err)

	input := make(chan atypes.Row, 4)
	go shared.start(ctx, input, testutil.Rule("r1"), nil)

	input <- testutil.PropertyRow("d1")
	input <- testutil.PropertyRow("d2")

	rowsA := collectRows(t, chA, 2)
	rowsB := collectRows(t, chB, 2)
	assert.Equal(t, "d1", rowsA[0].DeviceID)
	assert.Equal(t, "d1", rowsB[0].DeviceID)
	assert.Equal(t, "d2", rowsB[1].DeviceID)
}

func TestSharedInput_TriggerIndexRouting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := newSharedInput()
	src0 := shared.subscribe(0)
	src1 := shared.subscribe(1)

	ch0, err := src0(ctx)
	require.NoError(t, err)
	ch1, err := src1(ctx)
	require.NoError(t, err)

	input := make(chan atypes.Row, 4)
	go shared.start(ctx, input, testutil.Rule("r1"), nil)

	input <- testutil.PropertyRow("tagged-1", testutil.WithHeader(atypes.HeaderTriggerIndex, 1))
	input <- testutil.PropertyRow("broadcast")
	close(input)

	rows1 := collectRows(t, ch1, 2)
	assert.Equal(t, "tagged-1", rows1[0].DeviceID)
	assert.Equal(t, "broadcast", rows1[1].DeviceID)

	rows0 := collectRows(t, ch0, 1)
	assert.Equal(t, "broadcast", rows0[0].DeviceID)
}

func TestSharedInput_SubscribeAfterStartRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := newSharedInput()
	input := make(chan atypes.Row)
	close(input)
	shared.start(ctx, input, testutil.Rule("r1"), nil)

	src := shared.subscribe(0)
	_, err := src(ctx)
	assert.Error(t, err)
}

func TestSharedInput_StampsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := newSharedInput()
	src := shared.subscribe(0)
	ch, err := src(ctx)
	require.NoError(t, err)

	var pumped int
	input := make(chan atypes.Row, 1)
	input <- testutil.PropertyRow("d1")
	close(input)
	shared.start(ctx, input, testutil.Rule("r1"), func() { pumped++ })

	rows := collectRows(t, ch, 1)
	assert.Equal(t, "r1", rows[0].Headers["alarmId"])
	assert.Equal(t, 1, pumped)
}

func TestEventSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := testutil.NewMemoryBus()
	rule := testutil.Rule("r1")

	var seen int
	src := eventSource(bus, subscriptionKey("r1", 0), "device.p1.*.online", rule,
		func() { seen++ })

	ch, err := src(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Emit("device.p1.d9.online", testutil.PropertyRow("d9", testutil.WithMessageType(atypes.MessageOnline)))

	rows := collectRows(t, ch, 1)
	assert.Equal(t, "d9", rows[0].DeviceID)
	assert.Equal(t, "r1", rows[0].Headers["alarmId"])
	assert.Equal(t, 1, seen)

	cancel()
	assert.Eventually(t, func() bool { return bus.SubscriberCount() == 0 },
		time.Second, 10*time.Millisecond)
}
