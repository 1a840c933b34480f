package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/alarmstreams/processor/alarm"
	"github.com/c360/alarmstreams/testutil"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

func writeRuleFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rule.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestRuleHost_RunsRuleFile(t *testing.T) {
	path := writeRuleFile(t,
		`{"rule":{"id":"r1","name":"n","productId":"p1","triggers":[{"kind":"timer"}]}}`)

	bus := testutil.NewMemoryBus()
	provider := alarm.Provider{Bus: bus, Engine: testutil.NewPassThroughEngine()}

	h, err := newRuleHost(context.Background(), bus, provider, path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, h.start(context.Background()))
	defer h.stop(time.Second)

	// The host subscribed the executor input to device messages.
	require.Eventually(t, func() bool { return bus.SubscriberCount() >= 1 },
		time.Second, 10*time.Millisecond)

	bus.Emit("device.p1.d1.online", testutil.PropertyRow("d1"))
	assert.Eventually(t, func() bool { return len(bus.Published()) == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestRuleHost_StopSurvivesLateRecords(t *testing.T) {
	path := writeRuleFile(t,
		`{"rule":{"id":"r1","name":"n","productId":"p1","triggers":[{"kind":"timer"}]}}`)

	bus := testutil.NewMemoryBus()
	provider := alarm.Provider{Bus: bus, Engine: testutil.NewPassThroughEngine()}

	h, err := newRuleHost(context.Background(), bus, provider, path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, h.start(context.Background()))

	h.stop(time.Second)

	// A pipeline that outlived its stop timeout may deliver records
	// after stop returns; the sink channel must survive the send.
	assert.NotPanics(t, func() {
		select {
		case h.output <- atypes.Record{}:
		default:
		}
	})
}
