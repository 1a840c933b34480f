// Package eventbus connects the alarm pipeline to the messaging fabric.
// Event triggers subscribe to device message subjects and receive decoded
// rows; the publisher emits finished alarm records on per-alarm subjects.
package eventbus

import (
	"context"
	"fmt"

	atypes "github.com/c360/alarmstreams/types/alarm"
)

// Bus is the messaging boundary of the pipeline. Implementations must be
// safe for concurrent use.
type Bus interface {
	// Subscribe streams decoded device rows from a subject until cancel
	// is called or ctx ends. The key identifies the subscriber for
	// logging and metrics. Subjects may contain wildcards.
	Subscribe(ctx context.Context, key, subject string) (<-chan atypes.Row, context.CancelFunc, error)

	// Publish emits an alarm record on a subject.
	Publish(ctx context.Context, subject string, record atypes.Record) error

	// Close releases the bus. The context bounds graceful shutdown.
	Close(ctx context.Context) error
}

// AlarmSubject builds the subject alarm records are published on. Empty
// segments collapse to "_" so the subject stays well formed.
func AlarmSubject(productID, deviceID, alarmID string) string {
	return fmt.Sprintf("alarm.%s.%s.%s",
		segment(productID), segment(deviceID), segment(alarmID))
}

func segment(s string) string {
	if s == "" {
		return "_"
	}
	return s
}
