package testutil

import (
	"fmt"
	"time"

	atypes "github.com/c360/alarmstreams/types/alarm"
)

// RowOption mutates a row under construction.
type RowOption func(*atypes.Row)

// PropertyRow builds a property-report row with sensible defaults.
func PropertyRow(deviceID string, opts ...RowOption) atypes.Row {
	row := atypes.Row{
		Timestamp:     time.Now().UnixMilli(),
		DeviceID:      deviceID,
		CorrelationID: fmt.Sprintf("uid-%s-%d", deviceID, time.Now().UnixNano()),
		MessageType:   atypes.MessageProperties,
		Headers: map[string]any{
			atypes.HeaderDeviceName: "device " + deviceID,
		},
	}
	for _, opt := range opts {
		opt(&row)
	}
	return row
}

// WithTimestamp sets the row timestamp in milliseconds.
func WithTimestamp(ms int64) RowOption {
	return func(r *atypes.Row) { r.Timestamp = ms }
}

// WithCorrelationID sets the deduplication key.
func WithCorrelationID(uid string) RowOption {
	return func(r *atypes.Row) { r.CorrelationID = uid }
}

// WithMessageType sets the message type.
func WithMessageType(messageType string) RowOption {
	return func(r *atypes.Row) { r.MessageType = messageType }
}

// WithHeader sets one header value.
func WithHeader(key string, value any) RowOption {
	return func(r *atypes.Row) {
		if r.Headers == nil {
			r.Headers = make(map[string]any)
		}
		r.Headers[key] = value
	}
}

// WithProperty sets one extension field.
func WithProperty(name string, value any) RowOption {
	return func(r *atypes.Row) { r.SetField(name, value) }
}

// Rule builds a minimal valid event-triggered rule.
func Rule(id string, opts ...RuleOption) atypes.AlarmRule {
	rule := atypes.AlarmRule{
		ID:        id,
		Name:      "rule " + id,
		ProductID: "p1",
		Triggers: []atypes.Trigger{
			{Kind: atypes.TriggerEvent, MessageType: atypes.MessageProperties},
		},
	}
	for _, opt := range opts {
		opt(&rule)
	}
	return rule
}

// RuleOption mutates a rule under construction.
type RuleOption func(*atypes.AlarmRule)

// WithDevice scopes the rule to a single device.
func WithDevice(deviceID string) RuleOption {
	return func(r *atypes.AlarmRule) { r.DeviceID = deviceID }
}

// WithTriggers replaces the rule's triggers.
func WithTriggers(triggers ...atypes.Trigger) RuleOption {
	return func(r *atypes.AlarmRule) { r.Triggers = triggers }
}

// WithShakeLimit enables suppression with a window and threshold.
func WithShakeLimit(window time.Duration, threshold int) RuleOption {
	return func(r *atypes.AlarmRule) {
		r.ShakeLimit = &atypes.ShakeLimit{
			Enabled:   true,
			Window:    atypes.Duration(window),
			Threshold: threshold,
		}
	}
}
