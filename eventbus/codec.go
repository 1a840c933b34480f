package eventbus

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/c360/alarmstreams/errors"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// DeviceMessage is the wire form of a device message. Properties and Data
// are flattened into the row's extension fields; property names win on
// collision.
type DeviceMessage struct {
	Timestamp   int64          `json:"timestamp,omitempty"`
	DeviceID    string         `json:"deviceId"`
	MessageType string         `json:"messageType,omitempty"`
	Headers     map[string]any `json:"headers,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// DecodeRow converts a raw device message into a row. The message type
// falls back to the subject's shape when the payload omits it, and a
// missing timestamp is stamped with the current time.
func DecodeRow(subject string, data []byte) (atypes.Row, error) {
	var msg DeviceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return atypes.Row{}, errors.WrapInvalid(err, "EventBus", "DecodeRow", "unmarshal device message")
	}
	if msg.DeviceID == "" {
		return atypes.Row{}, errors.WrapInvalid(errors.ErrInvalidData, "EventBus", "DecodeRow", "device message without deviceId")
	}

	row := atypes.Row{
		Timestamp:   msg.Timestamp,
		DeviceID:    msg.DeviceID,
		MessageType: msg.MessageType,
		Headers:     msg.Headers,
	}
	if row.Timestamp == 0 {
		row.Timestamp = time.Now().UnixMilli()
	}
	if row.MessageType == "" {
		row.MessageType = messageTypeFromSubject(subject)
	}
	if uid, ok := msg.Headers[atypes.HeaderUID].(string); ok {
		row.CorrelationID = uid
	}

	for name, value := range msg.Data {
		row.SetField(name, value)
	}
	for name, value := range msg.Properties {
		row.SetField(name, value)
	}

	return row, nil
}

// EncodeRecord marshals an alarm record for publishing.
func EncodeRecord(record atypes.Record) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, errors.WrapInvalid(err, "EventBus", "EncodeRecord", "marshal alarm record")
	}
	return data, nil
}

// messageTypeFromSubject maps a device subject's tail to a message type:
// device.{product}.{device}.online, .offline, .message.property.report,
// .message.event.{model}, .message.function.reply.
func messageTypeFromSubject(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) < 4 || parts[0] != "device" {
		return ""
	}

	tail := strings.Join(parts[3:], ".")
	switch {
	case tail == "online":
		return atypes.MessageOnline
	case tail == "offline":
		return atypes.MessageOffline
	case tail == "message.property.report":
		return atypes.MessageProperties
	case strings.HasPrefix(tail, "message.event."):
		return atypes.MessageEvent
	case tail == "message.function.reply":
		return atypes.MessageFunction
	default:
		return ""
	}
}
