package alarm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Well-known header keys on incoming rows.
const (
	// HeaderTriggerIndex tags a row for one specific timer trigger.
	// Rows without the tag are broadcast to every timer trigger.
	HeaderTriggerIndex = "triggerIndex"
	// HeaderUID carries the per-message correlation id used for duplicate
	// detection across triggers.
	HeaderUID = "_uid"
	// HeaderDeviceName carries the device display name when the message
	// connector resolved one.
	HeaderDeviceName = "deviceName"
)

// Row is the uniform shape of a single unit of streaming data. Every
// source, regardless of trigger kind, produces this shape so downstream
// stages never depend on source-specific layouts.
//
// Fields is an open extension map for projected query columns and
// source-stamped rule context; the typed fields are the fixed default
// output columns every compiled query carries.
type Row struct {
	Timestamp     int64          `json:"timestamp"` // epoch milliseconds
	DeviceID      string         `json:"deviceId"`
	CorrelationID string         `json:"correlationId,omitempty"`
	MessageType   string         `json:"messageType,omitempty"`
	Headers       map[string]any `json:"headers,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

// Header returns a header value by key.
func (r Row) Header(key string) (any, bool) {
	if r.Headers == nil {
		return nil, false
	}
	v, ok := r.Headers[key]
	return v, ok
}

// TriggerIndex returns the numeric trigger index tag, if the row carries
// one. Rows without the tag match any trigger index.
func (r Row) TriggerIndex() (int, bool) {
	v, ok := r.Header(HeaderTriggerIndex)
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

// UID returns the correlation id of the row, preferring the typed field
// over the raw header, defaulting to the empty string.
func (r Row) UID() string {
	if r.CorrelationID != "" {
		return r.CorrelationID
	}
	if v, ok := r.Header(HeaderUID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Value resolves a dotted field path against the row. Recognized paths are
// the typed default columns ("timestamp", "deviceId", "messageType",
// "headers", "headers.<key>", "_uid"), with everything else looked up in
// the extension map.
func (r Row) Value(path string) (any, bool) {
	switch path {
	case "timestamp":
		return r.Timestamp, true
	case "deviceId":
		if r.DeviceID == "" {
			return nil, false
		}
		return r.DeviceID, true
	case "messageType":
		if r.MessageType == "" {
			return nil, false
		}
		return r.MessageType, true
	case "headers":
		if r.Headers == nil {
			return nil, false
		}
		return r.Headers, true
	case HeaderUID, "headers." + HeaderUID:
		uid := r.UID()
		if uid == "" {
			return nil, false
		}
		return uid, true
	}

	if rest, ok := strings.CutPrefix(path, "headers."); ok {
		return lookupPath(r.Headers, rest)
	}

	if v, ok := lookupPath(r.Fields, path); ok {
		return v, true
	}
	return nil, false
}

// Clone returns a copy of the row with its own header and field maps, so
// per-trigger stamping never leaks across subscribers.
func (r Row) Clone() Row {
	out := r
	if r.Headers != nil {
		out.Headers = make(map[string]any, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Fields != nil {
		out.Fields = make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// SetField stores a value in the extension map, allocating it on demand.
func (r *Row) SetField(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any, 4)
	}
	r.Fields[key] = value
}

// SetFieldIfAbsent stores a value only when the key is not already set.
func (r *Row) SetFieldIfAbsent(key string, value any) {
	if _, ok := r.Fields[key]; ok {
		return
	}
	r.SetField(key, value)
}

// lookupPath walks a dotted path through nested string-keyed maps.
func lookupPath(m map[string]any, path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}

	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// AsInt coerces common numeric encodings (JSON float64, integers, numeric
// strings) to an int.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
