package alarm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360/alarmstreams/errors"
)

// TriggerKind selects the data source of a trigger.
type TriggerKind string

const (
	// TriggerTimer reacts to rows already flowing through the pipeline's
	// own input, optionally tagged with a trigger index header.
	TriggerTimer TriggerKind = "timer"
	// TriggerEvent subscribes to an external device topic derived from
	// product, device and model identifiers.
	TriggerEvent TriggerKind = "event"
)

// Device message types an event trigger can subscribe to.
const (
	MessageOnline     = "online"
	MessageOffline    = "offline"
	MessageProperties = "properties"
	MessageEvent      = "event"
	MessageFunction   = "function"
)

// ConditionFilter is a single key/operator/value condition of a trigger.
// Values become positional query parameters when the trigger is compiled.
type ConditionFilter struct {
	Key      string `json:"key"`
	Operator string `json:"operator,omitempty"` // eq if empty
	Value    any    `json:"value"`
}

// Trigger is one condition-clause of an alarm rule bound to a data source.
// A trigger is owned exclusively by its rule and never shared.
type Trigger struct {
	Kind        TriggerKind       `json:"kind"`
	MessageType string            `json:"messageType,omitempty"` // event triggers only
	ModelID     string            `json:"modelId,omitempty"`     // event/function model reference
	Filters     []ConditionFilter `json:"filters,omitempty"`
}

// Topic resolves the external subject an event trigger subscribes to.
// Returns "" when the trigger cannot resolve one. The device segment is a
// wildcard when the rule is not scoped to a single device.
func (t Trigger) Topic(productID, deviceID string) string {
	if t.Kind != TriggerEvent || productID == "" {
		return ""
	}

	device := deviceID
	if device == "" {
		device = "*"
	}
	prefix := fmt.Sprintf("device.%s.%s", productID, device)

	switch t.MessageType {
	case MessageOnline:
		return prefix + ".online"
	case MessageOffline:
		return prefix + ".offline"
	case MessageProperties:
		return prefix + ".message.property.report"
	case MessageEvent:
		if t.ModelID == "" {
			return ""
		}
		return prefix + ".message.event." + t.ModelID
	case MessageFunction:
		return prefix + ".message.function.reply"
	default:
		return ""
	}
}

// FilterBinds returns the positional parameter values of the trigger's
// filters, in filter order. The order matches the placeholders emitted by
// the trigger compiler.
func (t Trigger) FilterBinds() []any {
	if len(t.Filters) == 0 {
		return nil
	}
	binds := make([]any, 0, len(t.Filters))
	for _, f := range t.Filters {
		binds = append(binds, f.Value)
	}
	return binds
}

// Duration wraps time.Duration with JSON support for "10s"-style strings.
// Bare numbers are interpreted as seconds.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", str, err)
		}
		*d = Duration(parsed)
		return nil
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", s, err)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ShakeLimit is the flapping-suppression policy of a rule: repeated alarms
// inside one window collapse to a single record carrying the window count.
type ShakeLimit struct {
	Enabled   bool     `json:"enabled"`
	Window    Duration `json:"window"`
	Threshold int      `json:"threshold,omitempty"`
}

// Active reports whether the policy should be applied.
func (s *ShakeLimit) Active() bool {
	return s != nil && s.Enabled && s.Window.Std() > 0
}

// AlarmRule is the immutable representation of one alarm rule. Trigger
// order is significant: it determines the trigger index used for timer
// routing and parameter binding.
type AlarmRule struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	ProductID   string            `json:"productId"`
	ProductName string            `json:"productName,omitempty"`
	DeviceID    string            `json:"deviceId,omitempty"`
	DeviceName  string            `json:"deviceName,omitempty"`
	Level       *int              `json:"level,omitempty"`
	Type        string            `json:"type,omitempty"`
	Triggers    []Trigger         `json:"triggers"`
	ShakeLimit  *ShakeLimit       `json:"shakeLimit,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"` // property -> output alias
}

// Validate checks that the rule can run: identity fields present, at least
// one trigger, and every event trigger resolving a non-empty topic.
func (r *AlarmRule) Validate() error {
	if r.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "AlarmRule", "Validate", "check rule id")
	}
	if r.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "AlarmRule", "Validate", "check rule name")
	}
	if r.ProductID == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "AlarmRule", "Validate", "check product id")
	}
	if len(r.Triggers) == 0 {
		return errors.WrapInvalid(errors.ErrNoTriggers, "AlarmRule", "Validate", "check triggers")
	}

	for i, trigger := range r.Triggers {
		switch trigger.Kind {
		case TriggerTimer:
			// Timer triggers read the shared pipeline input, nothing to resolve.
		case TriggerEvent:
			if trigger.Topic(r.ProductID, r.DeviceID) == "" {
				return errors.WrapInvalid(errors.ErrNoTopic, "AlarmRule", "Validate",
					fmt.Sprintf("resolve topic for trigger %d", i))
			}
		default:
			return errors.WrapInvalid(errors.ErrInvalidConfig, "AlarmRule", "Validate",
				fmt.Sprintf("unknown trigger kind %q at index %d", trigger.Kind, i))
		}
	}

	return nil
}

// DeviceScoped reports whether the rule targets a single specific device.
// Device-scoped rules use one global shake-limit window instead of
// per-device grouping.
func (r *AlarmRule) DeviceScoped() bool {
	return r.DeviceID != ""
}
