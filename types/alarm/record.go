package alarm

// Field names of an emitted alarm record.
const (
	FieldID          = "id"
	FieldTimestamp   = "timestamp"
	FieldDeviceID    = "deviceId"
	FieldDeviceName  = "deviceName"
	FieldProductID   = "productId"
	FieldProductName = "productName"
	FieldAlarmID     = "alarmId"
	FieldAlarmName   = "alarmName"
	FieldAlarmLevel  = "alarmLevel"
	FieldAlarmType   = "alarmType"
	FieldMessageType = "messageType"
	FieldTotalAlarms = "totalAlarms"
	FieldUID         = HeaderUID
)

// Record is a finalized alarm: a mapping from field name to value,
// delivered downstream in the same shape as consumed rows. Records are
// immutable once published.
type Record map[string]any

func (r Record) str(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ID returns the generated unique identifier of the record.
func (r Record) ID() string { return r.str(FieldID) }

// DeviceID returns the device the alarm names, possibly empty.
func (r Record) DeviceID() string { return r.str(FieldDeviceID) }

// ProductID returns the owning product identifier.
func (r Record) ProductID() string { return r.str(FieldProductID) }

// AlarmID returns the identifier of the rule that raised the alarm.
func (r Record) AlarmID() string { return r.str(FieldAlarmID) }

// AlarmName returns the display name of the rule.
func (r Record) AlarmName() string { return r.str(FieldAlarmName) }

// TotalAlarms returns the shake-limit window count, or 0 when the record
// was not aggregated.
func (r Record) TotalAlarms() int {
	if v, ok := r[FieldTotalAlarms]; ok {
		if n, ok := AsInt(v); ok {
			return n
		}
	}
	return 0
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
