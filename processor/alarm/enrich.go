package alarm

import (
	"github.com/google/uuid"

	atypes "github.com/c360/alarmstreams/types/alarm"
)

// rowToRecord converts a pipeline row to the public alarm record shape.
// The raw header map is dropped here: headers drive evaluation, not the
// published alarm.
func rowToRecord(row atypes.Row) atypes.Record {
	record := make(atypes.Record, len(row.Fields)+6)
	for name, value := range row.Fields {
		record[name] = value
	}

	record[atypes.FieldTimestamp] = row.Timestamp
	if row.DeviceID != "" {
		record[atypes.FieldDeviceID] = row.DeviceID
	}
	if row.MessageType != "" {
		record[atypes.FieldMessageType] = row.MessageType
	}
	if row.CorrelationID != "" {
		record[atypes.FieldUID] = row.CorrelationID
	}
	return record
}

// finalize enriches a record into its published form. The steps run in
// a fixed order; every step is default-if-absent except the mandatory
// rule identity fields, which always overwrite. Finalizing an already
// finalized record is a no-op apart from re-asserting those fields.
func finalize(record atypes.Record, rule atypes.AlarmRule) atypes.Record {
	record[atypes.FieldProductID] = rule.ProductID
	record[atypes.FieldAlarmID] = rule.ID
	record[atypes.FieldAlarmName] = rule.Name

	if rule.Level != nil {
		record[atypes.FieldAlarmLevel] = *rule.Level
	}
	if rule.Type != "" {
		record[atypes.FieldAlarmType] = rule.Type
	}

	if rule.DeviceName != "" {
		setIfAbsent(record, atypes.FieldDeviceName, rule.DeviceName)
	}
	if rule.ProductName != "" {
		setIfAbsent(record, atypes.FieldProductName, rule.ProductName)
	}
	if rule.DeviceID != "" {
		setIfAbsent(record, atypes.FieldDeviceID, rule.DeviceID)
	}

	if _, ok := record[atypes.FieldDeviceName]; !ok {
		if deviceID, present := record[atypes.FieldDeviceID]; present {
			record[atypes.FieldDeviceName] = deviceID
		}
	}
	if _, ok := record[atypes.FieldProductName]; !ok {
		record[atypes.FieldProductName] = rule.ProductID
	}

	if _, ok := record[atypes.FieldID]; !ok {
		record[atypes.FieldID] = uuid.NewString()
	}
	return record
}

func setIfAbsent(record atypes.Record, key string, value any) {
	if _, ok := record[key]; !ok {
		record[key] = value
	}
}
