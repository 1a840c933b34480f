package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/alarmstreams/testutil"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

func TestRowToRecord(t *testing.T) {
	row := testutil.PropertyRow("d1",
		testutil.WithTimestamp(1234),
		testutil.WithCorrelationID("m1"),
		testutil.WithProperty("temp", 42),
		testutil.WithProperty(atypes.FieldTotalAlarms, 5))

	record := rowToRecord(row)
	assert.Equal(t, int64(1234), record[atypes.FieldTimestamp])
	assert.Equal(t, "d1", record[atypes.FieldDeviceID])
	assert.Equal(t, atypes.MessageProperties, record[atypes.FieldMessageType])
	assert.Equal(t, "m1", record[atypes.FieldUID])
	assert.Equal(t, 42, record["temp"])
	assert.Equal(t, 5, record[atypes.FieldTotalAlarms])

	_, ok := record["headers"]
	assert.False(t, ok, "raw headers must not leak into records")
}

func TestFinalize_MandatoryFieldsOverwrite(t *testing.T) {
	rule := testutil.Rule("r1")
	rule.Name = "overheat"

	record := atypes.Record{
		atypes.FieldProductID: "stale",
		atypes.FieldAlarmID:   "stale",
		atypes.FieldAlarmName: "stale",
	}
	finalize(record, rule)

	assert.Equal(t, "p1", record[atypes.FieldProductID])
	assert.Equal(t, "r1", record[atypes.FieldAlarmID])
	assert.Equal(t, "overheat", record[atypes.FieldAlarmName])
}

func TestFinalize_OptionalFields(t *testing.T) {
	level := 3
	rule := testutil.Rule("r1")
	rule.Level = &level
	rule.Type = "threshold"

	record := finalize(atypes.Record{}, rule)
	assert.Equal(t, 3, record[atypes.FieldAlarmLevel])
	assert.Equal(t, "threshold", record[atypes.FieldAlarmType])

	bare := finalize(atypes.Record{}, testutil.Rule("r2"))
	_, ok := bare[atypes.FieldAlarmLevel]
	assert.False(t, ok)
	_, ok = bare[atypes.FieldAlarmType]
	assert.False(t, ok)
}

func TestFinalize_DefaultsDoNotOverwrite(t *testing.T) {
	rule := testutil.Rule("r1", testutil.WithDevice("rule-device"))
	rule.DeviceName = "rule name"
	rule.ProductName = "rule product"

	record := atypes.Record{
		atypes.FieldDeviceID:    "row-device",
		atypes.FieldDeviceName:  "row name",
		atypes.FieldProductName: "row product",
	}
	finalize(record, rule)

	assert.Equal(t, "row-device", record[atypes.FieldDeviceID])
	assert.Equal(t, "row name", record[atypes.FieldDeviceName])
	assert.Equal(t, "row product", record[atypes.FieldProductName])
}

func TestFinalize_Fallbacks(t *testing.T) {
	rule := testutil.Rule("r1")

	record := finalize(atypes.Record{atypes.FieldDeviceID: "d9"}, rule)
	assert.Equal(t, "d9", record[atypes.FieldDeviceName], "deviceName falls back to deviceId")
	assert.Equal(t, "p1", record[atypes.FieldProductName], "productName falls back to productId")

	// No device id anywhere: no deviceName either.
	empty := finalize(atypes.Record{}, rule)
	_, ok := empty[atypes.FieldDeviceName]
	assert.False(t, ok)
}

func TestFinalize_GeneratesID(t *testing.T) {
	rule := testutil.Rule("r1")

	record := finalize(atypes.Record{}, rule)
	id, ok := record[atypes.FieldID].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	other := finalize(atypes.Record{}, rule)
	assert.NotEqual(t, id, other[atypes.FieldID])

	kept := finalize(atypes.Record{atypes.FieldID: "fixed"}, rule)
	assert.Equal(t, "fixed", kept[atypes.FieldID])
}

func TestFinalize_Idempotent(t *testing.T) {
	rule := testutil.Rule("r1", testutil.WithDevice("d1"))
	rule.DeviceName = "dn"

	record := finalize(atypes.Record{atypes.FieldDeviceID: "d1"}, rule)
	snapshot := record.Clone()

	finalize(record, rule)
	assert.Equal(t, snapshot, record)
}
