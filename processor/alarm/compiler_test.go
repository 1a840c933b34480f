package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/testutil"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

func TestCompileTrigger_DefaultColumns(t *testing.T) {
	rule := testutil.Rule("r1")
	spec, err := compileTrigger(0, atypes.Trigger{Kind: atypes.TriggerTimer}, rule)
	require.NoError(t, err)

	assert.Equal(t, "select "+defaultColumns+" from msg", spec.Text)
	assert.Empty(t, spec.Binds)
}

func TestCompileTrigger_PropertiesProjectedSorted(t *testing.T) {
	rule := testutil.Rule("r1")
	rule.Properties = map[string]string{
		"temp":     "properties.temperature",
		"humidity": "properties.humidity",
	}

	spec, err := compileTrigger(0, atypes.Trigger{Kind: atypes.TriggerTimer}, rule)
	require.NoError(t, err)

	// Alphabetical by output alias, regardless of map iteration order.
	assert.Contains(t, spec.Text,
		`,this.properties.humidity "humidity",this.properties.temperature "temp" from msg`)
}

func TestCompileTrigger_Filters(t *testing.T) {
	tests := []struct {
		name     string
		filters  []atypes.ConditionFilter
		wantText string
		wantBind []any
	}{
		{
			name:     "single eq",
			filters:  []atypes.ConditionFilter{{Key: "properties.temp", Operator: "gt", Value: 40}},
			wantText: " where properties.temp > ?",
			wantBind: []any{40},
		},
		{
			name:     "empty operator defaults to eq",
			filters:  []atypes.ConditionFilter{{Key: "deviceId", Value: "d1"}},
			wantText: " where deviceId = ?",
			wantBind: []any{"d1"},
		},
		{
			name: "conjunction preserves filter order",
			filters: []atypes.ConditionFilter{
				{Key: "a", Operator: "lte", Value: 1},
				{Key: "b", Operator: "not", Value: "x"},
				{Key: "c", Operator: "regex", Value: "^y"},
			},
			wantText: " where a <= ? and b != ? and c regexp ?",
			wantBind: []any{1, "x", "^y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := testutil.Rule("r1")
			spec, err := compileTrigger(0, atypes.Trigger{Kind: atypes.TriggerTimer, Filters: tt.filters}, rule)
			require.NoError(t, err)
			assert.Contains(t, spec.Text, tt.wantText)
			assert.Equal(t, tt.wantBind, spec.Binds)
		})
	}
}

func TestCompileTrigger_UnknownOperator(t *testing.T) {
	rule := testutil.Rule("r1")
	trigger := atypes.Trigger{
		Kind:    atypes.TriggerTimer,
		Filters: []atypes.ConditionFilter{{Key: "a", Operator: "between", Value: 1}},
	}

	_, err := compileTrigger(0, trigger, rule)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCompileFailed)
	assert.Contains(t, err.Error(), "between")
}

func TestCompileTrigger_Deterministic(t *testing.T) {
	rule := testutil.Rule("r1")
	rule.Properties = map[string]string{"a": "x", "b": "y", "c": "z"}
	trigger := atypes.Trigger{
		Kind:    atypes.TriggerTimer,
		Filters: []atypes.ConditionFilter{{Key: "a", Operator: "eq", Value: 1}},
	}

	first, err := compileTrigger(0, trigger, rule)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := compileTrigger(0, trigger, rule)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompileAll(t *testing.T) {
	engine := testutil.NewPassThroughEngine()
	rule := testutil.Rule("r1", testutil.WithTriggers(
		atypes.Trigger{Kind: atypes.TriggerTimer},
		atypes.Trigger{Kind: atypes.TriggerEvent, MessageType: atypes.MessageOnline},
	))

	compiled, err := compileAll(engine, rule)
	require.NoError(t, err)
	require.Len(t, compiled, 2)
	assert.Equal(t, 0, compiled[0].index)
	assert.Equal(t, atypes.TriggerEvent, compiled[1].trigger.Kind)
	assert.Len(t, engine.CompiledTexts(), 2)
}

func TestCompileAll_FailureAbortsWholeBuild(t *testing.T) {
	engine := testutil.NewPassThroughEngine()
	rule := testutil.Rule("r1", testutil.WithTriggers(
		atypes.Trigger{Kind: atypes.TriggerTimer},
		atypes.Trigger{
			Kind:    atypes.TriggerTimer,
			Filters: []atypes.ConditionFilter{{Key: "a", Operator: "nope", Value: 1}},
		},
	))

	compiled, err := compileAll(engine, rule)
	require.Error(t, err)
	assert.Nil(t, compiled)
	assert.ErrorIs(t, err, errors.ErrCompileFailed)
}
