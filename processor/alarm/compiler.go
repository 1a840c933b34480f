package alarm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/query"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// defaultColumns is the fixed projection every trigger query starts
// with. Downstream stages rely on these aliases for the uniform row
// shape.
const defaultColumns = `this.timestamp "timestamp",` +
	`this.deviceId "deviceId",` +
	`this.headers headers,` +
	`this.headers.deviceName deviceName,` +
	`this.headers._uid _uid,` +
	`this.messageType messageType`

// filterOperators maps rule filter operators to query operators.
var filterOperators = map[string]string{
	"eq":    "=",
	"not":   "!=",
	"neq":   "!=",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "like",
	"regex": "regexp",
}

// compiledTrigger pairs a trigger with its compiled query. The mapping
// index → compiledTrigger is immutable once built; reload builds a fresh
// one and swaps it atomically.
type compiledTrigger struct {
	index   int
	trigger atypes.Trigger
	spec    query.CompiledQuery
	query   query.Query
}

// compileTrigger derives the query specification for one trigger. It is
// a pure function of (index, trigger, rule.Properties): identical inputs
// always produce identical text, so compiled queries can be cached by
// trigger identity.
func compileTrigger(index int, trigger atypes.Trigger, rule atypes.AlarmRule) (query.CompiledQuery, error) {
	var sb strings.Builder
	sb.WriteString("select ")
	sb.WriteString(defaultColumns)

	// Property projections in sorted order keep the text deterministic.
	names := make([]string, 0, len(rule.Properties))
	for name := range rule.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, ",this.%s %q", rule.Properties[name], name)
	}

	sb.WriteString(" from msg")

	if len(trigger.Filters) > 0 {
		sb.WriteString(" where ")
		for i, filter := range trigger.Filters {
			name := filter.Operator
			if name == "" {
				name = "eq"
			}
			op, ok := filterOperators[name]
			if !ok {
				return query.CompiledQuery{}, errors.WrapInvalid(
					fmt.Errorf("%w: trigger %d filter %q has unknown operator %q",
						errors.ErrCompileFailed, index, filter.Key, filter.Operator),
					"Compiler", "compileTrigger", "map filter operator")
			}
			if i > 0 {
				sb.WriteString(" and ")
			}
			fmt.Fprintf(&sb, "%s %s ?", filter.Key, op)
		}
	}

	return query.CompiledQuery{
		Text:  sb.String(),
		Binds: trigger.FilterBinds(),
	}, nil
}

// compileAll builds the full trigger → query mapping for a rule. Any
// trigger failing to compile aborts the whole build so a reload never
// swaps in a partial mapping.
func compileAll(engine query.Engine, rule atypes.AlarmRule) (map[int]*compiledTrigger, error) {
	compiled := make(map[int]*compiledTrigger, len(rule.Triggers))
	for index, trigger := range rule.Triggers {
		spec, err := compileTrigger(index, trigger, rule)
		if err != nil {
			return nil, err
		}

		q, err := engine.Compile(spec.Text)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: trigger %d: %v", errors.ErrCompileFailed, index, err),
				"Compiler", "compileAll", "compile trigger query")
		}

		compiled[index] = &compiledTrigger{
			index:   index,
			trigger: trigger,
			spec:    spec,
			query:   q,
		}
	}
	return compiled, nil
}
