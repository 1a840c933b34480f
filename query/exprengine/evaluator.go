package exprengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360/alarmstreams/query"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// Run binds the compiled query to a row source and streams matching,
// projected rows. Rows whose conditions fail to evaluate are skipped.
func (q *compiled) Run(ctx context.Context, src query.Source, binds []any) (<-chan atypes.Row, error) {
	return q.RunReporting(ctx, src, binds, nil)
}

// RunReporting is Run with a per-row error callback: a row whose
// condition fails to evaluate (bad regexp arriving through a bind, for
// example) is reported and skipped, and the stream keeps running.
func (q *compiled) RunReporting(ctx context.Context, src query.Source, binds []any, onErr func(error)) (<-chan atypes.Row, error) {
	if len(binds) < q.bindCount {
		return nil, fmt.Errorf("query needs %d parameters, got %d", q.bindCount, len(binds))
	}

	in, err := src(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan atypes.Row)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case row, ok := <-in:
				if !ok {
					return
				}
				match, err := q.matches(row, binds)
				if err != nil {
					if onErr != nil {
						onErr(err)
					}
					continue
				}
				if !match {
					continue
				}
				select {
				case out <- q.project(row):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// matches evaluates the where clause against one row. Conditions on
// absent fields are false, they never error.
func (q *compiled) matches(row atypes.Row, binds []any) (bool, error) {
	if len(q.conds) == 0 {
		return true, nil
	}

	for _, cond := range q.conds {
		result, err := q.evalCondition(row, cond, binds)
		if err != nil {
			return false, err
		}

		if q.logic == "or" {
			if result {
				return true, nil
			}
		} else if !result {
			return false, nil
		}
	}
	return q.logic != "or", nil
}

func (q *compiled) evalCondition(row atypes.Row, cond condition, binds []any) (bool, error) {
	fieldValue, ok := row.Value(cond.path)
	if !ok {
		return false, nil
	}

	rhs := cond.rhs.value
	if cond.rhs.bind {
		rhs = binds[cond.rhs.bindIndex]
	}

	switch cond.op {
	case "=":
		return compareValues(fieldValue, rhs) == 0, nil
	case "!=":
		return compareValues(fieldValue, rhs) != 0, nil
	case "<":
		return compareValues(fieldValue, rhs) < 0, nil
	case "<=":
		return compareValues(fieldValue, rhs) <= 0, nil
	case ">":
		return compareValues(fieldValue, rhs) > 0, nil
	case ">=":
		return compareValues(fieldValue, rhs) >= 0, nil
	case "like":
		return strings.Contains(asString(fieldValue), asString(rhs)), nil
	case "regexp":
		pattern, ok := rhs.(string)
		if !ok {
			return false, fmt.Errorf("regexp pattern must be a string")
		}
		re, err := compileRegex(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(asString(fieldValue)), nil
	default:
		return false, fmt.Errorf("unsupported operator %q", cond.op)
	}
}

// project builds the output row from the select list. Aliases matching
// the default output columns populate the typed row fields; everything
// else lands in the extension map.
func (q *compiled) project(row atypes.Row) atypes.Row {
	var out atypes.Row

	for _, col := range q.columns {
		value, ok := row.Value(col.path)
		if !ok {
			continue
		}

		switch col.alias {
		case "timestamp":
			if ts, ok := asInt64(value); ok {
				out.Timestamp = ts
			}
		case "deviceId":
			out.DeviceID = asString(value)
		case "messageType":
			out.MessageType = asString(value)
		case atypes.HeaderUID:
			out.CorrelationID = asString(value)
		case "headers":
			if h, ok := value.(map[string]any); ok {
				out.Headers = h
			}
		default:
			out.SetField(col.alias, value)
		}
	}

	return out
}

// compareValues compares numerically when both sides are numbers and
// falls back to string comparison otherwise.
func compareValues(a, b any) int {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)

	if aIsNum && bIsNum {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(asString(a), asString(b))
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt64(v any) (int64, bool) {
	if f, ok := toFloat64(v); ok {
		return int64(f), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
