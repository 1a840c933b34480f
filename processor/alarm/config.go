package alarm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/alarmstreams/errors"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// ruleSchema is the structural contract a rule document must satisfy
// before strict decoding. It catches missing identity fields and empty
// trigger lists with readable field-level messages instead of the
// generic decode errors a json.Decoder would produce.
const ruleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rule"],
  "properties": {
    "rule": {
      "type": "object",
      "required": ["id", "name", "productId", "triggers"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string", "minLength": 1},
        "productId": {"type": "string", "minLength": 1},
        "productName": {"type": "string"},
        "deviceId": {"type": "string"},
        "deviceName": {"type": "string"},
        "level": {"type": "integer"},
        "type": {"type": "string"},
        "triggers": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["kind"],
            "properties": {
              "kind": {"enum": ["timer", "event"]},
              "messageType": {"type": "string"},
              "modelId": {"type": "string"},
              "filters": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["key", "value"],
                  "properties": {
                    "key": {"type": "string", "minLength": 1},
                    "operator": {"type": "string"}
                  }
                }
              }
            }
          }
        },
        "shakeLimit": {
          "type": "object",
          "required": ["enabled"],
          "properties": {
            "enabled": {"type": "boolean"},
            "window": {"type": ["string", "number"]},
            "threshold": {"type": "integer", "minimum": 0}
          }
        },
        "properties": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        }
      }
    }
  }
}`

var compiledRuleSchema = mustSchema(ruleSchema)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("rule schema does not compile: %v", err))
	}
	return schema
}

// document is the on-wire envelope of an executor configuration.
type document struct {
	Rule *atypes.AlarmRule `json:"rule"`
}

// parseConfig validates and decodes a rule document. Validation is
// fail-closed: a document that does not pass the schema, carries unknown
// fields, or fails semantic rule validation never produces a rule.
func parseConfig(raw []byte) (*atypes.AlarmRule, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "AlarmConfig", "parseConfig", "read document")
	}

	result, err := compiledRuleSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.WrapInvalid(err, "AlarmConfig", "parseConfig", "run schema validation")
	}
	if !result.Valid() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, schemaFailures(result)),
			"AlarmConfig", "parseConfig", "validate document schema")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.WrapInvalid(err, "AlarmConfig", "parseConfig", "decode document")
	}
	if doc.Rule == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingRule, "AlarmConfig", "parseConfig", "read rule entry")
	}
	if err := doc.Rule.Validate(); err != nil {
		return nil, err
	}
	return doc.Rule, nil
}

// schemaFailures flattens validation errors into one line per failure.
func schemaFailures(result *gojsonschema.Result) string {
	parts := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		parts = append(parts, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return strings.Join(parts, "; ")
}
