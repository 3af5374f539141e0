package automation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCondition reports a condition document that cannot be decoded.
var ErrInvalidCondition = errors.New("automation: invalid condition")

type rawCondition struct {
	Op         string            `json:"op"`
	Field      Field             `json:"field"`
	Value      json.RawMessage   `json:"value"`
	Conditions []json.RawMessage `json:"conditions"`
}

// ParseConditions decodes a JSON array of conditions into an All.
// Each element is {"op": ..., "field": ..., "value": ...}; "all" and "any" take
// "conditions" instead.
func ParseConditions(data []byte) (All, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	out := make(All, 0, len(raws))
	for i, raw := range raws {
		cond, err := decodeCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		out = append(out, cond)
	}
	return out, nil
}

func decodeCondition(data json.RawMessage) (Condition, error) {
	var raw rawCondition
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	switch raw.Op {
	case "all", "any":
		children := make([]Condition, 0, len(raw.Conditions))
		for _, child := range raw.Conditions {
			cond, err := decodeCondition(child)
			if err != nil {
				return nil, err
			}
			children = append(children, cond)
		}
		if raw.Op == "all" {
			return All(children), nil
		}
		return Any(children), nil
	case "equals", "not_equals", "contains":
		value, err := textValue(raw)
		if err != nil {
			return nil, err
		}
		switch raw.Op {
		case "equals":
			return Equals{Field: raw.Field, Value: value}, nil
		case "not_equals":
			return NotEquals{Field: raw.Field, Value: value}, nil
		default:
			return Contains{Field: raw.Field, Value: value}, nil
		}
	case "in":
		if raw.Field.kind() != kindText {
			return nil, fmt.Errorf("%w: in needs a text field, got %q", ErrInvalidCondition, raw.Field)
		}
		var values []string
		if err := json.Unmarshal(raw.Value, &values); err != nil {
			return nil, fmt.Errorf("%w: in needs a string list: %v", ErrInvalidCondition, err)
		}
		return In{Field: raw.Field, Values: values}, nil
	case "greater_than", "less_than":
		if raw.Field.kind() != kindNumber {
			return nil, fmt.Errorf("%w: %s needs a numeric field, got %q", ErrInvalidCondition, raw.Op, raw.Field)
		}
		var value float64
		if err := json.Unmarshal(raw.Value, &value); err != nil {
			return nil, fmt.Errorf("%w: %s needs a number: %v", ErrInvalidCondition, raw.Op, err)
		}
		if raw.Op == "greater_than" {
			return GreaterThan{Field: raw.Field, Value: value}, nil
		}
		return LessThan{Field: raw.Field, Value: value}, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, raw.Op)
}

func textValue(raw rawCondition) (string, error) {
	if raw.Field.kind() != kindText {
		return "", fmt.Errorf("%w: %s needs a text field, got %q", ErrInvalidCondition, raw.Op, raw.Field)
	}
	var value string
	if err := json.Unmarshal(raw.Value, &value); err != nil {
		return "", fmt.Errorf("%w: %s needs a string: %v", ErrInvalidCondition, raw.Op, err)
	}
	return value, nil
}
