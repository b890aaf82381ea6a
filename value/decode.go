package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Inbound directives are well-formed JSON (the line format's trailing-comma
// elision only ever removes a comma that would otherwise make the output
// invalid JSON), so decoding can lean on encoding/json for structure and
// apply §4.A's type coercion rules on top.

// DecodeValue converts a decoded JSON scalar (string, float64, bool, or a
// {"t":...,"v":...} extended form already split by the caller) into a typed
// Value matching tag.
func DecodeValue(tag Tag, raw any) (Value, error) {
	switch tag {
	case I32, I16, I8:
		n, ok := asNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("value: expected integer, got %T", raw)
		}
		return Value{Tag: tag, I: int64(n)}, nil
	case U32, U16, U8:
		n, ok := asNumber(raw)
		if !ok || n < 0 {
			return Value{}, fmt.Errorf("value: expected unsigned integer, got %T", raw)
		}
		return Value{Tag: tag, U: uint64(n)}, nil
	case F32, F64:
		n, ok := asNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("value: expected number, got %T", raw)
		}
		return Value{Tag: tag, F: n}, nil
	case Bool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("value: expected bool, got %T", raw)
		}
		return Value{Tag: tag, B: b}, nil
	case Str:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("value: expected string, got %T", raw)
		}
		return Value{Tag: tag, S: s}, nil
	default:
		return Value{}, fmt.Errorf("value: unknown tag %d", tag)
	}
}

func asNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// DecodeExtendedParam decodes the `{t:<tag>,v:<value>}` extended form used
// for parameter updates into a Value, the form's tag taking precedence over
// any Tag the caller already knows for the target parameter.
func DecodeExtendedParam(raw map[string]any) (Value, error) {
	tagName, ok := raw["t"].(string)
	if !ok {
		return Value{}, fmt.Errorf("value: extended parameter missing \"t\"")
	}
	tag, ok := TagFromWireName(tagName)
	if !ok {
		return Value{}, fmt.Errorf("value: unknown type tag %q", tagName)
	}
	v, ok := raw["v"]
	if !ok {
		return Value{}, fmt.Errorf("value: extended parameter missing \"v\"")
	}
	return DecodeValue(tag, v)
}

// ParseObject unmarshals a line-format object into a generic map, the entry
// point callers use before interpreting specific directive shapes.
func ParseObject(payload []byte) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("value: parse object: %w", err)
	}
	return m, nil
}
