package settings

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/settingskit/settingskit/internal/models"
)

// Decode converts a stored text value into its typed runtime form according
// to the definition's type. It is a pure function with no knowledge of
// persistence.
//
// Coercion rules: boolean treats "", "0" and "false" as false and anything
// else as true; integer parse failures yield 0 rather than an error; json
// parse failures return a *DecodeError; select and string pass through
// unchanged.
func Decode(raw string, t models.Type) (any, error) {
	switch t {
	case models.TypeBoolean:
		return decodeBool(raw), nil
	case models.TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return int64(0), nil
		}
		return n, nil
	case models.TypeJSON:
		if raw == "" {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, &DecodeError{Type: t, Err: err}
		}
		return v, nil
	default: // string, select
		return raw, nil
	}
}

// Encode converts a typed runtime value into its stored text form according
// to the definition's type. The inverse of Decode for well-formed values.
func Encode(v any, t models.Type) (string, error) {
	switch t {
	case models.TypeBoolean:
		if truthy(v) {
			return "1", nil
		}
		return "0", nil
	case models.TypeInteger:
		return encodeInteger(v), nil
	case models.TypeJSON:
		// A string that already holds JSON text passes through unchanged,
		// so re-encoding a stored value is a no-op.
		if s, ok := v.(string); ok && json.Valid([]byte(s)) {
			return s, nil
		}
		if raw, ok := v.(json.RawMessage); ok {
			return string(raw), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encoding json value: %w", err)
		}
		return string(data), nil
	default: // string, select
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
}

// InferType guesses a preference type from a value's runtime shape. Used
// when auto-creating definitions on first write.
func InferType(v any) models.Type {
	switch val := v.(type) {
	case bool:
		return models.TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.TypeInteger
	case float64:
		// JSON numbers always decode as float64; treat integral values as
		// integers so `42` round-trips through an integer definition.
		if val == float64(int64(val)) {
			return models.TypeInteger
		}
		return models.TypeString
	case float32:
		if val == float32(int64(val)) {
			return models.TypeInteger
		}
		return models.TypeString
	case map[string]any, []any:
		return models.TypeJSON
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return models.TypeString
		}
		return InferType(decoded)
	default:
		return models.TypeString
	}
}

// decodeBool interprets a stored boolean: empty, "0" and "false" are false,
// everything else is true.
func decodeBool(raw string) bool {
	switch raw {
	case "", "0", "false":
		return false
	}
	return true
}

// truthy reports whether a runtime value encodes as boolean true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return decodeBool(val)
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// encodeInteger renders an integer value in base 10. Strings pass through
// unchanged; Decode resolves unparsable text to 0 on the way back out.
func encodeInteger(v any) string {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatInt(int64(val), 10)
	case float32:
		return strconv.FormatInt(int64(val), 10)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case string:
		return val
	default:
		return fmt.Sprint(v)
	}
}
