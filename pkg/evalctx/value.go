package evalctx

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a resolved, typed field value.
type Value struct {
	typ DataType
	raw any // string, int64, float64 or bool
}

// FloatValue wraps a double.
func FloatValue(f float64) Value {
	return Value{typ: TypeDouble, raw: f}
}

// NewValue converts raw input to the given type.
func NewValue(t DataType, raw any) (Value, error) {
	switch t {
	case TypeDouble:
		f, err := toFloat(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{typ: TypeDouble, raw: f}, nil
	case TypeInteger:
		f, err := toFloat(raw)
		if err != nil {
			return Value{}, err
		}
		if f != math.Trunc(f) {
			return Value{}, fmt.Errorf("%v is not an integer", raw)
		}
		return Value{typ: TypeInteger, raw: int64(f)}, nil
	case TypeBoolean:
		switch b := raw.(type) {
		case bool:
			return Value{typ: TypeBoolean, raw: b}, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return Value{}, fmt.Errorf("%q is not a boolean", b)
			}
			return Value{typ: TypeBoolean, raw: parsed}, nil
		default:
			return Value{}, fmt.Errorf("%v (%T) is not a boolean", raw, raw)
		}
	case TypeString, "":
		return Value{typ: TypeString, raw: formatRaw(raw)}, nil
	default:
		return Value{}, fmt.Errorf("unknown data type %q", t)
	}
}

// inferValue picks a type from the Go type of raw for undeclared fields.
func inferValue(raw any) (Value, error) {
	switch raw.(type) {
	case bool:
		return NewValue(TypeBoolean, raw)
	case int, int32, int64, uint, uint32, uint64:
		return NewValue(TypeInteger, raw)
	case float32, float64, json.Number:
		return NewValue(TypeDouble, raw)
	default:
		return NewValue(TypeString, raw)
	}
}

// Type returns the value's data type.
func (v Value) Type() DataType { return v.typ }

// Interface returns the underlying Go value.
func (v Value) Interface() any { return v.raw }

// Float64 converts the value to a double.
func (v Value) Float64() (float64, error) {
	switch r := v.raw.(type) {
	case float64:
		return r, nil
	case int64:
		return float64(r), nil
	case bool:
		if r {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", r)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%v (%T) is not numeric", v.raw, v.raw)
	}
}

func (v Value) String() string {
	return formatRaw(v.raw)
}

// Compare orders the value against a literal from a model document.
// Numeric types compare numerically, booleans false < true, strings lexically.
func (v Value) Compare(literal string) (int, error) {
	switch {
	case v.typ.IsNumeric():
		left, err := v.Float64()
		if err != nil {
			return 0, err
		}
		right, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot compare numeric field with %q", literal)
		}
		switch {
		case left < right:
			return -1, nil
		case left > right:
			return 1, nil
		}
		return 0, nil
	case v.typ == TypeBoolean:
		right, err := strconv.ParseBool(strings.TrimSpace(literal))
		if err != nil {
			return 0, fmt.Errorf("cannot compare boolean field with %q", literal)
		}
		left := v.raw.(bool)
		switch {
		case left == right:
			return 0, nil
		case !left:
			return -1, nil
		}
		return 1, nil
	default:
		return strings.Compare(v.String(), literal), nil
	}
}

// Equals reports whether the value equals a literal under Compare semantics.
func (v Value) Equals(literal string) (bool, error) {
	c, err := v.Compare(literal)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%v (%T) is not numeric", raw, raw)
	}
}

func formatRaw(raw any) string {
	switch r := raw.(type) {
	case string:
		return r
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(r), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(r, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(r)
	}
}
