package capability

import (
	"reflect"
	"strings"
)

// Normalized forms handed to rules after a successful base check:
//
//	String   string
//	Number   float64
//	Boolean  bool
//	Array    []any
//	Object   map[string]any
//	Function the original func value
//	Any      the original value
//
// CheckKind returns the normalized value, whether it came from a string
// conversion, and a failure if v is not of the kind. Conversions from numeric
// and boolean strings are applied only when convert is true.
func CheckKind(kind Kind, v any, convert bool) (normalized any, converted bool, f *Failure) {
	switch kind {
	case String:
		if s, ok := v.(string); ok {
			return s, false, nil
		}
		return nil, false, kindFailure("must be a string")

	case Number:
		if n, err := ToFloat64(v); err == nil {
			return n, false, nil
		}
		if s, ok := v.(string); ok && convert {
			if n, ok := parseNumber(s); ok {
				return n, true, nil
			}
		}
		return nil, false, kindFailure("must be a number")

	case Boolean:
		if b, ok := v.(bool); ok {
			return b, false, nil
		}
		if s, ok := v.(string); ok && convert {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true":
				return true, true, nil
			case "false":
				return false, true, nil
			}
		}
		return nil, false, kindFailure("must be a boolean")

	case Array:
		if a, ok := AsSlice(v); ok {
			return a, false, nil
		}
		return nil, false, kindFailure("must be an array")

	case Object:
		if m, ok := AsObject(v); ok {
			return m, false, nil
		}
		return nil, false, kindFailure("must be an object")

	case Function:
		if IsFunc(v) {
			return v, false, nil
		}
		return nil, false, kindFailure("must be a function")

	case Any:
		return v, false, nil
	}
	return nil, false, kindFailure("has an unsupported type")
}

func kindFailure(msg string) *Failure {
	return &Failure{Constraint: "type", Message: msg}
}

// AsSlice returns v as []any. Typed slices are copied.
func AsSlice(v any) ([]any, bool) {
	if a, ok := v.([]any); ok {
		return a, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// AsObject returns v as map[string]any. Maps with other string-keyed value types are copied.
func AsObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// IsFunc reports whether v is a non-nil function value.
func IsFunc(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func && !rv.IsNil()
}
