package capability

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Input is the value under test together with its enclosing object.
// Parent is nil for array elements.
type Input struct {
	Key    string
	Value  any
	Parent map[string]any
}

// Failure describes why a rule rejected a value.
type Failure struct {
	Constraint string
	Message    string
	Expected   any
}

// Rule checks a single value that has already passed its base kind check.
type Rule func(in Input) *Failure

// Builder turns shape-checked arguments into a Rule.
type Builder func(args []any) Rule

var alphanumPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

func minLength(args []any) Rule {
	n, _ := ToInt(args[0])
	return func(in Input) *Failure {
		if utf8.RuneCountInString(in.Value.(string)) < n {
			return &Failure{Constraint: "min", Expected: n, Message: fmt.Sprintf("must be at least %d characters", n)}
		}
		return nil
	}
}

func maxLength(args []any) Rule {
	n, _ := ToInt(args[0])
	return func(in Input) *Failure {
		if utf8.RuneCountInString(in.Value.(string)) > n {
			return &Failure{Constraint: "max", Expected: n, Message: fmt.Sprintf("must be at most %d characters", n)}
		}
		return nil
	}
}

func exactLength(args []any) Rule {
	n, _ := ToInt(args[0])
	return func(in Input) *Failure {
		if utf8.RuneCountInString(in.Value.(string)) != n {
			return &Failure{Constraint: "length", Expected: n, Message: fmt.Sprintf("must be exactly %d characters", n)}
		}
		return nil
	}
}

func alphanum([]any) Rule {
	return func(in Input) *Failure {
		if !alphanumPattern.MatchString(in.Value.(string)) {
			return &Failure{Constraint: "alphanum", Message: "must only contain letters and digits"}
		}
		return nil
	}
}

func pattern(args []any) Rule {
	re := regexp.MustCompile(args[0].(string))
	return func(in Input) *Failure {
		if !re.MatchString(in.Value.(string)) {
			return &Failure{Constraint: "regex", Expected: re.String(), Message: "does not match required pattern"}
		}
		return nil
	}
}

func email([]any) Rule {
	return func(in Input) *Failure {
		s := in.Value.(string)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return &Failure{Constraint: "email", Message: "must be a valid email address"}
		}
		return nil
	}
}

func date([]any) Rule {
	return func(in Input) *Failure {
		s := in.Value.(string)
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return nil
		}
		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return nil
		}
		return &Failure{Constraint: "date", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
	}
}

func lowercase([]any) Rule {
	return func(in Input) *Failure {
		s := in.Value.(string)
		if s != strings.ToLower(s) {
			return &Failure{Constraint: "lowercase", Message: "must be lowercase"}
		}
		return nil
	}
}

func uppercase([]any) Rule {
	return func(in Input) *Failure {
		s := in.Value.(string)
		if s != strings.ToUpper(s) {
			return &Failure{Constraint: "uppercase", Message: "must be uppercase"}
		}
		return nil
	}
}

func minNumber(args []any) Rule {
	bound, _ := ToFloat64(args[0])
	return func(in Input) *Failure {
		if in.Value.(float64) < bound {
			return &Failure{Constraint: "min", Expected: bound, Message: fmt.Sprintf("must be at least %v", bound)}
		}
		return nil
	}
}

func maxNumber(args []any) Rule {
	bound, _ := ToFloat64(args[0])
	return func(in Input) *Failure {
		if in.Value.(float64) > bound {
			return &Failure{Constraint: "max", Expected: bound, Message: fmt.Sprintf("must be at most %v", bound)}
		}
		return nil
	}
}

func integer([]any) Rule {
	return func(in Input) *Failure {
		f := in.Value.(float64)
		if math.Trunc(f) != f {
			return &Failure{Constraint: "integer", Message: "must be an integer"}
		}
		return nil
	}
}

func positive([]any) Rule {
	return func(in Input) *Failure {
		if in.Value.(float64) <= 0 {
			return &Failure{Constraint: "positive", Message: "must be a positive number"}
		}
		return nil
	}
}

func negative([]any) Rule {
	return func(in Input) *Failure {
		if in.Value.(float64) >= 0 {
			return &Failure{Constraint: "negative", Message: "must be a negative number"}
		}
		return nil
	}
}

func minItems(args []any) Rule {
	n, _ := ToInt(args[0])
	return func(in Input) *Failure {
		if len(in.Value.([]any)) < n {
			return &Failure{Constraint: "min", Expected: n, Message: fmt.Sprintf("must contain at least %d items", n)}
		}
		return nil
	}
}

func maxItems(args []any) Rule {
	n, _ := ToInt(args[0])
	return func(in Input) *Failure {
		if len(in.Value.([]any)) > n {
			return &Failure{Constraint: "max", Expected: n, Message: fmt.Sprintf("must contain at most %d items", n)}
		}
		return nil
	}
}

func exactItems(args []any) Rule {
	n, _ := ToInt(args[0])
	return func(in Input) *Failure {
		if len(in.Value.([]any)) != n {
			return &Failure{Constraint: "length", Expected: n, Message: fmt.Sprintf("must contain exactly %d items", n)}
		}
		return nil
	}
}

func with(args []any) Rule {
	peers := stringArgs(args)
	return func(in Input) *Failure {
		if in.Parent == nil {
			return nil
		}
		var missing []string
		for _, p := range peers {
			if _, ok := in.Parent[p]; !ok {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			return &Failure{Constraint: "with", Expected: peers, Message: "requires peers: " + strings.Join(missing, ", ")}
		}
		return nil
	}
}

func without(args []any) Rule {
	peers := stringArgs(args)
	return func(in Input) *Failure {
		if in.Parent == nil {
			return nil
		}
		var present []string
		for _, p := range peers {
			if _, ok := in.Parent[p]; ok {
				present = append(present, p)
			}
		}
		if len(present) > 0 {
			return &Failure{Constraint: "without", Expected: peers, Message: "conflicts with peers: " + strings.Join(present, ", ")}
		}
		return nil
	}
}

func stringArgs(args []any) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, a.(string))
	}
	return out
}

// ToFloat64 converts the numeric types produced by JSON, YAML and Go callers to float64.
func ToFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// ToInt converts a whole number to int.
func ToInt(v any) (int, error) {
	f, err := ToFloat64(v)
	if err != nil {
		return 0, err
	}
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	return int(f), nil
}

// parseNumber converts a numeric string when conversions are enabled.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
