package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// StartValue is a sequence start: either a number or a raw clause that begins
// with the number and continues with further sequence options, e.g.
// "100 NOCACHE INCREMENT BY 10". The zero value means "use the default".
type StartValue struct {
	Value  int64
	Clause string
}

// StartAt returns a numeric start value.
func StartAt(n int64) StartValue {
	return StartValue{Value: n}
}

// StartWithClause returns a raw start clause. Value holds its leading number
// when there is one.
func StartWithClause(clause string) StartValue {
	sv := StartValue{Clause: strings.TrimSpace(clause)}
	if fields := strings.Fields(sv.Clause); len(fields) > 0 {
		sv.Value, _ = strconv.ParseInt(fields[0], 10, 64)
	}
	return sv
}

// IsZero reports whether no start value was given.
func (s StartValue) IsZero() bool {
	return s.Value == 0 && s.Clause == ""
}

// IsRaw reports whether the start value carries extra sequence options.
func (s StartValue) IsRaw() bool {
	return s.Clause != ""
}

// String renders the text that follows START WITH.
func (s StartValue) String() string {
	if s.Clause != "" {
		return s.Clause
	}
	return strconv.FormatInt(s.Value, 10)
}

// ParseStartValue accepts integers, floats without fraction and strings. A
// string holding just a number becomes numeric.
func ParseStartValue(v any) (StartValue, error) {
	switch x := v.(type) {
	case nil:
		return StartValue{}, nil
	case StartValue:
		return x, nil
	case int:
		return StartAt(int64(x)), nil
	case int64:
		return StartAt(x), nil
	case int32:
		return StartAt(int64(x)), nil
	case uint64:
		return StartAt(int64(x)), nil
	case float64:
		if x != float64(int64(x)) {
			return StartValue{}, fmt.Errorf("sequence start value %v is not an integer", x)
		}
		return StartAt(int64(x)), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return StartValue{}, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return StartAt(n), nil
		}
		first := strings.Fields(s)[0]
		if _, err := strconv.ParseInt(first, 10, 64); err != nil {
			return StartValue{}, fmt.Errorf("sequence start clause %q must begin with a number", s)
		}
		return StartWithClause(s), nil
	}
	return StartValue{}, fmt.Errorf("unsupported sequence start value %T", v)
}

var startValueType = reflect.TypeOf(StartValue{})

// StartValueHook lets schema files write sequence_start_value as a number or
// a clause.
func StartValueHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != startValueType || from == startValueType {
			return data, nil
		}
		return ParseStartValue(data)
	}
}
