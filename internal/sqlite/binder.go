package sqlite

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// DatetimeLayout is the text form time.Time values are bound with.
const DatetimeLayout = "2006-01-02 15:04:05"

// Bind infers the wire type of every value. The first matching rule wins:
// a types.Typed override; nil; booleans and integers; floats; byte slices;
// strings, times and values with a text form. Non-nil pointers are followed.
// Any other value yields a KindUnsupportedParameterType error.
func Bind(values []any) ([]types.BoundParam, error) {
	out := make([]types.BoundParam, len(values))
	for i, v := range values {
		p, err := bindValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		out[i] = p
	}
	return out, nil
}

// bindArgs returns the driver arguments for params.
func bindArgs(params []any) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	bound, err := Bind(params)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(bound))
	for i, p := range bound {
		args[i] = p.Value
	}
	return args, nil
}

func bindValue(v any) (types.BoundParam, error) {
	if t, ok := v.(types.Typed); ok {
		return coerce(t)
	}
	if v == nil {
		return null(), nil
	}

	switch x := v.(type) {
	case bool:
		if x {
			return integer(1), nil
		}
		return integer(0), nil
	case types.Blob:
		return blob(x), nil
	case []byte:
		return blob(x), nil
	case string:
		return text(x), nil
	case time.Time:
		return text(x.Format(DatetimeLayout)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return integer(1), nil
		}
		return integer(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return types.BoundParam{}, unsupported(v, "unsigned value overflows a 64-bit integer")
		}
		return integer(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return float(rv.Float()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return blob(rv.Bytes()), nil
		}
	case reflect.String:
		return text(rv.String()), nil
	}

	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return null(), nil
		}
		if p, err := bindValue(rv.Elem().Interface()); err == nil {
			return p, nil
		}
	}
	return bindText(v)
}

// bindText binds values that describe themselves as text.
func bindText(v any) (types.BoundParam, error) {
	switch x := v.(type) {
	case fmt.Stringer:
		return text(x.String()), nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		if err != nil {
			return types.BoundParam{}, unsupported(v, err.Error())
		}
		return text(string(b)), nil
	}
	return types.BoundParam{}, unsupported(v, "")
}

// coerce converts an override's value to its declared type.
func coerce(t types.Typed) (types.BoundParam, error) {
	switch t.Type {
	case types.ParamNull:
		return null(), nil
	case types.ParamInteger:
		n, err := toInt(t.Value)
		if err != nil {
			return types.BoundParam{}, err
		}
		return integer(n), nil
	case types.ParamFloat:
		f, err := toFloat(t.Value)
		if err != nil {
			return types.BoundParam{}, err
		}
		return float(f), nil
	case types.ParamText:
		s, err := toText(t.Value)
		if err != nil {
			return types.BoundParam{}, err
		}
		return text(s), nil
	case types.ParamBlob:
		inner, err := bindValue(t.Value)
		if err != nil {
			return types.BoundParam{}, err
		}
		switch x := inner.Value.(type) {
		case nil:
			return blob([]byte{}), nil
		case []byte:
			return blob(x), nil
		case string:
			return blob([]byte(x)), nil
		}
		return types.BoundParam{}, unsupported(t.Value, "cannot bind as blob")
	}
	return types.BoundParam{}, unsupported(t.Value, fmt.Sprintf("unknown parameter type %q", t.Type))
}

func toInt(v any) (int64, error) {
	p, err := bindValue(v)
	if err != nil {
		return 0, err
	}
	switch x := p.Value.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, unsupported(v, "not an integer")
		}
		return n, nil
	}
	return 0, unsupported(v, "cannot bind as integer")
}

func toFloat(v any) (float64, error) {
	p, err := bindValue(v)
	if err != nil {
		return 0, err
	}
	switch x := p.Value.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, unsupported(v, "not a number")
		}
		return f, nil
	}
	return 0, unsupported(v, "cannot bind as float")
}

func toText(v any) (string, error) {
	p, err := bindValue(v)
	if err != nil {
		return "", err
	}
	return paramText(p), nil
}

// paramText renders a bound value as text. NULL yields "".
func paramText(p types.BoundParam) string {
	switch x := p.Value.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(p.Value)
}

func unsupported(v any, detail string) error {
	msg := fmt.Sprintf("unsupported parameter type %T for value %#v", v, v)
	if detail != "" {
		msg += ": " + detail
	}
	return &types.DatabaseError{Kind: types.KindUnsupportedParameterType, Message: msg}
}

func null() types.BoundParam { return types.BoundParam{Type: types.ParamNull} }
func integer(n int64) types.BoundParam { return types.BoundParam{Value: n, Type: types.ParamInteger} }
func float(f float64) types.BoundParam { return types.BoundParam{Value: f, Type: types.ParamFloat} }
func text(s string) types.BoundParam { return types.BoundParam{Value: s, Type: types.ParamText} }
func blob(b []byte) types.BoundParam { return types.BoundParam{Value: b, Type: types.ParamBlob} }
