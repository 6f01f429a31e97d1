// pkg/rpc/bind.go
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Handler is the uniform internal shape every registered function is
// adapted to: authorization context first, then the positional parameter
// sequence from the request.
type Handler func(ctx context.Context, auth Claims, params []any) (any, error)

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	claimsType = reflect.TypeOf(Claims(nil))
	errType    = reflect.TypeOf((*error)(nil)).Elem()
)

// adaptFunc converts an arbitrary function into a Handler with an explicit
// positional-bind contract: the function may lead with a context.Context
// and/or a Claims parameter; each remaining declared parameter is bound
// from the request's parameter sequence by position. Extra request
// parameters are ignored; missing ones become the parameter type's zero
// value. The contract is deliberate (truncate/pad) rather than variadic.
func adaptFunc(fn any) (Handler, error) {
	if h, ok := fn.(Handler); ok {
		return h, nil
	}
	if h, ok := fn.(func(context.Context, Claims, []any) (any, error)); ok {
		return Handler(h), nil
	}

	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("rpc: handler must be a function, got %T", fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("rpc: variadic handlers are not supported; declare explicit parameters")
	}

	in := 0
	wantCtx := t.NumIn() > in && t.In(in) == ctxType
	if wantCtx {
		in++
	}
	wantClaims := t.NumIn() > in && t.In(in) == claimsType
	if wantClaims {
		in++
	}
	slots := make([]reflect.Type, 0, t.NumIn()-in)
	for ; in < t.NumIn(); in++ {
		slots = append(slots, t.In(in))
	}

	if err := checkReturns(t); err != nil {
		return nil, err
	}

	return func(ctx context.Context, auth Claims, params []any) (any, error) {
		args := make([]reflect.Value, 0, t.NumIn())
		if wantCtx {
			args = append(args, reflect.ValueOf(ctx))
		}
		if wantClaims {
			if auth == nil {
				auth = Claims{}
			}
			args = append(args, reflect.ValueOf(auth))
		}
		for i, st := range slots {
			var raw any
			if i < len(params) {
				raw = params[i]
			}
			av, err := bindValue(raw, st)
			if err != nil {
				return nil, fmt.Errorf("rpc: param %d: %w", i, err)
			}
			args = append(args, av)
		}
		return splitReturns(v.Call(args))
	}, nil
}

// checkReturns accepts (T, error), (T), (error) or no returns.
func checkReturns(t reflect.Type) error {
	switch t.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if t.Out(1) != errType {
			return fmt.Errorf("rpc: second return value must be error")
		}
		return nil
	default:
		return fmt.Errorf("rpc: handlers return at most (value, error)")
	}
}

func splitReturns(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errType {
			return nil, asErr(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asErr(out[1])
	}
}

func asErr(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// bindValue coerces one JSON-decoded parameter into the declared slot
// type. Absent or null parameters yield the zero value. Numeric values
// arrive as float64 and convert to the declared numeric kind; anything
// structured falls back to a JSON round-trip into the target type.
func bindValue(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	dst := reflect.New(t)
	if err := json.Unmarshal(b, dst.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("cannot bind %T to %s: %w", raw, t, err)
	}
	return dst.Elem(), nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
