package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToWire renders a Value as a plain Go value suitable for storing in
// a storeadapter.Document's Fields map. Every non-trivial kind is
// tagged so FromWire can recover it without ambiguity (in particular,
// a string Value and a number Value must not collide on the wire).
func ToWire(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return map[string]any{"$num": v.n.String()}
	case KindString:
		return map[string]any{"$str": v.s}
	case KindBytes:
		return map[string]any{"$bytes": append([]byte(nil), v.bs...)}
	case KindArray:
		wire := make([]any, len(v.arr))
		for i, e := range v.arr {
			wire[i] = ToWire(e)
		}
		return map[string]any{"$arr": wire}
	case KindObject:
		wire := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			wire[k] = ToWire(e)
		}
		return map[string]any{"$obj": wire}
	default:
		panic(fmt.Sprintf("order: unknown kind %d", v.kind))
	}
}

// FromWire is the inverse of ToWire.
func FromWire(w any) (Value, error) {
	if w == nil {
		return Null(), nil
	}
	if b, ok := w.(bool); ok {
		return Bool(b), nil
	}
	m, ok := w.(map[string]any)
	if !ok {
		return Value{}, fmt.Errorf("order: cannot decode wire value %#v", w)
	}
	if raw, ok := m["$num"]; ok {
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("order: malformed $num wire value %#v", raw)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, fmt.Errorf("order: malformed $num wire value %q: %w", s, err)
		}
		return Number(d), nil
	}
	if raw, ok := m["$str"]; ok {
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("order: malformed $str wire value %#v", raw)
		}
		return String(s), nil
	}
	if raw, ok := m["$bytes"]; ok {
		bs, ok := raw.([]byte)
		if !ok {
			return Value{}, fmt.Errorf("order: malformed $bytes wire value %#v", raw)
		}
		return Bytes(bs), nil
	}
	if raw, ok := m["$arr"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return Value{}, fmt.Errorf("order: malformed $arr wire value %#v", raw)
		}
		vs := make([]Value, len(items))
		for i, it := range items {
			v, err := FromWire(it)
			if err != nil {
				return Value{}, err
			}
			vs[i] = v
		}
		return Array(vs...), nil
	}
	if raw, ok := m["$obj"]; ok {
		fields, ok := raw.(map[string]any)
		if !ok {
			return Value{}, fmt.Errorf("order: malformed $obj wire value %#v", raw)
		}
		out := make(map[string]Value, len(fields))
		for k, it := range fields {
			v, err := FromWire(it)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return Object(out), nil
	}
	return Value{}, fmt.Errorf("order: unrecognized wire value %#v", w)
}
