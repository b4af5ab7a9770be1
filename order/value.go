// Package order implements the total order over structured document
// keys that the B-tree engine is built on: null, bool, number, string,
// bytes, array, and object, ranked in that order across types and
// compared naturally within a type.
package order

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindBytes
	KindArray
	KindObject
)

// Value is a structured, totally-ordered document key or value. The
// zero Value is KindNull.
type Value struct {
	kind Kind
	b    bool
	n    decimal.Decimal
	s    string
	bs   []byte
	arr  []Value
	obj  map[string]Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value       { return Value{kind: KindBytes, bs: append([]byte(nil), b...)} }
func Array(vs ...Value) Value    { return Value{kind: KindArray, arr: vs} }
func Object(m map[string]Value) Value {
	return Value{kind: KindObject, obj: m}
}

func Int(i int64) Value     { return Value{kind: KindNumber, n: decimal.NewFromInt(i)} }
func Float(f float64) Value { return Value{kind: KindNumber, n: decimal.NewFromFloat(f)} }
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, n: d}
}

func (v Value) Kind() Kind { return v.kind }

// Compare returns -1, 0, or 1 using the total order: cross-type
// comparisons are decided by Kind rank; same-type comparisons use each
// type's natural order. Equal keys (Compare == 0) are the same key for
// every purpose in the engine, regardless of how they were constructed
// (e.g. Int(2) and Float(2.0)).
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		return boolCompare(v.b, o.b)
	case KindNumber:
		return v.n.Cmp(o.n)
	case KindString:
		return compareOrdered(v.s, o.s)
	case KindBytes:
		return bytes.Compare(v.bs, o.bs)
	case KindArray:
		return compareArrays(v.arr, o.arr)
	case KindObject:
		return compareObjects(v.obj, o.obj)
	default:
		panic(fmt.Sprintf("order: unknown kind %d", v.kind))
	}
}

func (v Value) Equal(o Value) bool      { return v.Compare(o) == 0 }
func (v Value) LessThan(o Value) bool   { return v.Compare(o) < 0 }
func (v Value) LessOrEqual(o Value) bool { return v.Compare(o) <= 0 }

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareOrdered(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareInts(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareArrays(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return compareInts(len(a), len(b))
}

// compareObjects orders keyed records elementwise over their sorted
// key sets: it walks both sorted key lists in step, and at each
// position compares the keys (string order) and, if they are equal,
// the values at that key; the first difference decides. An object
// whose key list is a prefix of the other's orders first.
func compareObjects(a, b map[string]Value) int {
	ak, bk := sortedKeys(a), sortedKeys(b)
	for i := 0; i < len(ak) && i < len(bk); i++ {
		if c := compareOrdered(ak[i], bk[i]); c != 0 {
			return c
		}
		if c := a[ak[i]].Compare(b[bk[i]]); c != 0 {
			return c
		}
	}
	return compareInts(len(ak), len(bk))
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort: objects used as keys are small in practice, and
	// this avoids pulling in sort for a handful of elements.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// String renders a Value for debugging and log messages only; it is
// not the cursor encoding (see package pagination).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return v.n.String()
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("bytes(%x)", v.bs)
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindObject:
		return fmt.Sprintf("%v", v.obj)
	default:
		return "<invalid>"
	}
}
