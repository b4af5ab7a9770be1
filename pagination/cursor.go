package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/order"
)

// NoMorePages is the cursor sentinel meaning the walk is exhausted
// (spec §6.3). Namespace pagination's own exhaustion sentinel,
// "endcursor", belongs to package catalog.
const NoMorePages = ""

// EncodeCursor losslessly renders key as an opaque textual cursor: a
// key recovered with DecodeCursor must compare equal to key under
// order.Value.Compare. The encoding is order.ToWire's tagged form run
// through JSON, so every Value kind round-trips exactly.
func EncodeCursor(key order.Value) string {
	b, err := json.Marshal(order.ToWire(key))
	if err != nil {
		// order.ToWire only ever produces JSON-safe Go values
		// (nil, bool, string, map[string]any, []any, []byte);
		// marshalling one of those cannot fail.
		panic(fmt.Sprintf("pagination: cursor encoding of a well-formed Value failed: %v", err))
	}
	return string(b)
}

// DecodeCursor is the inverse of EncodeCursor, failing with
// InvalidCursor if cursor cannot be decoded to a key.
func DecodeCursor(cursor string) (order.Value, error) {
	var wire any
	if err := json.Unmarshal([]byte(cursor), &wire); err != nil {
		return order.Value{}, errs.New(errs.InvalidCursor, fmt.Sprintf("cursor %q is not valid JSON: %v", cursor, err))
	}
	key, err := order.FromWire(normalizeJSON(wire))
	if err != nil {
		return order.Value{}, errs.New(errs.InvalidCursor, fmt.Sprintf("cursor %q does not decode to a key: %v", cursor, err))
	}
	return key, nil
}

// normalizeJSON repairs the one way encoding/json diverges from
// order.ToWire's output that FromWire cannot accept: $bytes comes back
// as a base64 string rather than []byte. Numbers need no repair, since
// order.ToWire emits $num as a string, not a JSON number.
func normalizeJSON(w any) any {
	m, ok := w.(map[string]any)
	if !ok {
		if arr, ok := w.([]any); ok {
			out := make([]any, len(arr))
			for i, e := range arr {
				out[i] = normalizeJSON(e)
			}
			return out
		}
		return w
	}
	if raw, ok := m["$bytes"]; ok {
		if s, ok := raw.(string); ok {
			if bs, err := base64.StdEncoding.DecodeString(s); err == nil {
				return map[string]any{"$bytes": bs}
			}
		}
		return m
	}
	if raw, ok := m["$arr"]; ok {
		if arr, ok := raw.([]any); ok {
			norm := make([]any, len(arr))
			for i, e := range arr {
				norm[i] = normalizeJSON(e)
			}
			return map[string]any{"$arr": norm}
		}
		return m
	}
	if raw, ok := m["$obj"]; ok {
		if obj, ok := raw.(map[string]any); ok {
			norm := make(map[string]any, len(obj))
			for k, e := range obj {
				norm[k] = normalizeJSON(e)
			}
			return map[string]any{"$obj": norm}
		}
		return m
	}
	return m
}
