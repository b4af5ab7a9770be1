package btree

import (
	"context"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/order"
)

// Replace is delete-then-insert within one namespace (spec §4.3.4).
// The engine does not special-case oldKey == newKey.
func (e *Engine) Replace(ctx context.Context, oldKey, newKey order.Value, value string) error {
	if err := e.Delete(ctx, oldKey); err != nil {
		return err
	}
	return e.Insert(ctx, newKey, value)
}

// ReplaceOrInsert is Replace with a missing oldKey suppressed, so it
// always ends with newKey present.
func (e *Engine) ReplaceOrInsert(ctx context.Context, oldKey, newKey order.Value, value string) error {
	if err := e.Delete(ctx, oldKey); err != nil && !errs.Is(err, errs.MissingKey) {
		return err
	}
	return e.Insert(ctx, newKey, value)
}

// InsertIfNotExists is ReplaceOrInsert(key, key, value): a delete of
// key (a no-op when key is absent) followed by its insert, so an
// existing key is overwritten rather than rejected as a duplicate.
func (e *Engine) InsertIfNotExists(ctx context.Context, key order.Value, value string) error {
	return e.ReplaceOrInsert(ctx, key, key, value)
}
