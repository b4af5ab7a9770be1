package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/btreeindex/engine"
	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/pagination"
	"github.com/zhukovaskychina/btreeindex/storeadapter/memadapter"
)

func newEngine(t *testing.T) (*engine.Engine, *memadapter.Store) {
	t.Helper()
	adapter := memadapter.New()
	eng := engine.New(adapter)
	adapter.RegisterWorkHandler("catalog.deleteSubtree", eng.DeleteSubtreeHandler())
	return eng, adapter
}

func TestInsertGetRoundTripAutoCreatesNamespace(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	require.NoError(t, eng.Insert(ctx, ns, order.Int(1), "alice"))

	item, err := eng.Get(ctx, ns, order.Int(1))
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "alice", item.Value)
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	require.NoError(t, eng.Insert(ctx, ns, order.Int(1), "alice"))
	err := eng.Insert(ctx, ns, order.Int(1), "bob")
	require.True(t, errs.Is(err, errs.DuplicateKey))
}

func TestDeleteMissingKeyFailsButDeleteIfExistsDoesNot(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	err := eng.Delete(ctx, ns, order.Int(1))
	require.True(t, errs.Is(err, errs.MissingKey))

	require.NoError(t, eng.DeleteIfExists(ctx, ns, order.Int(1)))
}

func TestReplaceSameNamespaceMovesKeyAndValue(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	require.NoError(t, eng.Insert(ctx, ns, order.Int(1), "alice"))
	require.NoError(t, eng.Replace(ctx, ns, order.Int(1), order.Int(2), "alice-v2", nil))

	item, err := eng.Get(ctx, ns, order.Int(1))
	require.NoError(t, err)
	require.Nil(t, item)

	item, err = eng.Get(ctx, ns, order.Int(2))
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "alice-v2", item.Value)
}

func TestReplaceAcrossNamespacesMovesTheItem(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	src := order.String("staging")
	dst := order.String("live")

	require.NoError(t, eng.Insert(ctx, src, order.Int(1), "alice"))

	require.NoError(t, eng.Replace(ctx, src, order.Int(1), order.Int(1), "alice", &dst))

	item, err := eng.Get(ctx, src, order.Int(1))
	require.NoError(t, err)
	require.Nil(t, item)

	item, err = eng.Get(ctx, dst, order.Int(1))
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "alice", item.Value)
}

func TestReplaceOrInsertSuppressesMissingCurrentKey(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	require.NoError(t, eng.ReplaceOrInsert(ctx, ns, order.Int(99), order.Int(1), "new", nil))

	item, err := eng.Get(ctx, ns, order.Int(1))
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "new", item.Value)
}

func TestInitFailsWhenNamespaceAlreadyHasATree(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	require.NoError(t, eng.Init(ctx, ns, nil))
	err := eng.Init(ctx, ns, nil)
	require.True(t, errs.Is(err, errs.AlreadyInitialized))
}

func TestPaginateWalksInsertedKeysAscending(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	for i := 1; i <= 10; i++ {
		require.NoError(t, eng.Insert(ctx, ns, order.Int(int64(i)), ""))
	}

	page, err := eng.Paginate(ctx, ns, pagination.Request{Limit: 100, Order: pagination.Asc})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	require.True(t, page.IsDone)
}

func TestPaginateRejectsNonPositiveLimit(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")
	require.NoError(t, eng.Insert(ctx, ns, order.Int(1), ""))

	_, err := eng.Paginate(ctx, ns, pagination.Request{Limit: 0, Order: pagination.Asc})
	require.True(t, errs.Is(err, errs.InvalidCursor))
}

func TestClearRecreatesEmptyTreeAndDrainsScheduledDeletion(t *testing.T) {
	eng, adapter := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")

	for i := 1; i <= 20; i++ {
		require.NoError(t, eng.Insert(ctx, ns, order.Int(int64(i)), ""))
	}

	require.NoError(t, eng.Clear(ctx, ns, nil))

	page, err := eng.Paginate(ctx, ns, pagination.Request{Limit: 10, Order: pagination.Asc})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.True(t, page.IsDone)

	processed, err := adapter.RunPending(ctx)
	require.NoError(t, err)
	require.Greater(t, processed, 0)
}

func TestClearAllClearsEveryNamespaceIncludingUndefined(t *testing.T) {
	eng, adapter := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Insert(ctx, order.String("a"), order.Int(1), ""))
	require.NoError(t, eng.Insert(ctx, order.String("b"), order.Int(1), ""))

	require.NoError(t, eng.ClearAll(ctx))
	_, err := adapter.RunPending(ctx)
	require.NoError(t, err)

	for _, ns := range []order.Value{order.String("a"), order.String("b"), order.Null()} {
		page, err := eng.Paginate(ctx, ns, pagination.Request{Limit: 10, Order: pagination.Asc})
		require.NoError(t, err)
		require.Empty(t, page.Items)
	}
}

func TestValidatePassesAfterInsertsAndDeletes(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()
	ns := order.String("users")
	size := 4
	require.NoError(t, eng.Init(ctx, ns, &size))

	for i := 1; i <= 30; i++ {
		require.NoError(t, eng.Insert(ctx, ns, order.Int(int64(i)), ""))
	}
	for i := 1; i <= 15; i++ {
		require.NoError(t, eng.Delete(ctx, ns, order.Int(int64(i))))
	}

	require.NoError(t, eng.Validate(ctx, ns))
}

func TestPaginateNamespacesListsEveryInitializedNamespace(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Init(ctx, order.String("a"), nil))
	require.NoError(t, eng.Init(ctx, order.String("b"), nil))

	var seen []string
	cursor := ""
	for {
		page, err := eng.PaginateNamespaces(ctx, 1, cursor)
		require.NoError(t, err)
		for _, entry := range page.Entries {
			seen = append(seen, entry.Namespace.String())
		}
		if page.IsDone {
			break
		}
		cursor = page.Cursor
	}
	require.ElementsMatch(t, []string{`"a"`, `"b"`}, seen)
}
