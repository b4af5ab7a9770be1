package pagination_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/btreeindex/btree"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/pagination"
	"github.com/zhukovaskychina/btreeindex/storeadapter/memadapter"
)

func newEngineWithKeys(t *testing.T, fanout int, keys []int) *btree.Engine {
	t.Helper()
	adapter := memadapter.New()
	store := nodestore.NewReadWrite(adapter)
	size := fanout
	tree, err := store.InitTree(context.Background(), order.String("ns"), &size)
	require.NoError(t, err)
	e := btree.New(store, tree)
	for _, k := range keys {
		require.NoError(t, e.Insert(context.Background(), order.Int(int64(k)), ""))
	}
	return e
}

func keysOf(items []nodestore.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		n, err := strconv.Atoi(it.Key.String())
		if err != nil {
			panic(err)
		}
		out[i] = n
	}
	return out
}

func TestPaginateAscSequentialPages(t *testing.T) {
	keys := make([]int, 20)
	for i := range keys {
		keys[i] = i + 1
	}
	e := newEngineWithKeys(t, 4, keys)
	ctx := context.Background()

	var got []int
	cursor := ""
	for {
		page, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 5, Order: pagination.Asc, Cursor: cursor})
		require.NoError(t, err)
		got = append(got, keysOf(page.Items)...)
		if page.IsDone {
			break
		}
		cursor = page.Cursor
	}
	require.Equal(t, keys, got)
}

func TestPaginateThreePagesOfTwenty(t *testing.T) {
	keys := make([]int, 20)
	for i := range keys {
		keys[i] = i + 1
	}
	e := newEngineWithKeys(t, 4, keys)
	ctx := context.Background()

	page1, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 5, Order: pagination.Asc})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, keysOf(page1.Items))
	require.False(t, page1.IsDone)

	page2, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 5, Order: pagination.Asc, Cursor: page1.Cursor})
	require.NoError(t, err)
	require.Equal(t, []int{6, 7, 8, 9, 10}, keysOf(page2.Items))

	page3, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 5, Order: pagination.Asc, Cursor: page2.Cursor})
	require.NoError(t, err)
	require.Equal(t, []int{11, 12, 13, 14, 15}, keysOf(page3.Items))

	page4, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 5, Order: pagination.Asc, Cursor: page3.Cursor})
	require.NoError(t, err)
	require.Equal(t, []int{16, 17, 18, 19, 20}, keysOf(page4.Items))
	require.True(t, page4.IsDone)
	require.Equal(t, pagination.NoMorePages, page4.Cursor)
}

func TestPaginateDescWithBounds(t *testing.T) {
	keys := make([]int, 20)
	for i := range keys {
		keys[i] = i + 1
	}
	e := newEngineWithKeys(t, 4, keys)
	ctx := context.Background()

	lo, hi := order.Int(5), order.Int(15)
	page1, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 7, Order: pagination.Desc, K1: &lo, K2: &hi})
	require.NoError(t, err)
	require.Equal(t, []int{15, 14, 13, 12, 11, 10, 9}, keysOf(page1.Items))
	require.False(t, page1.IsDone)

	page2, err := pagination.Paginate(ctx, e, pagination.Request{Limit: 7, Order: pagination.Desc, K1: &lo, K2: &hi, Cursor: page1.Cursor})
	require.NoError(t, err)
	require.Equal(t, []int{8, 7, 6, 5}, keysOf(page2.Items))
	require.True(t, page2.IsDone)
}

func TestPaginateRejectsNonPositiveLimit(t *testing.T) {
	e := newEngineWithKeys(t, 4, []int{1, 2, 3})
	_, err := pagination.Paginate(context.Background(), e, pagination.Request{Limit: 0, Order: pagination.Asc})
	require.Error(t, err)
}

func TestCursorRoundTripsThroughDifferentValueKinds(t *testing.T) {
	for _, v := range []order.Value{
		order.Int(42),
		order.String("hello"),
		order.Bytes([]byte{0, 1, 2, 255}),
		order.Bool(true),
		order.Array(order.Int(1), order.String("x")),
		order.Object(map[string]order.Value{"a": order.Int(1), "b": order.String("y")}),
		order.Null(),
	} {
		cursor := pagination.EncodeCursor(v)
		decoded, err := pagination.DecodeCursor(cursor)
		require.NoError(t, err)
		require.True(t, v.Equal(decoded), "value %s did not round-trip, got %s", v, decoded)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := pagination.DecodeCursor("not json at all {{{")
	require.Error(t, err)
}
