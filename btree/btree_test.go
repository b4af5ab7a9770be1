package btree_test

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/btreeindex/btree"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter/memadapter"
)

func newEngine(t *testing.T, fanout int) (*btree.Engine, *nodestore.Store) {
	t.Helper()
	adapter := memadapter.New()
	store := nodestore.NewReadWrite(adapter)
	size := fanout
	tree, err := store.InitTree(context.Background(), order.String("ns"), &size)
	require.NoError(t, err)
	return btree.New(store, tree), store
}

func TestInsertGetRoundTrip(t *testing.T) {
	e, _ := newEngine(t, 4)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, order.Int(10), "ten"))
	require.NoError(t, e.Insert(ctx, order.Int(5), "five"))
	require.NoError(t, e.Insert(ctx, order.Int(20), "twenty"))

	it, err := e.Get(ctx, order.Int(5))
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Equal(t, "five", it.Value)

	it, err = e.Get(ctx, order.Int(99))
	require.NoError(t, err)
	require.Nil(t, it)
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	e, _ := newEngine(t, 4)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, order.Int(1), "a"))
	err := e.Insert(ctx, order.Int(1), "b")
	require.Error(t, err)
}

func TestSplitGrowsHeightAndStaysValid(t *testing.T) {
	e, store := newEngine(t, 4)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, e.Insert(ctx, order.Int(int64(i)), ""))
	}
	require.NoError(t, e.Validate(ctx))

	root, err := store.GetNode(ctx, e.Tree().Root)
	require.NoError(t, err)
	require.False(t, root.IsLeaf(), "root should have split into an internal node by now")
}

func TestDeleteMissingKeyFails(t *testing.T) {
	e, _ := newEngine(t, 4)
	err := e.Delete(context.Background(), order.Int(1))
	require.Error(t, err)
}

func TestDeleteIfExistsSuppressesMissingKey(t *testing.T) {
	e, _ := newEngine(t, 4)
	require.NoError(t, e.DeleteIfExists(context.Background(), order.Int(1)))
}

func TestInsertDeleteManyPreservesInvariants(t *testing.T) {
	e, _ := newEngine(t, 4)
	ctx := context.Background()

	const n = 60
	present := map[int]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, e.Insert(ctx, order.Int(int64(i)), ""))
		present[i] = true
		require.NoError(t, e.Validate(ctx))
	}

	rnd := rand.New(rand.NewSource(1))
	keys := make([]int, 0, n)
	for k := range present {
		keys = append(keys, k)
	}
	rnd.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	for _, k := range keys {
		require.NoError(t, e.Delete(ctx, order.Int(int64(k))))
		delete(present, k)
		require.NoError(t, e.Validate(ctx))

		it, err := e.Get(ctx, order.Int(int64(k)))
		require.NoError(t, err)
		require.Nil(t, it)
	}
}

func TestReplaceOrInsertOverwritesExisting(t *testing.T) {
	e, _ := newEngine(t, 4)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, order.Int(1), "old"))
	require.NoError(t, e.InsertIfNotExists(ctx, order.Int(1), "new"))

	it, err := e.Get(ctx, order.Int(1))
	require.NoError(t, err)
	require.Equal(t, "new", it.Value)
}

func TestReplaceRenamesKey(t *testing.T) {
	e, _ := newEngine(t, 4)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, order.Int(1), "v"))
	require.NoError(t, e.Replace(ctx, order.Int(1), order.Int(2), "v"))

	it, err := e.Get(ctx, order.Int(1))
	require.NoError(t, err)
	require.Nil(t, it)

	it, err = e.Get(ctx, order.Int(2))
	require.NoError(t, err)
	require.Equal(t, "v", it.Value)
}

func TestReplaceMissingOldKeyFails(t *testing.T) {
	e, _ := newEngine(t, 4)
	err := e.Replace(context.Background(), order.Int(1), order.Int(2), "v")
	require.Error(t, err)
}

func TestRangeFilterFastPathOnUnboundedQuery(t *testing.T) {
	e, _ := newEngine(t, 4)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, e.Insert(ctx, order.Int(int64(i)), ""))
	}

	contributions, err := e.RangeFilter(ctx, e.Tree().Root, nil, nil)
	require.NoError(t, err)
	for _, c := range contributions {
		if c.Kind == btree.ContributionSubtree {
			require.Nil(t, c.K1, "an unbounded child keeps unbounded bounds so it takes the fast path again")
			require.Nil(t, c.K2)
		}
	}
}

func TestRangeFilterOverLeafMatchesBruteForce(t *testing.T) {
	e, _ := newEngine(t, 30)
	ctx := context.Background()

	var want []int
	for i := 0; i < 12; i++ {
		k := i * 2
		require.NoError(t, e.Insert(ctx, order.Int(int64(k)), ""))
		want = append(want, k)
	}

	lo, hi := order.Int(5), order.Int(17)
	contributions, err := e.RangeFilter(ctx, e.Tree().Root, &lo, &hi)
	require.NoError(t, err)

	var expect []int
	for _, k := range want {
		if k >= 5 && k <= 17 {
			expect = append(expect, k)
		}
	}
	sort.Ints(expect)
	require.Len(t, contributions, len(expect))

	for i, c := range contributions {
		require.Equal(t, btree.ContributionItem, c.Kind, "fanout 30 with 12 items never splits, so the root is the only leaf")
		require.True(t, c.Item.Key.Equal(order.Int(int64(expect[i]))))
	}
}
