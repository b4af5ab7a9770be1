package memadapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/btreeindex/storeadapter"
	"github.com/zhukovaskychina/btreeindex/storeadapter/memadapter"
)

func TestInsertGetDeleteRoundTrip(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()

	id, err := s.Insert(ctx, "node", map[string]any{"items": []any{}, "subtrees": []any{}})
	require.NoError(t, err)

	doc, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "node", doc.Table)

	require.NoError(t, s.Delete(ctx, id))
	_, ok, err = s.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPatchMergesFieldsInPlace(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()

	id, err := s.Insert(ctx, "node", map[string]any{"items": []any{}, "subtrees": []any{}})
	require.NoError(t, err)

	require.NoError(t, s.Patch(ctx, id, map[string]any{"items": []any{"x"}}))

	doc, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []any{"x"}, doc.Fields["items"])
	require.Equal(t, []any{}, doc.Fields["subtrees"])
}

func TestUniqueIndexRejectsDuplicateNamespace(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()

	_, err := s.Insert(ctx, "tree", map[string]any{"namespace": "ns", "root": "r1", "maxNodeSize": int64(4)})
	require.NoError(t, err)

	_, err = s.Insert(ctx, "tree", map[string]any{"namespace": "ns", "root": "r2", "maxNodeSize": int64(4)})
	require.Error(t, err)
}

func TestUniqueByIndexFindsExactMatch(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()

	id, err := s.Insert(ctx, "tree", map[string]any{"namespace": "ns", "root": "r1", "maxNodeSize": int64(4)})
	require.NoError(t, err)

	doc, ok, err := s.UniqueByIndex(ctx, "tree", "by_namespace", "ns")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, doc.ID)

	_, ok, err = s.UniqueByIndex(ctx, "tree", "by_namespace", "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTakePaginatesInIDOrderPastCursor(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()

	var ids []storeadapter.ID
	for i := 0; i < 5; i++ {
		id, err := s.Insert(ctx, "node", map[string]any{"items": []any{}, "subtrees": []any{}})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	var seen []storeadapter.ID
	cursor := storeadapter.ID("")
	for {
		docs, err := s.Take(ctx, "node", "id", 2, cursor)
		require.NoError(t, err)
		if len(docs) == 0 {
			break
		}
		for _, d := range docs {
			seen = append(seen, d.ID)
		}
		cursor = docs[len(docs)-1].ID
		if len(docs) < 2 {
			break
		}
	}
	require.Len(t, seen, 5)
	require.ElementsMatch(t, ids, seen)
}

func TestRunPendingDrainsWorkQueuedByItsOwnHandlers(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()

	var processed []string
	s.RegisterWorkHandler("fan", func(ctx context.Context, args map[string]any) error {
		name, _ := args["name"].(string)
		processed = append(processed, name)
		if name == "root" {
			require.NoError(t, s.Scheduler().RunAfter(ctx, 0, "fan", map[string]any{"name": "child"}))
		}
		return nil
	})

	require.NoError(t, s.Scheduler().RunAfter(ctx, 0, "fan", map[string]any{"name": "root"}))
	n, err := s.RunPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"root", "child"}, processed)
}

func TestRunPendingFailsOnUnregisteredWork(t *testing.T) {
	s := memadapter.New()
	ctx := context.Background()
	require.NoError(t, s.Scheduler().RunAfter(ctx, 0, "nobody-home", nil))
	_, err := s.RunPending(ctx)
	require.Error(t, err)
}
