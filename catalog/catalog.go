// Package catalog implements the cross-namespace operations: listing
// every namespace's Tree record, and clearing one or all of them
// (spec §4.5, §4.6). Bulk deletion of a cleared tree's node graph runs
// as scheduled follow-up work rather than inline, so a clear of a
// large namespace still fits in one bounded transaction.
package catalog

import (
	"context"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// EndOfNamespaces is the cursor sentinel for an exhausted
// paginateNamespaces walk (spec §4.5, §6.3).
const EndOfNamespaces = "endcursor"

// DeleteSubtreeWork names the scheduled work item a clear() enqueues
// for its tree's former root; RegisterWorkHandler wires Handler under
// this name on the store adapter's scheduler.
const DeleteSubtreeWork = "catalog.deleteSubtree"

// NamespaceEntry is one row of a paginateNamespaces page: the
// namespace tag and the fanout its Tree was created with.
type NamespaceEntry struct {
	Namespace   order.Value
	MaxNodeSize int
}

// NamespacePage is one page of PaginateNamespaces.
type NamespacePage struct {
	Entries []NamespaceEntry
	Cursor  string
	IsDone  bool
}

// namespaceIndex is the Take index name used to walk tree records by
// their internal id; the reference adapter orders by id regardless of
// the name given, but a real host store needs one to target.
const namespaceIndex = "id"

// PaginateNamespaces iterates Tree records by internal id (spec
// §4.5). The cursor is the id of the last returned Tree, or
// EndOfNamespaces once exhausted.
func PaginateNamespaces(ctx context.Context, adapter storeadapter.Adapter, limit int, cursor string) (NamespacePage, error) {
	if limit <= 0 {
		return NamespacePage{}, errs.New(errs.InvalidCursor, "paginateNamespaces limit must be positive")
	}
	if cursor == EndOfNamespaces {
		return NamespacePage{Entries: nil, Cursor: EndOfNamespaces, IsDone: true}, nil
	}

	docs, err := adapter.Take(ctx, "tree", namespaceIndex, limit, storeadapter.ID(cursor))
	if err != nil {
		return NamespacePage{}, err
	}

	entries := make([]NamespaceEntry, 0, len(docs))
	var lastID storeadapter.ID
	for _, doc := range docs {
		t, err := nodestore.DecodeTree(doc)
		if err != nil {
			return NamespacePage{}, err
		}
		entries = append(entries, NamespaceEntry{Namespace: t.Namespace, MaxNodeSize: t.MaxNodeSize})
		lastID = doc.ID
	}

	if len(docs) < limit {
		return NamespacePage{Entries: entries, Cursor: EndOfNamespaces, IsDone: true}, nil
	}
	return NamespacePage{Entries: entries, Cursor: string(lastID), IsDone: false}, nil
}

// Clear deletes namespace's Tree record, schedules asynchronous
// recursive deletion of its former node graph, and recreates an empty
// Tree at maxNodeSize (or the preserved fanout if nil) (spec §4.6).
func Clear(ctx context.Context, store *nodestore.Store, namespace order.Value, maxNodeSize *int) error {
	existing, ok, err := store.GetTree(ctx, namespace)
	if err != nil {
		return err
	}

	size := maxNodeSize
	if size == nil && ok {
		preserved := existing.MaxNodeSize
		size = &preserved
	}

	if ok {
		oldRoot := existing.Root
		if err := store.DeleteTreeRecord(ctx, existing); err != nil {
			return err
		}
		if err := ScheduleSubtreeDeletion(ctx, store.Adapter(), oldRoot); err != nil {
			return err
		}
	}

	_, err = store.InitTree(ctx, namespace, size)
	return err
}

// ClearAll iterates every namespace via PaginateNamespaces, clearing
// each, and additionally clears the undefined namespace even when it
// has no Tree of its own — that record is where the default fanout
// lives when the store is otherwise empty (spec §4.5).
func ClearAll(ctx context.Context, store *nodestore.Store, adapter storeadapter.Adapter) error {
	cursor := ""
	namespaces := make([]order.Value, 0, 16)
	for {
		page, err := PaginateNamespaces(ctx, adapter, 64, cursor)
		if err != nil {
			return err
		}
		for _, entry := range page.Entries {
			namespaces = append(namespaces, entry.Namespace)
		}
		if page.IsDone {
			break
		}
		cursor = page.Cursor
	}

	sawUndefined := false
	for _, ns := range namespaces {
		if ns.Equal(order.Null()) {
			sawUndefined = true
		}
		if err := Clear(ctx, store, ns, nil); err != nil {
			return err
		}
	}
	if !sawUndefined {
		if err := Clear(ctx, store, order.Null(), nil); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleSubtreeDeletion enqueues the first unit of bulk deletion
// work for rootID. The work handler registered under
// DeleteSubtreeWork deletes exactly one node per unit and re-schedules
// deletion of each of its children, bounding the work any single
// transaction does (spec §4.6).
func ScheduleSubtreeDeletion(ctx context.Context, adapter storeadapter.Adapter, rootID storeadapter.ID) error {
	return adapter.Scheduler().RunAfter(ctx, 0, DeleteSubtreeWork, map[string]any{"nodeID": string(rootID)})
}

// DeletionLogger receives one call per node a DeleteSubtreeHandler run
// actually deletes. *enginelog.Logger implements this interface.
type DeletionLogger interface {
	ScheduledDeletion(nodeID string, childCount int)
}

type noopDeletionLogger struct{}

func (noopDeletionLogger) ScheduledDeletion(string, int) {}

// DeleteSubtreeHandler is the work handler for DeleteSubtreeWork.
// Callers register it with their storeadapter implementation's
// scheduler wiring (e.g. memadapter.Store.RegisterWorkHandler) so that
// draining the work queue actually walks and deletes the subtree. log
// may be nil, in which case deletions go unlogged.
func DeleteSubtreeHandler(store *nodestore.Store, log DeletionLogger) func(ctx context.Context, args map[string]any) error {
	if log == nil {
		log = noopDeletionLogger{}
	}
	return func(ctx context.Context, args map[string]any) error {
		idStr, _ := args["nodeID"].(string)
		nodeID := storeadapter.ID(idStr)

		node, err := store.GetNode(ctx, nodeID)
		if err != nil {
			// Already deleted by a previous, possibly retried run of
			// this same work item; treat as done.
			return nil
		}
		for _, child := range node.Subtrees {
			if err := ScheduleSubtreeDeletion(ctx, store.Adapter(), child); err != nil {
				return err
			}
		}
		if err := store.DeleteNode(ctx, nodeID); err != nil {
			return err
		}
		log.ScheduledDeletion(string(nodeID), len(node.Subtrees))
		return nil
	}
}
