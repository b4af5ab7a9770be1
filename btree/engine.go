// Package btree is the core B-tree engine: get, insert, delete, range
// filter, rotate, merge, split, and root promotion/collapse, against
// a nodestore.Store. Get, Insert and Delete are iterative (Insert and
// Delete keep an explicit ancestor stack, design note in spec §9)
// rather than recursive, so their depth is bounded by the stack, not
// the call frame. Validate is the exception: it recurses once per tree
// level.
package btree

import (
	"context"
	"fmt"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// Logger receives one call per structural event a mutating operation
// performs, for callers that want to observe the engine below the
// level of the public operation that triggered it. *enginelog.Logger
// implements this interface; tests and one-shot tools can leave it
// unset and get the no-op logger.
type Logger interface {
	Split(nodeID, rightID string, at int)
	Merge(leftID, rightID string)
	Rotate(direction string, parentID, childID, siblingID string)
	RootPromoted(newRootID string)
	RootCollapsed(newRootID string)
}

type noopLogger struct{}

func (noopLogger) Split(string, string, int)          {}
func (noopLogger) Merge(string, string)               {}
func (noopLogger) Rotate(string, string, string, string) {}
func (noopLogger) RootPromoted(string)                {}
func (noopLogger) RootCollapsed(string)                {}

// Engine runs the B-tree algorithms of one namespace's Tree against a
// read-write nodestore.Store. Engine holds no state across calls; the
// Tree it was built with is mutated in place (Tree.Root changes when
// height grows or shrinks).
type Engine struct {
	store *nodestore.Store
	tree  *nodestore.Tree
	log   Logger
}

func New(store *nodestore.Store, tree *nodestore.Tree) *Engine {
	return &Engine{store: store, tree: tree, log: noopLogger{}}
}

// WithLogger attaches log to e, returning e for chaining at the
// construction site (e.g. btree.New(store, tree).WithLogger(l)).
func (e *Engine) WithLogger(log Logger) *Engine {
	e.log = log
	return e
}

func (e *Engine) Tree() *nodestore.Tree { return e.tree }

// frame is one ancestor on a descent path: the node we passed through
// and the index of the child subtree we descended into.
type frame struct {
	id    storeadapter.ID
	index int
}

// locate scans items ascending and returns the index of the first
// item whose key is >= target, and whether that item's key equals
// target exactly (spec §4.3.1's "first index whose key is greater, or
// equal key found").
func locate(items []nodestore.Item, target order.Value) (index int, found bool) {
	for i, it := range items {
		c := target.Compare(it.Key)
		if c == 0 {
			return i, true
		}
		if c < 0 {
			return i, false
		}
	}
	return len(items), false
}

// Get descends from the root, returning the item for key, or nil if
// absent.
func (e *Engine) Get(ctx context.Context, key order.Value) (*nodestore.Item, error) {
	nodeID := e.tree.Root
	for {
		node, err := e.store.GetNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		i, found := locate(node.Items, key)
		if found {
			it := node.Items[i]
			return &it, nil
		}
		if node.IsLeaf() {
			return nil, nil
		}
		nodeID = node.Subtrees[i]
	}
}

func spliceItem(items []nodestore.Item, at int, it nodestore.Item) []nodestore.Item {
	out := make([]nodestore.Item, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, it)
	out = append(out, items[at:]...)
	return out
}

func spliceSubtree(subtrees []storeadapter.ID, at int, id storeadapter.ID) []storeadapter.ID {
	out := make([]storeadapter.ID, 0, len(subtrees)+1)
	out = append(out, subtrees[:at]...)
	out = append(out, id)
	out = append(out, subtrees[at:]...)
	return out
}

func removeItem(items []nodestore.Item, at int) []nodestore.Item {
	out := make([]nodestore.Item, 0, len(items)-1)
	out = append(out, items[:at]...)
	out = append(out, items[at+1:]...)
	return out
}

func removeSubtree(subtrees []storeadapter.ID, at int) []storeadapter.ID {
	out := make([]storeadapter.ID, 0, len(subtrees)-1)
	out = append(out, subtrees[:at]...)
	out = append(out, subtrees[at+1:]...)
	return out
}

func duplicateKeyError(key order.Value) error {
	return errs.New(errs.DuplicateKey, fmt.Sprintf("key %s already present", key))
}

func missingKeyError(key order.Value) error {
	return errs.New(errs.MissingKey, fmt.Sprintf("key %s not present", key))
}
