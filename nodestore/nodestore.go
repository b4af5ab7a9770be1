// Package nodestore is the typed view over the host store's "tree"
// and "node" tables: Tree and Node CRUD with the invariants of the
// data model, read-only and read-write. The B-tree engine is the only
// caller; nodestore itself performs no tree algorithms.
package nodestore

import (
	"context"
	"fmt"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// DefaultMaxNodeSize is the fanout used when a namespace's tree is
// created implicitly and no prior fanout can be inherited.
const DefaultMaxNodeSize = 16

// Item is one (key, value) pair stored in a Node.
type Item struct {
	Key   order.Value
	Value string
}

// Node is a B-tree node: leaves have no Subtrees, internal nodes have
// len(Subtrees) == len(Items)+1.
type Node struct {
	ID       storeadapter.ID
	Items    []Item
	Subtrees []storeadapter.ID
}

func (n *Node) IsLeaf() bool { return len(n.Subtrees) == 0 }

// Tree is one namespace's root record.
type Tree struct {
	ID          storeadapter.ID
	Namespace   order.Value
	Root        storeadapter.ID
	MaxNodeSize int
}

// MinItems is MaxNodeSize/2, the minimum item count for any non-root
// node (spec.md §3, "Derived parameters").
func (t *Tree) MinItems() int { return t.MaxNodeSize / 2 }

// ValidateFanout enforces "even integer >= 4" (spec.md §4.2, §7
// INVALID_FANOUT).
func ValidateFanout(maxNodeSize int) error {
	if maxNodeSize < 4 || maxNodeSize%2 != 0 {
		return errs.New(errs.InvalidFanout, fmt.Sprintf("maxNodeSize %d must be even and >= 4", maxNodeSize))
	}
	return nil
}

// Store is a typed, mode-tagged view over one storeadapter.Adapter.
// ReadOnly stores are used for Get/Paginate/Validate; ReadWrite stores
// back every mutating engine operation. Both share this type so
// callers constructed against one store can't accidentally use it in
// the other mode.
type Store struct {
	adapter  storeadapter.Adapter
	readOnly bool
}

func NewReadOnly(adapter storeadapter.Adapter) *Store  { return &Store{adapter: adapter, readOnly: true} }
func NewReadWrite(adapter storeadapter.Adapter) *Store { return &Store{adapter: adapter} }

// Adapter exposes the underlying storeadapter.Adapter for callers that
// need store operations nodestore itself doesn't wrap, such as
// catalog's namespace pagination and scheduled subtree deletion.
func (s *Store) Adapter() storeadapter.Adapter { return s.adapter }

func (s *Store) requireWritable(op string) error {
	if s.readOnly {
		return fmt.Errorf("nodestore: %s called on a read-only store", op)
	}
	return nil
}

// GetTree looks up the unique Tree for namespace, if any.
func (s *Store) GetTree(ctx context.Context, namespace order.Value) (*Tree, bool, error) {
	doc, ok, err := s.adapter.UniqueByIndex(ctx, "tree", "by_namespace", order.ToWire(namespace))
	if err != nil || !ok {
		return nil, false, err
	}
	t, err := decodeTree(doc)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// MustGetTree fails with NOT_INITIALIZED when namespace has no Tree.
func (s *Store) MustGetTree(ctx context.Context, namespace order.Value) (*Tree, error) {
	t, ok, err := s.GetTree(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.NotInitialized, fmt.Sprintf("namespace %s has no tree", namespace))
	}
	return t, nil
}

// GetOrCreateTree returns namespace's Tree, creating it (with a fresh
// empty leaf root) when absent. When creating, maxNodeSize defaults to
// the fanout of the undefined-namespace tree if one exists, else
// DefaultMaxNodeSize.
func (s *Store) GetOrCreateTree(ctx context.Context, namespace order.Value, maxNodeSize *int) (*Tree, error) {
	if t, ok, err := s.GetTree(ctx, namespace); err != nil {
		return nil, err
	} else if ok {
		return t, nil
	}
	if err := s.requireWritable("GetOrCreateTree"); err != nil {
		return nil, err
	}

	size := DefaultMaxNodeSize
	if maxNodeSize != nil {
		size = *maxNodeSize
	} else if def, ok, err := s.GetTree(ctx, order.Null()); err != nil {
		return nil, err
	} else if ok {
		size = def.MaxNodeSize
	}
	if err := ValidateFanout(size); err != nil {
		return nil, err
	}

	return s.createTree(ctx, namespace, size)
}

// InitTree implements the explicit `init` operation: fails with
// ALREADY_INITIALIZED when namespace already has a Tree.
func (s *Store) InitTree(ctx context.Context, namespace order.Value, maxNodeSize *int) (*Tree, error) {
	if err := s.requireWritable("InitTree"); err != nil {
		return nil, err
	}
	if _, ok, err := s.GetTree(ctx, namespace); err != nil {
		return nil, err
	} else if ok {
		return nil, errs.New(errs.AlreadyInitialized, fmt.Sprintf("namespace %s already initialized", namespace))
	}
	size := DefaultMaxNodeSize
	if maxNodeSize != nil {
		size = *maxNodeSize
	}
	if err := ValidateFanout(size); err != nil {
		return nil, err
	}
	return s.createTree(ctx, namespace, size)
}

func (s *Store) createTree(ctx context.Context, namespace order.Value, maxNodeSize int) (*Tree, error) {
	rootID, err := s.InsertNode(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	treeID, err := s.adapter.Insert(ctx, "tree", map[string]any{
		"namespace":   order.ToWire(namespace),
		"root":        string(rootID),
		"maxNodeSize": int64(maxNodeSize),
	})
	if err != nil {
		return nil, err
	}
	return &Tree{ID: treeID, Namespace: namespace, Root: rootID, MaxNodeSize: maxNodeSize}, nil
}

// DeleteTreeRecord removes the Tree row only; it does not touch the
// node graph (see catalog.ScheduleSubtreeDeletion for that).
func (s *Store) DeleteTreeRecord(ctx context.Context, tree *Tree) error {
	if err := s.requireWritable("DeleteTreeRecord"); err != nil {
		return err
	}
	return s.adapter.Delete(ctx, tree.ID)
}

// SetRoot patches tree.root, the only way a Tree's height-defining
// pointer changes.
func (s *Store) SetRoot(ctx context.Context, tree *Tree, root storeadapter.ID) error {
	if err := s.requireWritable("SetRoot"); err != nil {
		return err
	}
	if err := s.adapter.Patch(ctx, tree.ID, map[string]any{"root": string(root)}); err != nil {
		return err
	}
	tree.Root = root
	return nil
}

// GetNode loads one Node by id.
func (s *Store) GetNode(ctx context.Context, id storeadapter.ID) (*Node, error) {
	doc, ok, err := s.adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("nodestore: node %s not found", id)
	}
	return decodeNode(doc)
}

// InsertNode allocates a new Node.
func (s *Store) InsertNode(ctx context.Context, items []Item, subtrees []storeadapter.ID) (storeadapter.ID, error) {
	if err := s.requireWritable("InsertNode"); err != nil {
		return "", err
	}
	return s.adapter.Insert(ctx, "node", encodeNodeFields(items, subtrees))
}

// PatchNode rewrites a Node's items and subtrees in place.
func (s *Store) PatchNode(ctx context.Context, id storeadapter.ID, items []Item, subtrees []storeadapter.ID) error {
	if err := s.requireWritable("PatchNode"); err != nil {
		return err
	}
	return s.adapter.Patch(ctx, id, encodeNodeFields(items, subtrees))
}

// DeleteNode removes one Node row. Callers are responsible for first
// detaching it from its parent.
func (s *Store) DeleteNode(ctx context.Context, id storeadapter.ID) error {
	if err := s.requireWritable("DeleteNode"); err != nil {
		return err
	}
	return s.adapter.Delete(ctx, id)
}

func encodeNodeFields(items []Item, subtrees []storeadapter.ID) map[string]any {
	wireItems := make([]any, len(items))
	for i, it := range items {
		wireItems[i] = map[string]any{"k": order.ToWire(it.Key), "v": it.Value}
	}
	wireSubtrees := make([]any, len(subtrees))
	for i, id := range subtrees {
		wireSubtrees[i] = string(id)
	}
	return map[string]any{"items": wireItems, "subtrees": wireSubtrees}
}

func decodeNode(doc storeadapter.Document) (*Node, error) {
	rawItems, _ := doc.Fields["items"].([]any)
	items := make([]Item, len(rawItems))
	for i, raw := range rawItems {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("nodestore: malformed item %#v in node %s", raw, doc.ID)
		}
		key, err := order.FromWire(m["k"])
		if err != nil {
			return nil, err
		}
		value, _ := m["v"].(string)
		items[i] = Item{Key: key, Value: value}
	}

	rawSubtrees, _ := doc.Fields["subtrees"].([]any)
	subtrees := make([]storeadapter.ID, len(rawSubtrees))
	for i, raw := range rawSubtrees {
		id, _ := raw.(string)
		subtrees[i] = storeadapter.ID(id)
	}

	return &Node{ID: doc.ID, Items: items, Subtrees: subtrees}, nil
}

// DecodeTree exposes the tree-record decoding used internally by
// GetTree/MustGetTree, for callers that load "tree" documents another
// way (catalog's namespace pagination walks them via Adapter().Take
// rather than the unique index).
func DecodeTree(doc storeadapter.Document) (*Tree, error) { return decodeTree(doc) }

func decodeTree(doc storeadapter.Document) (*Tree, error) {
	namespace, err := order.FromWire(doc.Fields["namespace"])
	if err != nil {
		return nil, err
	}
	root, _ := doc.Fields["root"].(string)
	size, err := asInt(doc.Fields["maxNodeSize"])
	if err != nil {
		return nil, err
	}
	return &Tree{ID: doc.ID, Namespace: namespace, Root: storeadapter.ID(root), MaxNodeSize: size}, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("nodestore: expected numeric maxNodeSize, got %#v", v)
	}
}
