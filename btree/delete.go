package btree

import (
	"context"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// Delete removes key's item, failing with MissingKey if absent (spec
// §4.3.3). It descends once, in two modes in sequence: first hunting
// for key itself, then — if key is found at an internal node — for
// that node's predecessor (the max key of the left child), which is
// spliced into the internal node in place of key (the "tombstone
// step", deferred here to a single rewrite per design note §9 rather
// than written mid-descent). Every ancestor visited on the way down
// is rebalanced on the way back up if its child became deficient.
func (e *Engine) Delete(ctx context.Context, key order.Value) error {
	var stack []frame
	nodeID := e.tree.Root

	seekingPredecessor := false
	var tombstoneNode storeadapter.ID
	var tombstoneIndex int

	for {
		node, err := e.store.GetNode(ctx, nodeID)
		if err != nil {
			return err
		}

		if !seekingPredecessor {
			i, found := locate(node.Items, key)
			if found {
				if node.IsLeaf() {
					items := removeItem(node.Items, i)
					if err := e.store.PatchNode(ctx, nodeID, items, nil); err != nil {
						return err
					}
					return e.fixupDeficiency(ctx, stack)
				}
				seekingPredecessor = true
				tombstoneNode = nodeID
				tombstoneIndex = i
				stack = append(stack, frame{id: nodeID, index: i})
				nodeID = node.Subtrees[i]
				continue
			}
			if node.IsLeaf() {
				return missingKeyError(key)
			}
			stack = append(stack, frame{id: nodeID, index: i})
			nodeID = node.Subtrees[i]
			continue
		}

		// Predecessor search: always the rightmost item/child.
		if node.IsLeaf() {
			last := len(node.Items) - 1
			predecessor := node.Items[last]
			items := removeItem(node.Items, last)
			if err := e.store.PatchNode(ctx, nodeID, items, nil); err != nil {
				return err
			}
			tnode, err := e.store.GetNode(ctx, tombstoneNode)
			if err != nil {
				return err
			}
			tnode.Items[tombstoneIndex] = predecessor
			if err := e.store.PatchNode(ctx, tombstoneNode, tnode.Items, tnode.Subtrees); err != nil {
				return err
			}
			return e.fixupDeficiency(ctx, stack)
		}
		last := len(node.Subtrees) - 1
		stack = append(stack, frame{id: nodeID, index: last})
		nodeID = node.Subtrees[last]
	}
}

// DeleteIfExists is Delete with MissingKey suppressed (spec §4.3.4).
func (e *Engine) DeleteIfExists(ctx context.Context, key order.Value) error {
	if err := e.Delete(ctx, key); err != nil {
		if errs.Is(err, errs.MissingKey) {
			return nil
		}
		return err
	}
	return nil
}

// fixupDeficiency walks the descent stack from the leaf's parent up
// to the root, rebalancing any child left with fewer than MIN items,
// then collapses the root if it became an empty internal passthrough.
func (e *Engine) fixupDeficiency(ctx context.Context, stack []frame) error {
	min := e.tree.MinItems()
	for i := len(stack) - 1; i >= 0; i-- {
		fr := stack[i]
		parent, err := e.store.GetNode(ctx, fr.id)
		if err != nil {
			return err
		}
		child, err := e.store.GetNode(ctx, parent.Subtrees[fr.index])
		if err != nil {
			return err
		}
		if len(child.Items) >= min {
			continue
		}
		if err := e.rebalance(ctx, parent, fr.index, child); err != nil {
			return err
		}
	}
	return e.collapseRootIfNeeded(ctx)
}

func (e *Engine) rebalance(ctx context.Context, parent *nodestore.Node, index int, child *nodestore.Node) error {
	min := e.tree.MinItems()

	if index > 0 {
		left, err := e.store.GetNode(ctx, parent.Subtrees[index-1])
		if err != nil {
			return err
		}
		if len(left.Items) > min {
			return e.rotateRight(ctx, parent, index, left, child)
		}
	}
	if index < len(parent.Subtrees)-1 {
		right, err := e.store.GetNode(ctx, parent.Subtrees[index+1])
		if err != nil {
			return err
		}
		if len(right.Items) > min {
			return e.rotateLeft(ctx, parent, index, child, right)
		}
	}
	if index > 0 {
		left, err := e.store.GetNode(ctx, parent.Subtrees[index-1])
		if err != nil {
			return err
		}
		return e.mergeSiblings(ctx, parent, index-1, left, child)
	}
	right, err := e.store.GetNode(ctx, parent.Subtrees[index+1])
	if err != nil {
		return err
	}
	return e.mergeSiblings(ctx, parent, index, child, right)
}

// rotateRight moves one item from the left sibling through the
// parent separator into child (spec §4.3.3 rule 1).
func (e *Engine) rotateRight(ctx context.Context, parent *nodestore.Node, index int, left, child *nodestore.Node) error {
	sepIdx := index - 1
	sep := parent.Items[sepIdx]

	newChildItems := spliceItem(child.Items, 0, sep)
	poppedItem := left.Items[len(left.Items)-1]
	newLeftItems := left.Items[:len(left.Items)-1]

	var newChildSub, newLeftSub []storeadapter.ID
	if !child.IsLeaf() {
		poppedSub := left.Subtrees[len(left.Subtrees)-1]
		newChildSub = spliceSubtree(child.Subtrees, 0, poppedSub)
		newLeftSub = left.Subtrees[:len(left.Subtrees)-1]
	}

	if err := e.store.PatchNode(ctx, child.ID, newChildItems, newChildSub); err != nil {
		return err
	}
	if err := e.store.PatchNode(ctx, left.ID, newLeftItems, newLeftSub); err != nil {
		return err
	}
	parent.Items[sepIdx] = poppedItem
	if err := e.store.PatchNode(ctx, parent.ID, parent.Items, parent.Subtrees); err != nil {
		return err
	}
	e.log.Rotate("right", string(parent.ID), string(child.ID), string(left.ID))
	return nil
}

// rotateLeft moves one item from the right sibling through the
// parent separator into child (spec §4.3.3 rule 2, symmetric to rotateRight).
func (e *Engine) rotateLeft(ctx context.Context, parent *nodestore.Node, index int, child, right *nodestore.Node) error {
	sep := parent.Items[index]

	newChildItems := spliceItem(child.Items, len(child.Items), sep)
	poppedItem := right.Items[0]
	newRightItems := right.Items[1:]

	var newChildSub, newRightSub []storeadapter.ID
	if !child.IsLeaf() {
		poppedSub := right.Subtrees[0]
		newChildSub = spliceSubtree(child.Subtrees, len(child.Subtrees), poppedSub)
		newRightSub = right.Subtrees[1:]
	}

	if err := e.store.PatchNode(ctx, child.ID, newChildItems, newChildSub); err != nil {
		return err
	}
	if err := e.store.PatchNode(ctx, right.ID, newRightItems, newRightSub); err != nil {
		return err
	}
	parent.Items[index] = poppedItem
	if err := e.store.PatchNode(ctx, parent.ID, parent.Items, parent.Subtrees); err != nil {
		return err
	}
	e.log.Rotate("left", string(parent.ID), string(child.ID), string(right.ID))
	return nil
}

// mergeSiblings folds left, the parent separator at sepIndex, and
// right into left, deletes right, and shrinks parent by one slot
// (spec §4.3.3 rule 3).
func (e *Engine) mergeSiblings(ctx context.Context, parent *nodestore.Node, sepIndex int, left, right *nodestore.Node) error {
	sep := parent.Items[sepIndex]

	merged := make([]nodestore.Item, 0, len(left.Items)+1+len(right.Items))
	merged = append(merged, left.Items...)
	merged = append(merged, sep)
	merged = append(merged, right.Items...)

	var mergedSub []storeadapter.ID
	if !left.IsLeaf() {
		mergedSub = make([]storeadapter.ID, 0, len(left.Subtrees)+len(right.Subtrees))
		mergedSub = append(mergedSub, left.Subtrees...)
		mergedSub = append(mergedSub, right.Subtrees...)
	}

	if err := e.store.PatchNode(ctx, left.ID, merged, mergedSub); err != nil {
		return err
	}
	if err := e.store.DeleteNode(ctx, right.ID); err != nil {
		return err
	}
	newParentItems := removeItem(parent.Items, sepIndex)
	newParentSub := removeSubtree(parent.Subtrees, sepIndex+1)
	if err := e.store.PatchNode(ctx, parent.ID, newParentItems, newParentSub); err != nil {
		return err
	}
	e.log.Merge(string(left.ID), string(right.ID))
	return nil
}

// collapseRootIfNeeded shrinks tree height when the root is an
// internal node with no items left and a single child (spec §4.3.3,
// "the only way tree height shrinks").
func (e *Engine) collapseRootIfNeeded(ctx context.Context) error {
	root, err := e.store.GetNode(ctx, e.tree.Root)
	if err != nil {
		return err
	}
	if root.IsLeaf() || len(root.Items) != 0 || len(root.Subtrees) != 1 {
		return nil
	}
	newRoot := root.Subtrees[0]
	if err := e.store.SetRoot(ctx, e.tree, newRoot); err != nil {
		return err
	}
	if err := e.store.DeleteNode(ctx, root.ID); err != nil {
		return err
	}
	e.log.RootCollapsed(string(newRoot))
	return nil
}
