package btree

import (
	"context"
	"fmt"

	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// Insert descends to key's leaf position, splices (key, value) in,
// and pushes any resulting overflow back up the ancestor stack,
// splitting at each level that overflows and promoting a new root if
// the split reaches the top (spec §4.3.2). Fails with DuplicateKey if
// key is already present at any level of the descent.
func (e *Engine) Insert(ctx context.Context, key order.Value, value string) error {
	var stack []frame
	nodeID := e.tree.Root

	for {
		node, err := e.store.GetNode(ctx, nodeID)
		if err != nil {
			return err
		}
		i, found := locate(node.Items, key)
		if found {
			return duplicateKeyError(key)
		}
		if node.IsLeaf() {
			items := spliceItem(node.Items, i, nodestore.Item{Key: key, Value: value})
			if err := e.store.PatchNode(ctx, nodeID, items, nil); err != nil {
				return err
			}
			return e.fixupOverflow(ctx, nodeID, stack)
		}
		stack = append(stack, frame{id: nodeID, index: i})
		nodeID = node.Subtrees[i]
	}
}

// fixupOverflow walks up from the just-written node, splitting every
// ancestor whose item count exceeds MAX, until no split is needed or
// the stack is exhausted, in which case a new root is promoted.
func (e *Engine) fixupOverflow(ctx context.Context, startID storeadapter.ID, stack []frame) error {
	max := e.tree.MaxNodeSize
	min := e.tree.MinItems()
	currentID := startID

	for {
		// Reload after the write-back to observe the just-spliced
		// item count, per the read-after-write rule of spec §5.
		node, err := e.store.GetNode(ctx, currentID)
		if err != nil {
			return err
		}
		if len(node.Items) <= max {
			return nil
		}
		if len(node.Items) != max+1 {
			return fmt.Errorf("btree: node %s overflowed to %d items, expected exactly %d", currentID, len(node.Items), max+1)
		}

		sep := node.Items[min]
		leftItems := node.Items[:min]
		rightItems := node.Items[min+1:]
		var leftSub, rightSub []storeadapter.ID
		if !node.IsLeaf() {
			leftSub = node.Subtrees[:min+1]
			rightSub = node.Subtrees[min+1:]
		}

		if err := e.store.PatchNode(ctx, currentID, leftItems, leftSub); err != nil {
			return err
		}
		rightID, err := e.store.InsertNode(ctx, rightItems, rightSub)
		if err != nil {
			return err
		}
		e.log.Split(string(currentID), string(rightID), min)

		if len(stack) == 0 {
			newRootID, err := e.store.InsertNode(ctx, []nodestore.Item{sep}, []storeadapter.ID{currentID, rightID})
			if err != nil {
				return err
			}
			if err := e.store.SetRoot(ctx, e.tree, newRootID); err != nil {
				return err
			}
			e.log.RootPromoted(string(newRootID))
			return nil
		}

		parentFrame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent, err := e.store.GetNode(ctx, parentFrame.id)
		if err != nil {
			return err
		}
		items := spliceItem(parent.Items, parentFrame.index, sep)
		subtrees := spliceSubtree(parent.Subtrees, parentFrame.index+1, rightID)
		if err := e.store.PatchNode(ctx, parentFrame.id, items, subtrees); err != nil {
			return err
		}
		currentID = parentFrame.id
	}
}
