package btree

import (
	"context"
	"fmt"

	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// Validate walks the whole tree checking the structural invariants a
// correctly maintained B-tree must hold, surfacing the first breach as
// an InvariantViolation. It is a read operation with no side effects,
// intended for tests and operator diagnostics rather than the hot
// path (spec §8 "Testable Properties").
func (e *Engine) Validate(ctx context.Context) error {
	_, err := e.validateNode(ctx, e.tree.Root, true, nil, nil, -1)
	return err
}

// validateNode checks nodeID and recurses into its children, returning
// the leaf depth reachable from nodeID (0 for a leaf itself). wantDepth
// is the leaf depth a sibling of nodeID already reported, or -1 if
// none has been observed yet; every leaf must agree on this to satisfy
// the equal-depth invariant.
func (e *Engine) validateNode(ctx context.Context, nodeID storeadapter.ID, isRoot bool, lo, hi *order.Value, wantDepth int) (int, error) {
	node, err := e.store.GetNode(ctx, nodeID)
	if err != nil {
		return -1, err
	}

	min := e.tree.MinItems()
	max := e.tree.MaxNodeSize
	n := len(node.Items)
	if !isRoot && n < min {
		return -1, invariantError(fmt.Sprintf("node %s has %d items, fewer than the minimum %d", nodeID, n, min))
	}
	if n > max {
		return -1, invariantError(fmt.Sprintf("node %s has %d items, more than the maximum %d", nodeID, n, max))
	}

	for i := 1; i < n; i++ {
		if node.Items[i-1].Key.Compare(node.Items[i].Key) >= 0 {
			return -1, invariantError(fmt.Sprintf("node %s items not strictly ascending at index %d", nodeID, i))
		}
	}
	if lo != nil && n > 0 && node.Items[0].Key.Compare(*lo) <= 0 {
		return -1, invariantError(fmt.Sprintf("node %s first item not strictly greater than its lower separator", nodeID))
	}
	if hi != nil && n > 0 && node.Items[n-1].Key.Compare(*hi) >= 0 {
		return -1, invariantError(fmt.Sprintf("node %s last item not strictly less than its upper separator", nodeID))
	}

	if node.IsLeaf() {
		if len(node.Subtrees) != 0 {
			return -1, invariantError(fmt.Sprintf("leaf %s carries %d subtrees", nodeID, len(node.Subtrees)))
		}
		return 0, nil
	}

	if n == 0 {
		return -1, invariantError(fmt.Sprintf("internal node %s has no items", nodeID))
	}
	if len(node.Subtrees) != n+1 {
		return -1, invariantError(fmt.Sprintf("internal node %s has %d items but %d subtrees, want %d", nodeID, n, len(node.Subtrees), n+1))
	}

	// depth is the leaf depth expected of this node's children: one less
	// than wantDepth when that is known.
	depth := -1
	if wantDepth > 0 {
		depth = wantDepth - 1
	}
	for i, childID := range node.Subtrees {
		var childLo, childHi *order.Value
		if i > 0 {
			k := node.Items[i-1].Key
			childLo = &k
		} else {
			childLo = lo
		}
		if i < n {
			k := node.Items[i].Key
			childHi = &k
		} else {
			childHi = hi
		}
		childDepth, err := e.validateNode(ctx, childID, false, childLo, childHi, depth)
		if err != nil {
			return -1, err
		}
		if depth == -1 {
			depth = childDepth
		} else if childDepth != depth {
			return -1, invariantError(fmt.Sprintf("subtree %s has leaf depth %d, expected %d", childID, childDepth, depth))
		}
	}
	return depth + 1, nil
}

func invariantError(msg string) error {
	return errs.New(errs.InvariantViolation, msg)
}
