package btree

import (
	"context"

	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// ContributionKind distinguishes a concrete Item contribution from an
// opaque Subtree one (spec §4.3.5).
type ContributionKind int

const (
	ContributionItem ContributionKind = iota
	ContributionSubtree
)

// Contribution is one element of the ordered in-range sequence
// RangeFilter produces. A Subtree contribution may still hold keys
// outside the query range; its in-range keys are exactly those within
// [K1, K2], the bounds a caller must pass back into
// RangeFilter(Subtree, K1, K2) to expand it further. Nil bounds mean
// every key of the subtree is in range, so it can be taken whole (the
// fast path of spec §4.3.5).
type Contribution struct {
	Kind    ContributionKind
	Item    nodestore.Item
	Subtree storeadapter.ID
	K1, K2  *order.Value
}

// RangeFilter produces the ordered in-range contributions of nodeID's
// own items and immediate children. Only nodeID itself is loaded:
// every child that can hold in-range keys is returned as an opaque
// Subtree contribution, and a child whose bounds are already fully
// satisfied by its neighbouring items gets nil bounds — the fast path
// of spec §4.3.5. That contribution's own nil bounds, once the caller
// expands it with another RangeFilter call, make every one of ITS
// children take the same fast path in turn, so an entirely unbounded
// walk never loads more than the nodes on the path to each returned
// item.
func (e *Engine) RangeFilter(ctx context.Context, nodeID storeadapter.ID, k1, k2 *order.Value) ([]Contribution, error) {
	node, err := e.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	n := len(node.Items)
	var out []Contribution
	for i := 0; i <= n; i++ {
		if !node.IsLeaf() {
			skip := (k2 != nil && i > 0 && node.Items[i-1].Key.Compare(*k2) >= 0) ||
				(k1 != nil && i < n && node.Items[i].Key.Compare(*k1) <= 0)
			if !skip {
				childK1, childK2 := k1, k2
				if i > 0 && k1 != nil && node.Items[i-1].Key.Compare(*k1) >= 0 {
					childK1 = nil
				}
				if i < n && k2 != nil && node.Items[i].Key.Compare(*k2) <= 0 {
					childK2 = nil
				}
				out = append(out, Contribution{Kind: ContributionSubtree, Subtree: node.Subtrees[i], K1: childK1, K2: childK2})
			}
		}
		if i == n {
			break
		}
		it := node.Items[i]
		if k2 != nil && it.Key.Compare(*k2) > 0 {
			break
		}
		if k1 == nil || it.Key.Compare(*k1) >= 0 {
			out = append(out, Contribution{Kind: ContributionItem, Item: it})
		}
	}
	return out, nil
}
