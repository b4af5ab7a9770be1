// Package pagination implements cursor-bounded ascending and
// descending walks over a namespace's B-tree, built on
// btree.Engine.RangeFilter's lazy contribution sequence (spec §4.4).
package pagination

import (
	"context"
	"fmt"

	"github.com/zhukovaskychina/btreeindex/btree"
	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// Order selects ascending or descending walk direction.
type Order int

const (
	Asc Order = iota
	Desc
)

// Page is one page of a paginated walk.
type Page struct {
	Items  []nodestore.Item
	Cursor string
	IsDone bool
}

// Request is one call's parameters. K1/K2 are the caller's bounds
// (nil for unbounded); Cursor, if non-empty, narrows whichever bound
// the walk direction advances (K1 for Asc, K2 for Desc).
type Request struct {
	Limit  int
	Order  Order
	Cursor string
	K1, K2 *order.Value
}

// Paginate walks e's tree for one page matching req (spec §4.4).
func Paginate(ctx context.Context, e *btree.Engine, req Request) (Page, error) {
	if req.Limit <= 0 {
		return Page{}, errs.New(errs.InvalidCursor, fmt.Sprintf("pagination limit must be positive, got %d", req.Limit))
	}

	k1, k2 := req.K1, req.K2
	var exclude *order.Value
	if req.Cursor != "" {
		key, err := DecodeCursor(req.Cursor)
		if err != nil {
			return Page{}, err
		}
		if req.Order == Asc {
			k1 = &key
		} else {
			k2 = &key
		}
		exclude = &key
	}

	w := &walker{ctx: ctx, engine: e, limit: req.Limit, desc: req.Order == Desc, exclude: exclude}
	if err := w.walk(e.Tree().Root, k1, k2); err != nil {
		return Page{}, err
	}

	page := Page{Items: w.items, IsDone: !w.stopped}
	if w.stopped {
		page.Cursor = EncodeCursor(w.lastKey)
	} else {
		page.Cursor = NoMorePages
	}
	return page, nil
}

// walker accumulates up to limit items across a recursive expansion
// of btree.RangeFilter contributions, honouring the bound narrowing
// each contribution carries for its subtree (spec §4.3.5, §4.4).
// Direction is applied at every level, not as a single final reversal:
// reversing each node's own contribution list before walking it is
// what makes a bounded-budget desc walk interleave correctly across
// subtree boundaries while still stopping as soon as the page fills.
//
// exclude is the decoded cursor key, or nil when this page has no
// cursor. RangeFilter's own k1/k2 contract is inclusive (spec
// §4.3.5) and stays that way for direct callers; a resumed page's
// cursor bound must instead be exclusive (spec §4.4, design note §9:
// "resumed pagination skips keys <= cursor (asc)"), so the walker
// itself drops the one item that still equals exclude rather than
// asking RangeFilter to treat k1/k2 differently depending on who
// passed them in.
type walker struct {
	ctx     context.Context
	engine  *btree.Engine
	limit   int
	desc    bool
	exclude *order.Value

	items   []nodestore.Item
	lastKey order.Value
	stopped bool // true once limit was reached before exhaustion
}

func (w *walker) walk(nodeID storeadapter.ID, k1, k2 *order.Value) error {
	if w.stopped {
		return nil
	}

	contributions, err := w.engine.RangeFilter(w.ctx, nodeID, k1, k2)
	if err != nil {
		return err
	}
	if w.desc {
		for i, j := 0, len(contributions)-1; i < j; i, j = i+1, j-1 {
			contributions[i], contributions[j] = contributions[j], contributions[i]
		}
	}

	for _, c := range contributions {
		if len(w.items) >= w.limit {
			w.stopped = true
			return nil
		}
		if c.Kind == btree.ContributionItem {
			if w.exclude != nil && c.Item.Key.Equal(*w.exclude) {
				continue
			}
			w.items = append(w.items, c.Item)
			w.lastKey = c.Item.Key
			continue
		}
		if err := w.walk(c.Subtree, c.K1, c.K2); err != nil {
			return err
		}
		if w.stopped {
			return nil
		}
	}
	return nil
}
