// Package engine is the thin facade wiring nodestore, btree,
// pagination, and catalog into the operation table of spec.md §6.2:
// one storeadapter.Adapter in, one call per public operation out. No
// algorithmic logic lives here, only namespace resolution, default
// fanout handling, and logging/error translation — the role the
// teacher's EnhancedBTreeManager plays over EnhancedBTreeIndex.
package engine

import (
	"context"
	"os"

	"github.com/zhukovaskychina/btreeindex/btree"
	"github.com/zhukovaskychina/btreeindex/catalog"
	"github.com/zhukovaskychina/btreeindex/config"
	"github.com/zhukovaskychina/btreeindex/engine/errs"
	"github.com/zhukovaskychina/btreeindex/enginelog"
	"github.com/zhukovaskychina/btreeindex/nodestore"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/pagination"
	"github.com/zhukovaskychina/btreeindex/storeadapter"
)

// Engine is the public entry point: one per storeadapter.Adapter,
// shared across every namespace that adapter's host store holds.
type Engine struct {
	adapter storeadapter.Adapter
	ro      *nodestore.Store
	rw      *nodestore.Store
	log     *enginelog.Logger
	cfg     config.EngineDefaults
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger overrides the default discard logger.
func WithLogger(log *enginelog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithDefaults overrides the built-in config.Default().
func WithDefaults(cfg config.EngineDefaults) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New builds an Engine over adapter. The adapter's Scheduler must have
// catalog.DeleteSubtreeWork registered against this Engine's
// DeleteSubtreeHandler for Clear/ClearAll's scheduled node deletion to
// ever actually run, e.g.:
//
//	adapter.RegisterWorkHandler(catalog.DeleteSubtreeWork, eng.DeleteSubtreeHandler())
func New(adapter storeadapter.Adapter, opts ...Option) *Engine {
	e := &Engine{
		adapter: adapter,
		ro:      nodestore.NewReadOnly(adapter),
		rw:      nodestore.NewReadWrite(adapter),
		log:     enginelog.Discard(),
		cfg:     config.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfigFile builds an Engine whose defaults come from path (a
// TOML file in config.Load's format) and whose logger is built at the
// level that file names, writing to stderr.
func NewFromConfigFile(adapter storeadapter.Adapter, path string) (*Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(adapter, WithDefaults(cfg), WithLogger(enginelog.New(os.Stderr, cfg.LogLevel, ""))), nil
}

func (e *Engine) btreeFor(tree *nodestore.Tree) *btree.Engine {
	return btree.New(e.rw, tree).WithLogger(e.log)
}

// DeleteSubtreeHandler returns the scheduled work handler for
// catalog.DeleteSubtreeWork, bound to this Engine's read-write store
// and logger. See New's doc comment for how to register it.
func (e *Engine) DeleteSubtreeHandler() func(ctx context.Context, args map[string]any) error {
	return catalog.DeleteSubtreeHandler(e.rw, e.log)
}

// Init requires namespace's Tree to be absent (spec §6.2 `init`). A
// nil maxNodeSize uses this Engine's configured default rather than
// nodestore's own package-level constant, so a config-loaded Engine's
// fanout preference actually takes effect on explicit init.
func (e *Engine) Init(ctx context.Context, namespace order.Value, maxNodeSize *int) error {
	size := maxNodeSize
	if size == nil {
		size = &e.cfg.MaxNodeSize
	}
	_, err := e.rw.InitTree(ctx, namespace, size)
	if err != nil {
		e.log.OperationAborted("init", err)
	}
	return err
}

// Clear deletes namespace's tree, schedules its node graph's deletion,
// and recreates an empty tree (spec §6.2 `clear`).
func (e *Engine) Clear(ctx context.Context, namespace order.Value, maxNodeSize *int) error {
	if err := catalog.Clear(ctx, e.rw, namespace, maxNodeSize); err != nil {
		e.log.OperationAborted("clear", err)
		return err
	}
	return nil
}

// ClearAll clears every namespace, including the undefined namespace
// (spec §4.5, §6.2).
func (e *Engine) ClearAll(ctx context.Context) error {
	if err := catalog.ClearAll(ctx, e.rw, e.adapter); err != nil {
		e.log.OperationAborted("clearAll", err)
		return err
	}
	return nil
}

// Insert fails with DuplicateKey if key is already present (spec §6.2
// `insert`). The tree is auto-created with the default fanout on
// first write to an uninitialised namespace (spec §6.4).
func (e *Engine) Insert(ctx context.Context, namespace, key order.Value, value string) error {
	tree, err := e.rw.GetOrCreateTree(ctx, namespace, nil)
	if err != nil {
		e.log.OperationAborted("insert", err)
		return err
	}
	if err := e.btreeFor(tree).Insert(ctx, key, value); err != nil {
		e.log.OperationAborted("insert", err)
		return err
	}
	return nil
}

// Delete fails with MissingKey if key is absent (spec §6.2 `delete`).
func (e *Engine) Delete(ctx context.Context, namespace, key order.Value) error {
	tree, err := e.rw.GetOrCreateTree(ctx, namespace, nil)
	if err != nil {
		e.log.OperationAborted("delete", err)
		return err
	}
	if err := e.btreeFor(tree).Delete(ctx, key); err != nil {
		e.log.OperationAborted("delete", err)
		return err
	}
	return nil
}

// DeleteIfExists never fails on a missing key (spec §6.2
// `deleteIfExists`).
func (e *Engine) DeleteIfExists(ctx context.Context, namespace, key order.Value) error {
	tree, err := e.rw.GetOrCreateTree(ctx, namespace, nil)
	if err != nil {
		e.log.OperationAborted("deleteIfExists", err)
		return err
	}
	if err := e.btreeFor(tree).DeleteIfExists(ctx, key); err != nil {
		e.log.OperationAborted("deleteIfExists", err)
		return err
	}
	return nil
}

// Replace fails with MissingKey if currentKey is absent (spec §6.2
// `replace`). When newNamespace is non-nil and differs from
// namespace, the delete and insert halves run against two separate
// trees within this one call — the only cross-namespace operation the
// engine allows (spec §4.3.4, §9 Open Question, see DESIGN.md).
func (e *Engine) Replace(ctx context.Context, namespace order.Value, currentKey, newKey order.Value, value string, newNamespace *order.Value) error {
	return e.replace(ctx, namespace, currentKey, newKey, value, newNamespace, false)
}

// ReplaceOrInsert is Replace with a missing currentKey suppressed
// (spec §6.2 `replaceOrInsert`).
func (e *Engine) ReplaceOrInsert(ctx context.Context, namespace order.Value, currentKey, newKey order.Value, value string, newNamespace *order.Value) error {
	return e.replace(ctx, namespace, currentKey, newKey, value, newNamespace, true)
}

func (e *Engine) replace(ctx context.Context, namespace order.Value, currentKey, newKey order.Value, value string, newNamespace *order.Value, orInsert bool) error {
	op := "replace"
	if orInsert {
		op = "replaceOrInsert"
	}

	sameNamespace := newNamespace == nil || newNamespace.Equal(namespace)
	if sameNamespace {
		tree, err := e.rw.GetOrCreateTree(ctx, namespace, nil)
		if err != nil {
			e.log.OperationAborted(op, err)
			return err
		}
		be := e.btreeFor(tree)
		var err2 error
		if orInsert {
			err2 = be.ReplaceOrInsert(ctx, currentKey, newKey, value)
		} else {
			err2 = be.Replace(ctx, currentKey, newKey, value)
		}
		if err2 != nil {
			e.log.OperationAborted(op, err2)
		}
		return err2
	}

	// Cross-namespace: delete from the source tree, insert into the
	// destination tree, each via its own btree.Engine bound to its own
	// *nodestore.Tree, but against the shared rw nodestore.Store so
	// both halves run within this call's single host transaction.
	srcTree, err := e.rw.GetOrCreateTree(ctx, namespace, nil)
	if err != nil {
		e.log.OperationAborted(op, err)
		return err
	}
	if err := e.btreeFor(srcTree).Delete(ctx, currentKey); err != nil {
		if orInsert && errs.Is(err, errs.MissingKey) {
			// fall through to insert
		} else {
			e.log.OperationAborted(op, err)
			return err
		}
	}

	dstTree, err := e.rw.GetOrCreateTree(ctx, *newNamespace, nil)
	if err != nil {
		e.log.OperationAborted(op, err)
		return err
	}
	if err := e.btreeFor(dstTree).Insert(ctx, newKey, value); err != nil {
		e.log.OperationAborted(op, err)
		return err
	}
	return nil
}

// Get returns key's item, or nil if absent, failing with
// NotInitialized if namespace has no Tree (spec §6.2 `get`, §7).
func (e *Engine) Get(ctx context.Context, namespace, key order.Value) (*nodestore.Item, error) {
	tree, err := e.ro.MustGetTree(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return btree.New(e.ro, tree).WithLogger(e.log).Get(ctx, key)
}

// Paginate walks namespace's tree for one page (spec §6.2 `paginate`).
func (e *Engine) Paginate(ctx context.Context, namespace order.Value, req pagination.Request) (pagination.Page, error) {
	tree, err := e.ro.MustGetTree(ctx, namespace)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.Paginate(ctx, btree.New(e.ro, tree).WithLogger(e.log), req)
}

// PaginateNamespaces iterates Tree records by internal id (spec §6.2
// `paginateNamespaces`).
func (e *Engine) PaginateNamespaces(ctx context.Context, limit int, cursor string) (catalog.NamespacePage, error) {
	return catalog.PaginateNamespaces(ctx, e.adapter, limit, cursor)
}

// Validate walks namespace's whole tree checking structural
// invariants, failing with InvariantViolation on the first breach
// (spec §6.2 `validate`, §8).
func (e *Engine) Validate(ctx context.Context, namespace order.Value) error {
	tree, err := e.ro.MustGetTree(ctx, namespace)
	if err != nil {
		return err
	}
	return btree.New(e.ro, tree).WithLogger(e.log).Validate(ctx)
}
