// Package memadapter is a reference storeadapter.Adapter used by this
// repository's tests and demo command in place of a real host
// document store. It keeps tables as in-memory maps guarded by one
// mutex per Store, the same "one operation, one critical section"
// shape the engine expects from a single host transaction, and a
// synchronous work queue standing in for the host's scheduler.
package memadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zhukovaskychina/btreeindex/storeadapter"
	"github.com/zhukovaskychina/btreeindex/util"
)

// WorkHandler processes one deferred work item scheduled via
// Scheduler.RunAfter.
type WorkHandler func(ctx context.Context, args map[string]any) error

// Store is a fixed-table in-memory Adapter: "tree" and "node", each
// with an optional unique index.
type Store struct {
	mu      sync.Mutex
	tables  map[string]map[storeadapter.ID]storeadapter.Document
	indexes map[string]map[string]map[string]storeadapter.ID // table -> index -> serialized value -> id
	counter uint64

	handlersMu sync.RWMutex
	handlers   map[string]WorkHandler
	pending    []scheduledWork
}

type scheduledWork struct {
	workRef string
	args    map[string]any
}

// New returns an empty Store with the tree/node tables declared and a
// unique index on tree.namespace, matching the data model of
// spec.md §3.
func New() *Store {
	s := &Store{
		tables:   map[string]map[storeadapter.ID]storeadapter.Document{"tree": {}, "node": {}},
		indexes:  map[string]map[string]map[string]storeadapter.ID{"tree": {"by_namespace": {}}},
		handlers: map[string]WorkHandler{},
	}
	return s
}

// RegisterWorkHandler wires the handler that Scheduler.RunAfter's
// work items are dispatched to when drained by RunPending. The engine
// registers its node-subtree deletion step here.
func (s *Store) RegisterWorkHandler(workRef string, h WorkHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[workRef] = h
}

// RunPending drains every work item scheduled so far, including ones
// newly enqueued by handlers as they run (a handler re-schedules its
// children), until the queue is empty. It returns the number of items
// processed, for tests that want to assert on cleanup fan-out.
func (s *Store) RunPending(ctx context.Context) (int, error) {
	processed := 0
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return processed, nil
		}
		item := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.handlersMu.RLock()
		h, ok := s.handlers[item.workRef]
		s.handlersMu.RUnlock()
		if !ok {
			return processed, fmt.Errorf("memadapter: no handler registered for work %q", item.workRef)
		}
		if err := h(ctx, item.args); err != nil {
			return processed, err
		}
		processed++
	}
}

func (s *Store) Get(_ context.Context, id storeadapter.ID) (storeadapter.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rows := range s.tables {
		if doc, ok := rows[id]; ok {
			return cloneDoc(doc), true, nil
		}
	}
	return storeadapter.Document{}, false, nil
}

func (s *Store) Insert(_ context.Context, table string, fields map[string]any) (storeadapter.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return "", fmt.Errorf("memadapter: unknown table %q", table)
	}

	if idxs, ok := s.indexes[table]; ok {
		for index, byValue := range idxs {
			key := indexKey(fields[indexField(index)])
			if _, exists := byValue[key]; exists {
				return "", fmt.Errorf("memadapter: unique index %s.%s already has value %v", table, index, fields[indexField(index)])
			}
		}
	}

	id := s.nextID(table, fields)
	doc := storeadapter.Document{ID: id, Table: table, Fields: cloneFields(fields)}
	rows[id] = doc

	if idxs, ok := s.indexes[table]; ok {
		for index, byValue := range idxs {
			byValue[indexKey(fields[indexField(index)])] = id
		}
	}
	return id, nil
}

func (s *Store) Patch(_ context.Context, id storeadapter.ID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for table, rows := range s.tables {
		doc, ok := rows[id]
		if !ok {
			continue
		}
		if idxs, ok := s.indexes[table]; ok {
			for index, byValue := range idxs {
				f := indexField(index)
				if _, changing := fields[f]; changing {
					delete(byValue, indexKey(doc.Fields[f]))
				}
			}
		}
		merged := cloneFields(doc.Fields)
		for k, v := range fields {
			merged[k] = v
		}
		doc.Fields = merged
		rows[id] = doc
		if idxs, ok := s.indexes[table]; ok {
			for index, byValue := range idxs {
				f := indexField(index)
				byValue[indexKey(doc.Fields[f])] = id
			}
		}
		return nil
	}
	return fmt.Errorf("memadapter: patch on missing document %q", id)
}

func (s *Store) Delete(_ context.Context, id storeadapter.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for table, rows := range s.tables {
		doc, ok := rows[id]
		if !ok {
			continue
		}
		if idxs, ok := s.indexes[table]; ok {
			for index, byValue := range idxs {
				delete(byValue, indexKey(doc.Fields[indexField(index)]))
			}
		}
		delete(rows, id)
		return nil
	}
	return nil
}

func (s *Store) UniqueByIndex(_ context.Context, table, index string, value any) (storeadapter.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idxs, ok := s.indexes[table]
	if !ok {
		return storeadapter.Document{}, false, fmt.Errorf("memadapter: no index %s.%s", table, index)
	}
	byValue, ok := idxs[index]
	if !ok {
		return storeadapter.Document{}, false, fmt.Errorf("memadapter: no index %s.%s", table, index)
	}
	id, ok := byValue[indexKey(value)]
	if !ok {
		return storeadapter.Document{}, false, nil
	}
	return cloneDoc(s.tables[table][id]), true, nil
}

// Take returns up to n documents from table ordered by their id
// string, strictly after cursor. Index is accepted for symmetry with
// the store contract but this reference adapter only orders by id.
func (s *Store) Take(_ context.Context, table, _ string, n int, cursor storeadapter.ID) ([]storeadapter.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("memadapter: unknown table %q", table)
	}

	ids := make([]storeadapter.ID, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	out := make([]storeadapter.Document, 0, n)
	started := cursor == ""
	for _, id := range ids {
		if !started {
			if id == cursor {
				started = true
			}
			continue
		}
		if id == cursor {
			continue
		}
		out = append(out, cloneDoc(rows[id]))
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (s *Store) Scheduler() storeadapter.Scheduler { return (*schedulerView)(s) }

type schedulerView Store

func (v *schedulerView) RunAfter(_ context.Context, _ time.Duration, workRef string, args map[string]any) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, scheduledWork{workRef: workRef, args: cloneFields(args)})
	return nil
}

// nextID allocates a short id for a row about to be inserted into
// table, salted with a monotonic counter so repeated inserts of
// identical fields never collide.
func (s *Store) nextID(table string, fields map[string]any) storeadapter.ID {
	s.counter++
	return util.NewDocumentID(table, fields, s.counter)
}

func indexField(index string) string {
	// "by_namespace" -> "namespace"; the only index shape this
	// reference adapter needs to support.
	const prefix = "by_"
	if len(index) > len(prefix) && index[:len(prefix)] == prefix {
		return index[len(prefix):]
	}
	return index
}

func indexKey(v any) string { return fmt.Sprintf("%#v", v) }

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func cloneDoc(d storeadapter.Document) storeadapter.Document {
	return storeadapter.Document{ID: d.ID, Table: d.Table, Fields: cloneFields(d.Fields)}
}
