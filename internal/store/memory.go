package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and the dev STORE_DRIVER.
// Writes fan out to standing subscriptions on the same collection; each
// subscription re-runs its query and delivers a full snapshot, so observers
// see exactly the semantics of the Mongo driver without a server.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any // collection -> id -> fields
	subs        map[int]*memSub
	nextSub     int
}

type memSub struct {
	query   Query
	deliver func(Snapshot)
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[int]*memSub),
	}
}

func (m *Memory) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.Put(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]map[string]any)
		m.collections[collection] = col
	}
	col[id] = copyFields(fields)
	m.mu.Unlock()
	m.invalidate(collection)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	col := m.collections[collection]
	doc, ok := col[id]
	if !ok {
		m.mu.Unlock()
		return &WriteError{Collection: collection, Op: "update", Cause: ErrNotFound}
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.mu.Unlock()
	m.invalidate(collection)
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runLocked(q), nil
}

func (m *Memory) Subscribe(ctx context.Context, q Query, deliver func(Snapshot)) (CancelFunc, error) {
	s := &memSub{
		query:   q,
		deliver: deliver,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = s
	m.mu.Unlock()

	go m.pump(s)

	cancel := func() {
		s.once.Do(func() {
			close(s.done)
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
	return cancel, nil
}

// pump owns all deliveries for one subscription, so snapshots stay causally
// ordered. The notify channel is buffered with size 1: bursts coalesce, and
// the re-run always observes the latest committed state.
func (m *Memory) pump(s *memSub) {
	run := func() {
		m.mu.RLock()
		docs := m.runLocked(s.query)
		m.mu.RUnlock()
		s.deliver(Snapshot{Docs: docs})
	}
	run()
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
			select {
			case <-s.done:
				return
			default:
			}
			run()
		}
	}
}

func (m *Memory) invalidate(collection string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs {
		if s.query.Collection != collection {
			continue
		}
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

func (m *Memory) runLocked(q Query) []Document {
	col := m.collections[q.Collection]
	out := make([]Document, 0, len(col))
	for id, fields := range col {
		if !matches(id, fields, q.Filters) {
			continue
		}
		out = append(out, Document{ID: id, Fields: copyFields(fields)})
	}
	if q.Order != nil {
		f := q.Order.Field
		desc := q.Order.Desc
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i].Fields[f], out[j].Fields[f])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matches(id string, fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if f.Field == "_id" {
			if id != f.Value {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func copyFields(fields map[string]any) map[string]any {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}
