// Package live turns the store's raw subscription callback into a typed,
// stateful snapshot feed: decode at the boundary, loading/error/data states,
// sticky errors, explicit cancellation.
package live

import (
	"context"
	"sync"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/pkg/metrics"
)

// Snapshot is one typed delivery: the complete current result set, or the
// error that ended the subscription.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Subscription is a standing, cancelable query feed. The latest state is
// always readable via Current; streaming consumers drain Updates. Once an
// error is delivered it is sticky: no further snapshots arrive until the
// owner re-opens the subscription.
type Subscription[T any] struct {
	mu      sync.RWMutex
	loading bool
	items   []T
	err     error

	updates   chan Snapshot[T]
	cancel    store.CancelFunc
	closeOnce sync.Once
}

// Open establishes a subscription for q, decoding every document through
// decode. A document that fails to decode fails the whole snapshot rather
// than silently dropping records.
func Open[T any](ctx context.Context, st store.Store, q store.Query, decode func(store.Document) (T, error)) (*Subscription[T], error) {
	s := &Subscription[T]{
		loading: true,
		updates: make(chan Snapshot[T], 8),
	}

	cancel, err := st.Subscribe(ctx, q, func(snap store.Snapshot) {
		s.apply(q.Collection, snap, decode)
	})
	if err != nil {
		return nil, err
	}
	s.cancel = cancel
	metrics.LiveSubscriptions.Inc()
	return s, nil
}

func (s *Subscription[T]) apply(collection string, snap store.Snapshot, decode func(store.Document) (T, error)) {
	out := Snapshot[T]{}
	if snap.Err != nil {
		out.Err = snap.Err
	} else {
		items := make([]T, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			item, err := decode(doc)
			if err != nil {
				out.Err = &store.QueryError{Collection: collection, Cause: err}
				break
			}
			items = append(items, item)
		}
		if out.Err == nil {
			out.Items = items
		}
	}

	s.mu.Lock()
	if s.err != nil {
		// sticky: a failed subscription delivers nothing more
		s.mu.Unlock()
		return
	}
	s.loading = false
	if out.Err != nil {
		s.err = out.Err
		s.items = nil
	} else {
		s.items = out.Items
	}
	s.mu.Unlock()

	metrics.SnapshotsDelivered.WithLabelValues(collection).Inc()
	s.push(out)

	if out.Err != nil {
		// release the underlying channel; the error state remains readable
		s.Close()
	}
}

// push delivers latest-wins: if the consumer is behind, the oldest queued
// snapshot is dropped. Each snapshot is the complete result set, so skipping
// an intermediate one loses no information.
func (s *Subscription[T]) push(snap Snapshot[T]) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// Updates streams snapshots to the consumer. The channel is not closed on
// Close; consumers should also watch their own done signal.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] { return s.updates }

// Current returns the most recent state: items, sticky error, and whether
// the first snapshot is still outstanding.
func (s *Subscription[T]) Current() (items []T, err error, loading bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items, s.err, s.loading
}

// Close cancels the underlying store subscription. Idempotent. Owners must
// call it on teardown; an unreleased subscription leaks a standing channel.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		metrics.LiveSubscriptions.Dec()
	})
}
