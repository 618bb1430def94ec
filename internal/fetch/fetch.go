// Package fetch issues independent one-shot queries concurrently and waits
// for all of them to settle. One source failing never suppresses another
// source's data; callers inspect outcomes per source.
package fetch

import (
	"context"
	"sync"

	"github.com/studysync/studysync/internal/store"
)

// Source is one query in a multi-source fetch, identified for the caller.
type Source struct {
	ID    string
	Query store.Query
}

// Outcome is the settled result of a single source.
type Outcome struct {
	Docs []store.Document
	Err  error
}

// All runs every source concurrently and returns once all have settled.
// There is no cancellation and no short-circuit: a failure is recorded in
// that source's outcome and the rest keep going.
func All(ctx context.Context, st store.Store, sources []Source) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(sources))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			docs, err := st.Query(ctx, src.Query)
			mu.Lock()
			outcomes[src.ID] = Outcome{Docs: docs, Err: err}
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return outcomes
}
