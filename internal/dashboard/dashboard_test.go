package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync/internal/answer"
	"github.com/studysync/studysync/internal/doubt"
	"github.com/studysync/studysync/internal/note"
	"github.com/studysync/studysync/internal/store"
)

func seed(t *testing.T, st store.Store, uid string) {
	t.Helper()
	ctx := context.Background()

	_, err := doubt.NewService(st).Submit(ctx, uid, "Asha",
		doubt.Form{Subject: "DSA", Description: "Why is my BFS visiting nodes twice?"})
	require.NoError(t, err)

	_, err = answer.NewService(st).Submit(ctx, uid, "Asha",
		answer.Form{DoubtID: "d-other", Text: "Mark nodes when you enqueue, not when you dequeue."})
	require.NoError(t, err)

	_, err = note.NewService(st).Submit(ctx, uid, "Asha", note.Form{
		Topic:        "Graph algorithms playlist",
		Subject:      "DSA",
		ResourceURL:  "https://www.youtube.com/playlist?list=PL1",
		ResourceType: note.TypeYouTube,
	})
	require.NoError(t, err)
}

func TestOverview_AllSections(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, "u1")
	seed(t, mem, "u2")

	ov := NewService(mem).Overview(context.Background(), "u1")

	require.NoError(t, ov.Doubts.Err)
	require.Len(t, ov.Doubts.Items, 1)
	require.Equal(t, "u1", ov.Doubts.Items[0].AuthorID)

	require.NoError(t, ov.Answers.Err)
	require.Len(t, ov.Answers.Items, 1)

	require.NoError(t, ov.Notes.Err)
	require.Len(t, ov.Notes.Items, 1)
}

func TestOverview_EmptySectionsAreNotErrors(t *testing.T) {
	ov := NewService(store.NewMemory()).Overview(context.Background(), "nobody")
	require.NoError(t, ov.Doubts.Err)
	require.Empty(t, ov.Doubts.Items)
	require.NoError(t, ov.Answers.Err)
	require.NoError(t, ov.Notes.Err)
}

// failingCollection fails queries against one collection and delegates the
// rest, the shape of a missing index on a single query.
type failingCollection struct {
	store.Store
	collection string
	err        error
}

func (f *failingCollection) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if q.Collection == f.collection {
		return nil, f.err
	}
	return f.Store.Query(ctx, q)
}

func TestOverview_SectionFailureIsIsolated(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, "u1")

	preErr := &store.PreconditionError{Collection: note.Collection, Index: "authorId_1_createdAt_-1"}
	st := &failingCollection{Store: mem, collection: note.Collection, err: preErr}

	start := time.Now()
	ov := NewService(st).Overview(context.Background(), "u1")
	require.Less(t, time.Since(start), 2*time.Second)

	require.True(t, store.IsPrecondition(ov.Notes.Err))
	require.Empty(t, ov.Notes.Items)

	// sibling sections still carry their data
	require.NoError(t, ov.Doubts.Err)
	require.Len(t, ov.Doubts.Items, 1)
	require.NoError(t, ov.Answers.Err)
	require.Len(t, ov.Answers.Items, 1)
}
