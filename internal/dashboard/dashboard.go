// Package dashboard assembles a user's doubts, answers and notes with one
// parallel fetch. Sources degrade independently: a failing query fills its
// own section's error and never blanks the others.
package dashboard

import (
	"context"

	"github.com/studysync/studysync/internal/answer"
	"github.com/studysync/studysync/internal/doubt"
	"github.com/studysync/studysync/internal/fetch"
	"github.com/studysync/studysync/internal/note"
	"github.com/studysync/studysync/internal/store"
)

// Section is one dashboard tab's outcome: items or the error that kept
// them from loading.
type Section[T any] struct {
	Items []T
	Err   error
}

// Overview is everything the dashboard shows for one user.
type Overview struct {
	Doubts  Section[doubt.Doubt]
	Answers Section[answer.Answer]
	Notes   Section[note.Note]
}

type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service { return &Service{st: st} }

// Overview issues the three per-user queries concurrently and waits for all
// of them to settle.
func (s *Service) Overview(ctx context.Context, uid string) Overview {
	outcomes := fetch.All(ctx, s.st, []fetch.Source{
		{ID: "doubts", Query: doubt.ByAuthorQuery(uid)},
		{ID: "answers", Query: answer.ByAuthorQuery(uid)},
		{ID: "notes", Query: note.ByAuthorQuery(uid)},
	})

	var ov Overview
	ov.Doubts = decodeSection(outcomes["doubts"], doubt.Decode)
	ov.Answers = decodeSection(outcomes["answers"], answer.Decode)
	ov.Notes = decodeSection(outcomes["notes"], note.Decode)
	return ov
}

func decodeSection[T any](oc fetch.Outcome, decode func(store.Document) (T, error)) Section[T] {
	if oc.Err != nil {
		return Section[T]{Err: oc.Err}
	}
	items := make([]T, 0, len(oc.Docs))
	for _, doc := range oc.Docs {
		item, err := decode(doc)
		if err != nil {
			return Section[T]{Err: err}
		}
		items = append(items, item)
	}
	return Section[T]{Items: items}
}
