package doubt

import (
	"context"
	"errors"
	"time"

	"github.com/studysync/studysync/internal/forms"
	"github.com/studysync/studysync/internal/live"
	"github.com/studysync/studysync/internal/store"
)

// ErrNotAuthor is returned when someone other than the doubt's author
// attempts to resolve it.
var ErrNotAuthor = errors.New("only the author may resolve a doubt")

// Form is the schema a doubt submission must pass before any write.
type Form struct {
	Subject     string `json:"subject" validate:"required,subject"`
	Description string `json:"description" validate:"required,min=10,max=2000"`
}

var validate = forms.NewValidator()

// Service owns doubt documents: form-gated submission, author-only resolve,
// and the feed subscription.
type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service { return &Service{st: st} }

// Submit validates the form and, only on success, issues a single create.
// A validation failure never reaches the store.
func (s *Service) Submit(ctx context.Context, authorID, authorName string, f Form) (string, error) {
	if err := forms.Check(validate, f); err != nil {
		return "", err
	}
	return s.st.Create(ctx, Collection, map[string]any{
		"authorId":    authorID,
		"authorName":  authorName,
		"subject":     f.Subject,
		"description": f.Description,
		"createdAt":   time.Now().UTC(),
		"isResolved":  false,
	})
}

// Resolve flips isResolved to true, once, for the author only. A doubt that
// is already resolved stays resolved; the transition never reverses.
func (s *Service) Resolve(ctx context.Context, id, callerUID string) error {
	docs, err := s.st.Query(ctx, store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("_id", id)},
		Limit:      1,
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return store.ErrNotFound
	}
	d, err := Decode(docs[0])
	if err != nil {
		return err
	}
	if d.AuthorID != callerUID {
		return ErrNotAuthor
	}
	if d.IsResolved {
		return nil
	}
	return s.st.Update(ctx, Collection, id, map[string]any{"isResolved": true})
}

// Feed returns a one-shot snapshot of the doubts feed.
func (s *Service) Feed(ctx context.Context) ([]Doubt, error) {
	docs, err := s.st.Query(ctx, FeedQuery())
	if err != nil {
		return nil, err
	}
	out := make([]Doubt, 0, len(docs))
	for _, doc := range docs {
		d, err := Decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// SubscribeFeed opens the live doubts feed. The caller owns the
// subscription and must Close it on teardown.
func (s *Service) SubscribeFeed(ctx context.Context) (*live.Subscription[Doubt], error) {
	return live.Open(ctx, s.st, FeedQuery(), Decode)
}
