package answer

import (
	"context"
	"time"

	"github.com/studysync/studysync/internal/forms"
	"github.com/studysync/studysync/internal/live"
	"github.com/studysync/studysync/internal/store"
)

// Form is the schema an answer must pass before any write. The doubtId is
// not checked against a live doubt; the store is permissive by design.
type Form struct {
	DoubtID string `json:"doubtId" validate:"required"`
	Text    string `json:"text" validate:"required,min=2,max=5000"`
}

var validate = forms.NewValidator()

// Service owns answer documents.
type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service { return &Service{st: st} }

// Submit validates the form and issues exactly one create on success.
func (s *Service) Submit(ctx context.Context, authorID, authorName string, f Form) (string, error) {
	if err := forms.Check(validate, f); err != nil {
		return "", err
	}
	return s.st.Create(ctx, Collection, map[string]any{
		"doubtId":    f.DoubtID,
		"authorId":   authorID,
		"authorName": authorName,
		"text":       f.Text,
		"createdAt":  time.Now().UTC(),
	})
}

// ForDoubt returns a one-shot snapshot of a doubt's answers.
func (s *Service) ForDoubt(ctx context.Context, doubtID string) ([]Answer, error) {
	docs, err := s.st.Query(ctx, ForDoubtQuery(doubtID))
	if err != nil {
		return nil, err
	}
	out := make([]Answer, 0, len(docs))
	for _, doc := range docs {
		a, err := Decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// SubscribeForDoubt opens the live answers feed for one doubt.
func (s *Service) SubscribeForDoubt(ctx context.Context, doubtID string) (*live.Subscription[Answer], error) {
	return live.Open(ctx, s.st, ForDoubtQuery(doubtID), Decode)
}
