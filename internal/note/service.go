package note

import (
	"context"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/studysync/studysync/internal/forms"
	"github.com/studysync/studysync/internal/live"
	"github.com/studysync/studysync/internal/store"
)

// Form is the share-resource schema. The URL rule is cross-field: the shape
// the URL must match is selected by ResourceType, not validated
// independently.
type Form struct {
	Topic        string `json:"topic" validate:"required,min=3,max=200"`
	Subject      string `json:"subject" validate:"required,subject"`
	Description  string `json:"description" validate:"omitempty,max=2000"`
	ResourceURL  string `json:"resourceUrl" validate:"required,url"`
	ResourceType string `json:"resourceType" validate:"required,oneof=youtube drive"`
}

var (
	youtubeURL = regexp.MustCompile(`^https?://(www\.)?(youtube\.com|youtu\.be)/\S+$`)
	driveURL   = regexp.MustCompile(`^https?://(drive|docs)\.google\.com/\S+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := forms.NewValidator()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(Form)
		if f.ResourceURL == "" {
			return // required already reports it
		}
		switch f.ResourceType {
		case TypeYouTube:
			if !youtubeURL.MatchString(f.ResourceURL) {
				sl.ReportError(f.ResourceURL, "resourceUrl", "ResourceURL", "resourceurl", "")
			}
		case TypeDrive:
			if !driveURL.MatchString(f.ResourceURL) {
				sl.ReportError(f.ResourceURL, "resourceUrl", "ResourceURL", "resourceurl", "")
			}
		}
	}, Form{})
	return v
}

// Service owns note documents. Notes are created once and never mutated.
type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service { return &Service{st: st} }

// Submit validates the form (including the type-dependent URL shape) and
// issues exactly one create on success.
func (s *Service) Submit(ctx context.Context, authorID, authorName string, f Form) (string, error) {
	if err := forms.Check(validate, f); err != nil {
		return "", err
	}
	return s.st.Create(ctx, Collection, map[string]any{
		"authorId":     authorID,
		"authorName":   authorName,
		"topic":        f.Topic,
		"subject":      f.Subject,
		"description":  f.Description,
		"resourceUrl":  f.ResourceURL,
		"resourceType": f.ResourceType,
		"createdAt":    time.Now().UTC(),
	})
}

// Feed returns a one-shot snapshot of all shared resources.
func (s *Service) Feed(ctx context.Context) ([]Note, error) {
	docs, err := s.st.Query(ctx, FeedQuery())
	if err != nil {
		return nil, err
	}
	out := make([]Note, 0, len(docs))
	for _, doc := range docs {
		n, err := Decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// SubscribeFeed opens the live resources feed.
func (s *Service) SubscribeFeed(ctx context.Context) (*live.Subscription[Note], error) {
	return live.Open(ctx, s.st, FeedQuery(), Decode)
}
