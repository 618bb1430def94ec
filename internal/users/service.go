package users

import (
	"context"
	"time"

	"github.com/studysync/studysync/internal/models"
	"github.com/studysync/studysync/internal/store"
)

const Collection = "users"

// Service owns the users/{uid} profile documents.
type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service { return &Service{st: st} }

// CreateProfile writes the users/{uid} document created once at sign-up.
// upvoteScore starts at 0 and nothing in this service ever increments it.
func (s *Service) CreateProfile(ctx context.Context, uid, name, email string) (*models.UserProfile, error) {
	p := &models.UserProfile{
		UID:         uid,
		Name:        name,
		Email:       email,
		UpvoteScore: 0,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.st.Put(ctx, Collection, uid, map[string]any{
		"name":        p.Name,
		"email":       p.Email,
		"upvoteScore": p.UpvoteScore,
		"createdAt":   p.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the profile for uid, or nil when none exists.
func (s *Service) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	docs, err := s.st.Query(ctx, store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("_id", uid)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	p, err := Decode(docs[0])
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Decode converts a raw users document into a profile, failing on missing
// or mistyped fields.
func Decode(d store.Document) (models.UserProfile, error) {
	var p models.UserProfile
	var err error
	p.UID = d.ID
	if p.Name, err = d.StringField("name"); err != nil {
		return models.UserProfile{}, err
	}
	if p.Email, err = d.StringField("email"); err != nil {
		return models.UserProfile{}, err
	}
	if p.UpvoteScore, err = d.IntField("upvoteScore"); err != nil {
		return models.UserProfile{}, err
	}
	if p.CreatedAt, err = d.TimeField("createdAt"); err != nil {
		return models.UserProfile{}, err
	}
	return p, nil
}
