// Package identity is the authentication collaborator: first-party
// email/password identities with create, authenticate and a process-wide
// identity-change subscription.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studysync/studysync/internal/store"
)

const Collection = "identities"

// minPasswordLen matches the hosted auth service this replaces.
const minPasswordLen = 6

var (
	ErrEmailInUse        = errors.New("email is already in use")
	ErrWeakCredential    = errors.New("password is too weak")
	ErrInvalidCredential = errors.New("invalid email or password")
)

// Identity is the server-side record behind an authenticated uid.
type Identity struct {
	UID       string
	Email     string
	CreatedAt time.Time
}

// Service owns identity documents in the store.
type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service { return &Service{st: st} }

// Create registers a new identity. The uniqueness read here races with
// concurrent sign-ups; the unique index on identities.email is the backstop.
func (s *Service) Create(ctx context.Context, email, password string) (*Identity, error) {
	if len(password) < minPasswordLen {
		return nil, ErrWeakCredential
	}
	existing, err := s.st.Query(ctx, store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("email", email)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	uid := uuid.NewString()
	now := time.Now().UTC()
	if err := s.st.Put(ctx, Collection, uid, map[string]any{
		"email":        email,
		"passwordHash": string(hash),
		"createdAt":    now,
	}); err != nil {
		return nil, err
	}
	return &Identity{UID: uid, Email: email, CreatedAt: now}, nil
}

// Authenticate verifies an email/password pair. A missing identity and a
// wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	docs, err := s.st.Query(ctx, store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("email", email)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrInvalidCredential
	}
	doc := docs[0]
	hash, err := doc.StringField("passwordHash")
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredential
	}
	created, err := doc.TimeField("createdAt")
	if err != nil {
		return nil, err
	}
	return &Identity{UID: doc.ID, Email: email, CreatedAt: created}, nil
}
