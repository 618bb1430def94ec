package doubt

import (
	"time"

	"github.com/studysync/studysync/internal/store"
)

const Collection = "doubts"

// Doubt is a user-submitted question awaiting community answers.
// isResolved only ever transitions false -> true, and only the author may
// flip it.
type Doubt struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	IsResolved  bool      `json:"isResolved"`
}

// Decode converts a raw store document, failing on missing or mistyped
// fields rather than producing zero values.
func Decode(d store.Document) (Doubt, error) {
	var out Doubt
	var err error
	out.ID = d.ID
	if out.AuthorID, err = d.StringField("authorId"); err != nil {
		return Doubt{}, err
	}
	if out.AuthorName, err = d.StringField("authorName"); err != nil {
		return Doubt{}, err
	}
	if out.Subject, err = d.StringField("subject"); err != nil {
		return Doubt{}, err
	}
	if out.Description, err = d.StringField("description"); err != nil {
		return Doubt{}, err
	}
	if out.CreatedAt, err = d.TimeField("createdAt"); err != nil {
		return Doubt{}, err
	}
	if out.IsResolved, err = d.BoolField("isResolved"); err != nil {
		return Doubt{}, err
	}
	return out, nil
}

// FeedQuery is the main feed: every doubt, newest first.
func FeedQuery() store.Query {
	return store.Query{Collection: Collection, Order: store.Desc("createdAt")}
}

// ByAuthorQuery lists a single author's doubts, newest first.
func ByAuthorQuery(uid string) store.Query {
	return store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("authorId", uid)},
		Order:      store.Desc("createdAt"),
	}
}
