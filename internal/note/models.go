package note

import (
	"time"

	"github.com/studysync/studysync/internal/store"
)

const Collection = "notes"

// Resource types a note can link to. The type decides which URL shape the
// form accepts.
const (
	TypeYouTube = "youtube"
	TypeDrive   = "drive"
)

// Note is a shared external learning resource: a link plus descriptive
// metadata, immutable after creation.
type Note struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	Topic        string    `json:"topic"`
	Subject      string    `json:"subject"`
	Description  string    `json:"description,omitempty"`
	ResourceURL  string    `json:"resourceUrl"`
	ResourceType string    `json:"resourceType"`
	CreatedAt    time.Time `json:"createdAt"`
}

func Decode(d store.Document) (Note, error) {
	var out Note
	var err error
	out.ID = d.ID
	if out.AuthorID, err = d.StringField("authorId"); err != nil {
		return Note{}, err
	}
	if out.AuthorName, err = d.StringField("authorName"); err != nil {
		return Note{}, err
	}
	if out.Topic, err = d.StringField("topic"); err != nil {
		return Note{}, err
	}
	if out.Subject, err = d.StringField("subject"); err != nil {
		return Note{}, err
	}
	if out.Description, err = d.OptionalStringField("description"); err != nil {
		return Note{}, err
	}
	if out.ResourceURL, err = d.StringField("resourceUrl"); err != nil {
		return Note{}, err
	}
	if out.ResourceType, err = d.StringField("resourceType"); err != nil {
		return Note{}, err
	}
	if out.CreatedAt, err = d.TimeField("createdAt"); err != nil {
		return Note{}, err
	}
	return out, nil
}

// FeedQuery lists all shared resources, newest first.
func FeedQuery() store.Query {
	return store.Query{Collection: Collection, Order: store.Desc("createdAt")}
}

// ByAuthorQuery lists a user's shared resources, newest first (dashboard).
func ByAuthorQuery(uid string) store.Query {
	return store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("authorId", uid)},
		Order:      store.Desc("createdAt"),
	}
}
