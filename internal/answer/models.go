package answer

import (
	"time"

	"github.com/studysync/studysync/internal/store"
)

const Collection = "answers"

// Answer is an append-only reply to a doubt. Answers are never edited or
// deleted.
type Answer struct {
	ID         string    `json:"id"`
	DoubtID    string    `json:"doubtId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

func Decode(d store.Document) (Answer, error) {
	var out Answer
	var err error
	out.ID = d.ID
	if out.DoubtID, err = d.StringField("doubtId"); err != nil {
		return Answer{}, err
	}
	if out.AuthorID, err = d.StringField("authorId"); err != nil {
		return Answer{}, err
	}
	if out.AuthorName, err = d.StringField("authorName"); err != nil {
		return Answer{}, err
	}
	if out.Text, err = d.StringField("text"); err != nil {
		return Answer{}, err
	}
	if out.CreatedAt, err = d.TimeField("createdAt"); err != nil {
		return Answer{}, err
	}
	return out, nil
}

// ForDoubtQuery lists a doubt's answers oldest-first, the order a thread
// reads in.
func ForDoubtQuery(doubtID string) store.Query {
	return store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("doubtId", doubtID)},
		Order:      store.Asc("createdAt"),
	}
}

// ByAuthorQuery lists a user's answers, newest first (dashboard).
func ByAuthorQuery(uid string) store.Query {
	return store.Query{
		Collection: Collection,
		Filters:    []store.Filter{store.Eq("authorId", uid)},
		Order:      store.Desc("createdAt"),
	}
}
