package models

import "time"

// UserProfile is the users/{uid} document created right after sign-up.
// UpvoteScore is reserved: it is written once as 0 and never incremented.
type UserProfile struct {
	UID         string    `bson:"_id" json:"uid"`
	Name        string    `bson:"name" json:"name"`
	Email       string    `bson:"email" json:"email"`
	UpvoteScore int64     `bson:"upvoteScore" json:"upvoteScore"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
