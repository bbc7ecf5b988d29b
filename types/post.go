package types

import "time"

// Post represents a published entry on a user's feed.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"postId" db:"id"`

	// Caption is an optional short headline, at most 256 characters.
	Caption string `json:"caption" db:"caption"`

	// Content is the body of the post.
	Content string `json:"content" db:"content"`

	// DatePosted is the timestamp at which the post was created.
	DatePosted time.Time `json:"datePosted" db:"date_posted"`

	// LastEdited is the timestamp of the most recent edit, nil when the
	// post has never been edited.
	LastEdited *time.Time `json:"lastEdited,omitempty" db:"last_edited"`

	// UserID identifies the author of the post.
	UserID int `json:"authorId" db:"user_id"`

	// Author is the owning user when loaded with relations.
	Author *User `json:"-" db:"-"`

	// Comments holds the post's comments when loaded with relations.
	Comments []Comment `json:"comments,omitempty" db:"-"`
}
