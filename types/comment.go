package types

import "time"

// Comment represents a reply attached to a post.
type Comment struct {
	// ID is the unique identifier of the comment.
	ID int `json:"commentId" db:"id"`

	// Content is the body of the comment.
	Content string `json:"content" db:"content"`

	// DatePosted is the timestamp at which the comment was created.
	DatePosted time.Time `json:"datePosted" db:"date_posted"`

	// LastEdited is the timestamp of the most recent edit, nil when the
	// comment has never been edited.
	LastEdited *time.Time `json:"lastEdited,omitempty" db:"last_edited"`

	// UserID identifies the author of the comment.
	UserID int `json:"authorId" db:"user_id"`

	// PostID identifies the post this comment belongs to.
	PostID int `json:"postId" db:"post_id"`

	// Author is the owning user when loaded with relations.
	Author *User `json:"-" db:"-"`
}
