package types

import "time"

// CommentOutput is the public read projection of a Comment.
type CommentOutput struct {
	CommentID  int        `json:"commentId"`
	Content    string     `json:"content"`
	DatePosted time.Time  `json:"datePosted"`
	LastEdited *time.Time `json:"lastEdited,omitempty"`
	AuthorID   int        `json:"authorId"`
	AuthorName string     `json:"authorName,omitempty"`
	PostID     int        `json:"postId"`
}

// NewCommentOutput projects a comment entity to its output shape,
// filling the author name when the relation is loaded.
func NewCommentOutput(c Comment) CommentOutput {
	out := CommentOutput{
		CommentID:  c.ID,
		Content:    c.Content,
		DatePosted: c.DatePosted,
		LastEdited: c.LastEdited,
		AuthorID:   c.UserID,
		PostID:     c.PostID,
	}
	if c.Author != nil {
		out.AuthorName = c.Author.UserName
	}
	return out
}

// CommentCreateInput is the validated input shape for creating a comment.
type CommentCreateInput struct {
	Content  *string `json:"content"`
	PostID   *int    `json:"postId"`
	AuthorID *int    `json:"authorId"`
}

// Validate checks the field-level constraints of the input.
func (in CommentCreateInput) Validate() map[string]string {
	errs := map[string]string{}
	requireString(errs, "Content", in.Content, "Comment Content is required and can't be empty.")
	if in.PostID == nil {
		errs["PostId"] = "Post Id must be provided."
	}
	if in.AuthorID == nil {
		errs["AuthorId"] = "Author Id must be provided."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Entity maps the input to a new comment entity.
func (in CommentCreateInput) Entity(now time.Time) Comment {
	c := Comment{
		Content:    deref(in.Content),
		DatePosted: now,
	}
	if in.PostID != nil {
		c.PostID = *in.PostID
	}
	if in.AuthorID != nil {
		c.UserID = *in.AuthorID
	}
	return c
}

// CommentUpdateInput is the validated input shape for updating a comment.
// It carries the identifier of the targeted entity, which must match.
type CommentUpdateInput struct {
	CommentID *int    `json:"commentId"`
	Content   *string `json:"content"`
}

// Validate checks the field-level constraints of the input.
func (in CommentUpdateInput) Validate() map[string]string {
	errs := map[string]string{}
	if in.CommentID == nil {
		errs["CommentId"] = "Comment Id must be provided."
	}
	requireString(errs, "Content", in.Content, "Comment Content is required and can't be empty.")
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Apply replaces the mutable fields of the original entity with the
// input's values.
func (in CommentUpdateInput) Apply(c Comment) Comment {
	c.Content = deref(in.Content)
	return c
}
