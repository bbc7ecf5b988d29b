package types

import "time"

const maxCaptionLength = 256

// PostOutput is the public read projection of a Post, with selected
// author fields flattened in.
type PostOutput struct {
	PostID         int        `json:"postId"`
	Caption        string     `json:"caption,omitempty"`
	Content        string     `json:"content"`
	DatePosted     time.Time  `json:"datePosted"`
	LastEdited     *time.Time `json:"lastEdited,omitempty"`
	AuthorID       int        `json:"authorId"`
	AuthorName     string     `json:"authorName,omitempty"`
	AuthorFullName string     `json:"authorFullName,omitempty"`
}

// NewPostOutput projects a post entity to its output shape, filling the
// author fields when the relation is loaded.
func NewPostOutput(p Post) PostOutput {
	out := PostOutput{
		PostID:     p.ID,
		Caption:    p.Caption,
		Content:    p.Content,
		DatePosted: p.DatePosted,
		LastEdited: p.LastEdited,
		AuthorID:   p.UserID,
	}
	if p.Author != nil {
		out.AuthorName = p.Author.UserName
		out.AuthorFullName = p.Author.FullName()
	}
	return out
}

// PostDetailOutput composes PostOutput with the post's comments.
type PostDetailOutput struct {
	PostOutput
	Comments []CommentOutput `json:"comments"`
}

// NewPostDetailOutput projects a post loaded with relations.
func NewPostDetailOutput(p Post) PostDetailOutput {
	comments := make([]CommentOutput, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, NewCommentOutput(c))
	}
	return PostDetailOutput{
		PostOutput: NewPostOutput(p),
		Comments:   comments,
	}
}

// PostCreateInput is the validated input shape for creating a post.
type PostCreateInput struct {
	Caption  *string `json:"caption,omitempty"`
	Content  *string `json:"content"`
	AuthorID *int    `json:"authorId"`
}

// Validate checks the field-level constraints of the input.
func (in PostCreateInput) Validate() map[string]string {
	errs := map[string]string{}
	requireString(errs, "Content", in.Content, "Post Content is required and can't be empty.")
	if in.AuthorID == nil {
		errs["AuthorId"] = "Author Id must be provided."
	}
	checkMaxLength(errs, "Caption", in.Caption, maxCaptionLength)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Entity maps the input to a new post entity.
func (in PostCreateInput) Entity(now time.Time) Post {
	p := Post{
		Caption:    deref(in.Caption),
		Content:    deref(in.Content),
		DatePosted: now,
	}
	if in.AuthorID != nil {
		p.UserID = *in.AuthorID
	}
	return p
}

// PostUpdateInput is the validated input shape for updating a post.
// It carries the identifier of the targeted entity, which must match.
type PostUpdateInput struct {
	PostID  *int    `json:"postId"`
	Caption *string `json:"caption,omitempty"`
	Content *string `json:"content"`
}

// Validate checks the field-level constraints of the input.
func (in PostUpdateInput) Validate() map[string]string {
	errs := map[string]string{}
	if in.PostID == nil {
		errs["PostId"] = "Post Id must be provided."
	}
	requireString(errs, "Content", in.Content, "Post Content is required and can't be empty.")
	checkMaxLength(errs, "Caption", in.Caption, maxCaptionLength)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Apply replaces the mutable fields of the original entity with the
// input's values.
func (in PostUpdateInput) Apply(p Post) Post {
	p.Caption = deref(in.Caption)
	p.Content = deref(in.Content)
	return p
}
