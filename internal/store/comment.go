package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/microblog/apiserver/types"
)

// CommentStore handles persistence for comments.
type CommentStore struct {
	*EntityStore[types.Comment, int]
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{
		EntityStore: NewEntityStore(db, Descriptor[types.Comment, int]{
			Table:        "comments",
			KeyColumn:    "id",
			Columns:      []string{"content", "date_posted", "last_edited", "user_id", "post_id"},
			DefaultOrder: "date_posted DESC",
			Scan:         scanComment,
			Args: func(c types.Comment) []any {
				return []any{c.Content, c.DatePosted, c.LastEdited, c.UserID, c.PostID}
			},
			Key:       func(c types.Comment) int { return c.ID },
			SetKey:    func(c *types.Comment, key int) { c.ID = key },
			Relations: loadCommentWithAuthor,
		}),
	}
}

func scanComment(row RowScanner) (types.Comment, error) {
	var comment types.Comment
	err := row.Scan(
		&comment.ID,
		&comment.Content,
		&comment.DatePosted,
		&comment.LastEdited,
		&comment.UserID,
		&comment.PostID,
	)
	if err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

func loadCommentWithAuthor(ctx context.Context, db *sql.DB, id int) (types.Comment, error) {
	const query = `
		SELECT c.id, c.content, c.date_posted, c.last_edited, c.user_id, c.post_id,
			u.id, u.user_name, u.first_name, u.last_name
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1`

	var comment types.Comment
	var author types.User
	err := db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID,
		&comment.Content,
		&comment.DatePosted,
		&comment.LastEdited,
		&comment.UserID,
		&comment.PostID,
		&author.ID,
		&author.UserName,
		&author.FirstName,
		&author.LastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	comment.Author = &author
	return comment, nil
}

func listCommentsByPost(ctx context.Context, db *sql.DB, postID int) ([]types.Comment, error) {
	const query = `
		SELECT c.id, c.content, c.date_posted, c.last_edited, c.user_id, c.post_id,
			u.id, u.user_name, u.first_name, u.last_name
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.date_posted DESC`
	rows, err := db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []types.Comment
	for rows.Next() {
		var comment types.Comment
		var author types.User
		if err := rows.Scan(
			&comment.ID,
			&comment.Content,
			&comment.DatePosted,
			&comment.LastEdited,
			&comment.UserID,
			&comment.PostID,
			&author.ID,
			&author.UserName,
			&author.FirstName,
			&author.LastName,
		); err != nil {
			return nil, err
		}
		comment.Author = &author
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}
