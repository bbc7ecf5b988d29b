package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/microblog/apiserver/types"
)

// PostStore handles persistence for posts.
type PostStore struct {
	*EntityStore[types.Post, int]
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{
		EntityStore: NewEntityStore(db, Descriptor[types.Post, int]{
			Table:        "posts",
			KeyColumn:    "id",
			Columns:      []string{"caption", "content", "date_posted", "last_edited", "user_id"},
			DefaultOrder: "date_posted DESC",
			Scan:         scanPost,
			Args: func(p types.Post) []any {
				return []any{p.Caption, p.Content, p.DatePosted, p.LastEdited, p.UserID}
			},
			Key:       func(p types.Post) int { return p.ID },
			SetKey:    func(p *types.Post, key int) { p.ID = key },
			Relations: loadPostWithAuthorAndComments,
		}),
	}
}

func scanPost(row RowScanner) (types.Post, error) {
	var post types.Post
	err := row.Scan(
		&post.ID,
		&post.Caption,
		&post.Content,
		&post.DatePosted,
		&post.LastEdited,
		&post.UserID,
	)
	if err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// ListWithAuthors returns a page of posts in the default newest-first
// order, with each post's author loaded.
func (s *PostStore) ListWithAuthors(ctx context.Context, page, perPage int) ([]types.Post, error) {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	const query = `
		SELECT p.id, p.caption, p.content, p.date_posted, p.last_edited, p.user_id,
			u.id, u.user_name, u.first_name, u.last_name
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.date_posted DESC
		OFFSET $1 LIMIT $2`
	rows, err := s.DB().QueryContext(ctx, query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, perPage)
	for rows.Next() {
		var post types.Post
		var author types.User
		if err := rows.Scan(
			&post.ID,
			&post.Caption,
			&post.Content,
			&post.DatePosted,
			&post.LastEdited,
			&post.UserID,
			&author.ID,
			&author.UserName,
			&author.FirstName,
			&author.LastName,
		); err != nil {
			return nil, err
		}
		post.Author = &author
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func loadPostWithAuthorAndComments(ctx context.Context, db *sql.DB, id int) (types.Post, error) {
	const query = `
		SELECT p.id, p.caption, p.content, p.date_posted, p.last_edited, p.user_id,
			u.id, u.user_name, u.first_name, u.last_name
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`

	var post types.Post
	var author types.User
	err := db.QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.Caption,
		&post.Content,
		&post.DatePosted,
		&post.LastEdited,
		&post.UserID,
		&author.ID,
		&author.UserName,
		&author.FirstName,
		&author.LastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	post.Author = &author

	comments, err := listCommentsByPost(ctx, db, post.ID)
	if err != nil {
		return types.Post{}, err
	}
	post.Comments = comments
	return post, nil
}

func listPostsByUser(ctx context.Context, db *sql.DB, userID int) ([]types.Post, error) {
	const query = `
		SELECT id, caption, content, date_posted, last_edited, user_id
		FROM posts
		WHERE user_id = $1
		ORDER BY date_posted DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []types.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
