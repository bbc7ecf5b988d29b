package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/microblog/apiserver/types"
)

// UserStore handles persistence for users.
type UserStore struct {
	*EntityStore[types.User, int]
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{
		EntityStore: NewEntityStore(db, Descriptor[types.User, int]{
			Table:     "users",
			KeyColumn: "id",
			Columns: []string{
				"user_name", "normalized_user_name",
				"email", "normalized_email", "email_confirmed",
				"password_hash", "first_name", "last_name",
				"birth_date", "last_signed_in", "date_created",
			},
			DefaultOrder: "id",
			Scan:         scanUser,
			Args: func(u types.User) []any {
				return []any{
					u.UserName, u.NormalizedUserName,
					u.Email, u.NormalizedEmail, u.EmailConfirmed,
					nullString(u.PasswordHash), u.FirstName, u.LastName,
					u.BirthDate, u.LastSignedIn, u.DateCreated,
				}
			},
			Key:       func(u types.User) int { return u.ID },
			SetKey:    func(u *types.User, key int) { u.ID = key },
			Relations: loadUserWithPosts,
		}),
	}
}

const userColumns = `
	id, user_name, normalized_user_name,
	email, normalized_email, email_confirmed,
	password_hash, first_name, last_name,
	birth_date, last_signed_in, date_created`

func scanUser(row RowScanner) (types.User, error) {
	var user types.User
	var passwordHash sql.NullString
	err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.NormalizedUserName,
		&user.Email,
		&user.NormalizedEmail,
		&user.EmailConfirmed,
		&passwordHash,
		&user.FirstName,
		&user.LastName,
		&user.BirthDate,
		&user.LastSignedIn,
		&user.DateCreated,
	)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = passwordHash.String
	return user, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// FindByUserName returns the user with the given name, matched
// case-insensitively via the normalized column.
func (s *UserStore) FindByUserName(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT` + userColumns + `
		FROM users
		WHERE normalized_user_name = $1`
	user, err := scanUser(s.DB().QueryRowContext(ctx, query, types.Normalize(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// FindWithRelationsByUserName returns the user with the given name along
// with the user's posts.
func (s *UserStore) FindWithRelationsByUserName(ctx context.Context, username string) (types.User, error) {
	user, err := s.FindByUserName(ctx, username)
	if err != nil {
		return types.User{}, err
	}
	posts, err := listPostsByUser(ctx, s.DB(), user.ID)
	if err != nil {
		return types.User{}, err
	}
	user.Posts = posts
	return user, nil
}

// UserNameExists reports whether a user with the name exists,
// case-insensitively.
func (s *UserStore) UserNameExists(ctx context.Context, username string) (bool, error) {
	return s.normalizedExists(ctx, "normalized_user_name", types.Normalize(username))
}

// EmailExists reports whether a user with the email exists,
// case-insensitively.
func (s *UserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.normalizedExists(ctx, "normalized_email", types.Normalize(email))
}

func (s *UserStore) normalizedExists(ctx context.Context, column, value string) (bool, error) {
	query := "SELECT EXISTS (SELECT 1 FROM users WHERE " + column + " = $1)"
	var exists bool
	if err := s.DB().QueryRowContext(ctx, query, value).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SetLastSignedIn stamps the user's last successful sign-in time.
func (s *UserStore) SetLastSignedIn(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE users SET last_signed_in = $1 WHERE id = $2`
	result, err := s.DB().ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func loadUserWithPosts(ctx context.Context, db *sql.DB, id int) (types.User, error) {
	const query = `
		SELECT` + userColumns + `
		FROM users
		WHERE id = $1`
	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	posts, err := listPostsByUser(ctx, db, user.ID)
	if err != nil {
		return types.User{}, err
	}
	user.Posts = posts
	return user, nil
}
