package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DeleteResult reports the outcome of a delete operation.
type DeleteResult int

const (
	// DeleteSuccess means the record was removed.
	DeleteSuccess DeleteResult = iota
	// DeleteNotFound means no record existed for the key.
	DeleteNotFound
	// DeleteFailed means the record existed but the database reported
	// no rows affected.
	DeleteFailed
)

func (r DeleteResult) String() string {
	switch r {
	case DeleteSuccess:
		return "success"
	case DeleteNotFound:
		return "not found"
	default:
		return "failed"
	}
}

const (
	// DefaultPerPage is the page size used when the caller supplies none.
	DefaultPerPage = 30
	// MaxPerPage caps the page size regardless of what the caller asks for.
	MaxPerPage = 100
)

// RowScanner abstracts *sql.Row and *sql.Rows for shared row scanning.
type RowScanner interface {
	Scan(dest ...any) error
}

// Descriptor supplies the per-entity pieces of the shared CRUD logic:
// table layout, row scanning, argument binding, the default ordering, and
// the relation-loading query. Everything else is shared across entities.
type Descriptor[T any, K comparable] struct {
	// Table is the table name.
	Table string

	// KeyColumn is the primary key column, generated on insert.
	KeyColumn string

	// Columns are the non-key columns, in the order Args produces values.
	Columns []string

	// DefaultOrder is the ORDER BY clause body for listing.
	DefaultOrder string

	// Scan reads one row: the key column first, then Columns in order.
	// Scan errors are returned to callers unchanged so sql.ErrNoRows
	// stays detectable.
	Scan func(row RowScanner) (T, error)

	// Args binds the entity's values for Columns, in the same order.
	Args func(entity T) []any

	// Key extracts the entity's key.
	Key func(entity T) K

	// SetKey assigns a generated key after insert.
	SetKey func(entity *T, key K)

	// Relations eagerly loads the entity and its declared related
	// entities. Returns ErrNotFound when the key does not resolve.
	// Optional; Find is used when nil.
	Relations func(ctx context.Context, db *sql.DB, key K) (T, error)
}

// EntityStore implements point lookup, paginated listing, create, update,
// delete, and existence checks for one entity type over database/sql.
// Per-entity behavior comes solely from the Descriptor.
type EntityStore[T any, K comparable] struct {
	db   *sql.DB
	desc Descriptor[T, K]

	findQuery   string
	listQuery   string
	insertQuery string
	updateQuery string
	deleteQuery string
	existsQuery string
}

// NewEntityStore builds a store for the described entity. The SQL for the
// shared operations is assembled once here.
func NewEntityStore[T any, K comparable](db *sql.DB, desc Descriptor[T, K]) *EntityStore[T, K] {
	selectCols := desc.KeyColumn + ", " + strings.Join(desc.Columns, ", ")

	placeholders := make([]string, len(desc.Columns))
	assignments := make([]string, len(desc.Columns))
	for i, col := range desc.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}

	return &EntityStore[T, K]{
		db:   db,
		desc: desc,
		findQuery: fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
			selectCols, desc.Table, desc.KeyColumn),
		listQuery: fmt.Sprintf("SELECT %s FROM %s ORDER BY %s OFFSET $1 LIMIT $2",
			selectCols, desc.Table, desc.DefaultOrder),
		insertQuery: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			desc.Table, strings.Join(desc.Columns, ", "), strings.Join(placeholders, ", "), desc.KeyColumn),
		updateQuery: fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
			desc.Table, strings.Join(assignments, ", "), desc.KeyColumn, len(desc.Columns)+1),
		deleteQuery: fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
			desc.Table, desc.KeyColumn),
		existsQuery: fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
			desc.Table, desc.KeyColumn),
	}
}

// DB exposes the underlying handle for entity-specific queries.
func (s *EntityStore[T, K]) DB() *sql.DB {
	return s.db
}

// Find returns the entity by key without loading relations.
func (s *EntityStore[T, K]) Find(ctx context.Context, key K) (T, error) {
	var zero T
	entity, err := s.desc.Scan(s.db.QueryRowContext(ctx, s.findQuery, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return entity, nil
}

// FindWithRelations returns the entity by key, eagerly loading its
// declared related entities. The returned value is a detached snapshot;
// mutations are persisted only through Update.
func (s *EntityStore[T, K]) FindWithRelations(ctx context.Context, key K) (T, error) {
	if s.desc.Relations == nil {
		return s.Find(ctx, key)
	}
	return s.desc.Relations(ctx, s.db, key)
}

// List returns at most min(perPage, 100) entities in the entity's default
// order, skipping (page-1)*perPage rows. Page is 1-based; the store does
// not validate it.
func (s *EntityStore[T, K]) List(ctx context.Context, page, perPage int) ([]T, error) {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	rows, err := s.db.QueryContext(ctx, s.listQuery, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]T, 0, perPage)
	for rows.Next() {
		entity, err := s.desc.Scan(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entities, nil
}

// Create inserts the entity and returns it with its generated key assigned.
func (s *EntityStore[T, K]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	var key K
	if err := s.db.QueryRowContext(ctx, s.insertQuery, s.desc.Args(entity)...).Scan(&key); err != nil {
		return zero, err
	}
	s.desc.SetKey(&entity, key)
	return entity, nil
}

// Update overwrites the whole record with the entity's current values and
// reports whether a row was affected. Partial updates belong one layer up.
func (s *EntityStore[T, K]) Update(ctx context.Context, entity T) (bool, error) {
	args := append(s.desc.Args(entity), s.desc.Key(entity))
	result, err := s.db.ExecContext(ctx, s.updateQuery, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes the entity by key. It looks the key up first and
// distinguishes a missing record from a failed removal.
func (s *EntityStore[T, K]) Delete(ctx context.Context, key K) (DeleteResult, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return DeleteFailed, err
	}
	if !exists {
		return DeleteNotFound, nil
	}

	result, err := s.db.ExecContext(ctx, s.deleteQuery, key)
	if err != nil {
		return DeleteFailed, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return DeleteFailed, err
	}
	if affected == 0 {
		return DeleteFailed, nil
	}
	return DeleteSuccess, nil
}

// Exists reports whether a record with the key exists.
func (s *EntityStore[T, K]) Exists(ctx context.Context, key K) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, s.existsQuery, key).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
