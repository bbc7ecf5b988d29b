// Package storage keeps user avatars in an object store. Like the
// message broker, the backend is optional and the avatar endpoints are
// disabled when none is configured.
package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Avatars stores one avatar object per user under a deterministic key,
// so uploads replace the previous image in place.
type Avatars struct {
	backend ObjectStorage
}

// NewAvatars constructs an avatar store over the provided backend.
func NewAvatars(backend ObjectStorage) *Avatars {
	return &Avatars{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (a *Avatars) EnsureBucket(ctx context.Context) error {
	return a.backend.EnsureBucket(ctx)
}

// Save uploads the avatar for a user, replacing any previous one.
func (a *Avatars) Save(ctx context.Context, userID int, r io.Reader, size int64, contentType string) error {
	return a.backend.Put(ctx, avatarKey(userID), r, size, contentType)
}

// Open returns a reader for the user's avatar.
func (a *Avatars) Open(ctx context.Context, userID int) (io.ReadCloser, error) {
	return a.backend.Get(ctx, avatarKey(userID))
}

// Remove deletes the user's avatar.
func (a *Avatars) Remove(ctx context.Context, userID int) error {
	return a.backend.Delete(ctx, avatarKey(userID))
}

func avatarKey(userID int) string {
	return fmt.Sprintf("users/%d/avatar", userID)
}
