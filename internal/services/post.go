package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/microblog/apiserver/internal/store"
	"github.com/microblog/apiserver/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	EntityRepository[types.Post, int]
	ListWithAuthors(ctx context.Context, page, perPage int) ([]types.Post, error)
}

// ReferenceChecker reports whether a record with the key exists. It is
// the only thing a service needs to know about a referenced entity.
type ReferenceChecker interface {
	Exists(ctx context.Context, key int) (bool, error)
}

// PostService encapsulates post use-cases on top of the generic entity
// service, adding author-reference checks, last-edited stamping, and
// lifecycle event publishing.
type PostService struct {
	*EntityService[types.Post, int, types.PostOutput, types.PostCreateInput, types.PostUpdateInput]
	repo      PostRepository
	users     ReferenceChecker
	publisher Publisher
	logger    *slog.Logger
}

func NewPostService(repo PostRepository, users ReferenceChecker, publisher Publisher, logger *slog.Logger) *PostService {
	s := &PostService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
	s.EntityService = NewEntityService(repo, Hooks[types.Post, int, types.PostOutput, types.PostCreateInput, types.PostUpdateInput]{
		Output: types.NewPostOutput,
		Create: func(in types.PostCreateInput) types.Post {
			return in.Entity(time.Now().UTC())
		},
		Update: func(in types.PostUpdateInput, original types.Post) types.Post {
			post := in.Apply(original)
			now := time.Now().UTC()
			post.LastEdited = &now
			return post
		},
		Input: func(p types.Post) types.PostUpdateInput {
			return types.PostUpdateInput{
				PostID:  &p.ID,
				Caption: &p.Caption,
				Content: &p.Content,
			}
		},
		ValidateCreate: s.validateCreate,
		ValidateUpdate: s.validateUpdate,
	})
	return s
}

// FindDetail projects the post with its author and comments. Absence
// yields nil without an error.
func (s *PostService) FindDetail(ctx context.Context, id int) (*types.PostDetailOutput, error) {
	post, err := s.repo.FindWithRelations(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := types.NewPostDetailOutput(post)
	return &out, nil
}

// ListWithAuthors returns a page of posts, newest first, with author
// fields filled in.
func (s *PostService) ListWithAuthors(ctx context.Context, page, perPage int) ([]types.PostOutput, error) {
	posts, err := s.repo.ListWithAuthors(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	outputs := make([]types.PostOutput, 0, len(posts))
	for _, post := range posts {
		outputs = append(outputs, types.NewPostOutput(post))
	}
	return outputs, nil
}

// Create inserts the post and publishes a created event on success.
func (s *PostService) Create(ctx context.Context, in types.PostCreateInput, validateFields bool) OperationResult[types.PostOutput] {
	result := s.EntityService.Create(ctx, in, validateFields)
	if result.IsSuccessful() {
		publishEvent(ctx, s.publisher, s.logger, ChannelPostCreated, result.Output)
	}
	return result
}

// Delete removes the post and publishes a deleted event on success.
func (s *PostService) Delete(ctx context.Context, id int) (store.DeleteResult, error) {
	result, err := s.EntityService.Delete(ctx, id)
	if err == nil && result == store.DeleteSuccess {
		publishEvent(ctx, s.publisher, s.logger, ChannelPostDeleted, map[string]int{"postId": id})
	}
	return result, err
}

func (s *PostService) validateCreate(ctx context.Context, in types.PostCreateInput) (map[string]string, error) {
	return ValidateReference(ctx, s.users.Exists, "AuthorId", in.AuthorID, nil)
}

func (s *PostService) validateUpdate(_ context.Context, in types.PostUpdateInput, original types.Post) (map[string]string, error) {
	if in.PostID != nil && *in.PostID != original.ID {
		return oneError("PostId", "Post Id provided doesn't match with the targeted post."), nil
	}
	return nil, nil
}
