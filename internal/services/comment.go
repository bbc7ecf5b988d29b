package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/microblog/apiserver/internal/store"
	"github.com/microblog/apiserver/types"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	EntityRepository[types.Comment, int]
}

// CommentService encapsulates comment use-cases on top of the generic
// entity service, checking both the post and author references.
type CommentService struct {
	*EntityService[types.Comment, int, types.CommentOutput, types.CommentCreateInput, types.CommentUpdateInput]
	repo      CommentRepository
	posts     ReferenceChecker
	users     ReferenceChecker
	publisher Publisher
	logger    *slog.Logger
}

func NewCommentService(repo CommentRepository, posts, users ReferenceChecker, publisher Publisher, logger *slog.Logger) *CommentService {
	s := &CommentService{
		repo:      repo,
		posts:     posts,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
	s.EntityService = NewEntityService(repo, Hooks[types.Comment, int, types.CommentOutput, types.CommentCreateInput, types.CommentUpdateInput]{
		Output: types.NewCommentOutput,
		Create: func(in types.CommentCreateInput) types.Comment {
			return in.Entity(time.Now().UTC())
		},
		Update: func(in types.CommentUpdateInput, original types.Comment) types.Comment {
			comment := in.Apply(original)
			now := time.Now().UTC()
			comment.LastEdited = &now
			return comment
		},
		Input: func(c types.Comment) types.CommentUpdateInput {
			return types.CommentUpdateInput{
				CommentID: &c.ID,
				Content:   &c.Content,
			}
		},
		ValidateCreate: s.validateCreate,
		ValidateUpdate: s.validateUpdate,
	})
	return s
}

// Create inserts the comment and publishes a created event on success.
func (s *CommentService) Create(ctx context.Context, in types.CommentCreateInput, validateFields bool) OperationResult[types.CommentOutput] {
	result := s.EntityService.Create(ctx, in, validateFields)
	if result.IsSuccessful() {
		publishEvent(ctx, s.publisher, s.logger, ChannelCommentCreated, result.Output)
	}
	return result
}

// Delete removes the comment and publishes a deleted event on success.
func (s *CommentService) Delete(ctx context.Context, id int) (store.DeleteResult, error) {
	result, err := s.EntityService.Delete(ctx, id)
	if err == nil && result == store.DeleteSuccess {
		publishEvent(ctx, s.publisher, s.logger, ChannelCommentDeleted, map[string]int{"commentId": id})
	}
	return result, err
}

func (s *CommentService) validateCreate(ctx context.Context, in types.CommentCreateInput) (map[string]string, error) {
	errs, err := ValidateReference(ctx, s.posts.Exists, "PostId", in.PostID, nil)
	if err != nil {
		return nil, err
	}
	authorErrs, err := ValidateReference(ctx, s.users.Exists, "AuthorId", in.AuthorID, nil)
	if err != nil {
		return nil, err
	}
	if errs == nil && authorErrs == nil {
		return nil, nil
	}
	if errs == nil {
		errs = map[string]string{}
	}
	for k, v := range authorErrs {
		errs[k] = v
	}
	return errs, nil
}

func (s *CommentService) validateUpdate(_ context.Context, in types.CommentUpdateInput, original types.Comment) (map[string]string, error) {
	if in.CommentID != nil && *in.CommentID != original.ID {
		return oneError("CommentId", "Comment Id provided doesn't match with the targeted comment."), nil
	}
	return nil, nil
}
