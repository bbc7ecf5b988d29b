package services

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/microblog/apiserver/internal/store"
)

const uniqueViolationCode = "23505"

// Validator is implemented by input DTOs carrying field-level constraints.
type Validator interface {
	Validate() map[string]string
}

// EntityRepository defines the persistence operations the generic service
// needs for one entity type.
type EntityRepository[T any, K comparable] interface {
	Find(ctx context.Context, key K) (T, error)
	FindWithRelations(ctx context.Context, key K) (T, error)
	List(ctx context.Context, page, perPage int) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (bool, error)
	Delete(ctx context.Context, key K) (store.DeleteResult, error)
	Exists(ctx context.Context, key K) (bool, error)
}

// Hooks supplies the per-entity mapping and business validation steps of
// the generic service. Output, Create, Update, and Input are required;
// the validation hooks are optional.
type Hooks[T any, K comparable, Out any, CreateIn Validator, UpdateIn Validator] struct {
	// Output projects an entity to its read DTO.
	Output func(entity T) Out

	// Create maps a create DTO to a new entity.
	Create func(in CreateIn) T

	// Update replaces the original entity's mutable fields with the
	// update DTO's values. The whole record is persisted afterwards.
	Update func(in UpdateIn, original T) T

	// Input maps an entity back to its update DTO, the shape handed to
	// caller-supplied mutators.
	Input func(entity T) UpdateIn

	// ValidateCreate runs business-rule checks (references, uniqueness)
	// on a create DTO. Returned field errors mean unprocessable input;
	// the error return is for infrastructure failures.
	ValidateCreate func(ctx context.Context, in CreateIn) (map[string]string, error)

	// ValidateUpdate runs business-rule checks on an update DTO, with the
	// original entity available for allow-unchanged-value cases.
	ValidateUpdate func(ctx context.Context, in UpdateIn, original T) (map[string]string, error)
}

// EntityService orchestrates a repository with DTO mapping and validation,
// folding every expected failure into an OperationResult.
type EntityService[T any, K comparable, Out any, CreateIn Validator, UpdateIn Validator] struct {
	repo  EntityRepository[T, K]
	hooks Hooks[T, K, Out, CreateIn, UpdateIn]
}

// NewEntityService wires a repository with its entity hooks.
func NewEntityService[T any, K comparable, Out any, CreateIn Validator, UpdateIn Validator](
	repo EntityRepository[T, K],
	hooks Hooks[T, K, Out, CreateIn, UpdateIn],
) *EntityService[T, K, Out, CreateIn, UpdateIn] {
	return &EntityService[T, K, Out, CreateIn, UpdateIn]{repo: repo, hooks: hooks}
}

// Find projects the entity by key to its output DTO. Absence yields nil
// without an error; callers map that to their own not-found handling.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) Find(ctx context.Context, key K) (*Out, error) {
	entity, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := s.hooks.Output(entity)
	return &out, nil
}

// List returns a page of output DTOs in the entity's default order.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) List(ctx context.Context, page, perPage int) ([]Out, error) {
	entities, err := s.repo.List(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	outputs := make([]Out, 0, len(entities))
	for _, entity := range entities {
		outputs = append(outputs, s.hooks.Output(entity))
	}
	return outputs, nil
}

// Create validates the DTO, runs the entity's business checks, inserts,
// and returns the persisted entity's output DTO.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) Create(ctx context.Context, in CreateIn, validateFields bool) OperationResult[Out] {
	if validateFields {
		if errs := in.Validate(); errs != nil {
			return Failed[Out](OperationValidationError, errs)
		}
	}

	if s.hooks.ValidateCreate != nil {
		errs, err := s.hooks.ValidateCreate(ctx, in)
		if err != nil {
			return failedCause[Out](OperationDatabaseError, serverError(), err)
		}
		if errs != nil {
			return Failed[Out](OperationUnprocessableEntity, errs)
		}
	}

	return s.insert(ctx, s.hooks.Create(in))
}

// insert persists a mapped entity, folding constraint violations and
// save failures into DatabaseError results. The service-level uniqueness
// checks are best-effort pre-checks; the store's unique indexes are the
// final authority under concurrency.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) insert(ctx context.Context, entity T) OperationResult[Out] {
	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		if isUniqueViolation(err) {
			errs := oneError("Conflict", "A record with the same unique value already exists.")
			return failedCause[Out](OperationDatabaseError, errs, err)
		}
		return failedCause[Out](OperationDatabaseError, serverError(), err)
	}
	return Succeeded(s.hooks.Output(created))
}

// Update replaces the targeted entity with the DTO's values.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) Update(ctx context.Context, key K, in UpdateIn, validateFields bool) OperationResult[Out] {
	if validateFields {
		if errs := in.Validate(); errs != nil {
			return Failed[Out](OperationValidationError, errs)
		}
	}
	return s.UpdateWith(ctx, key, func(dto *UpdateIn) bool {
		*dto = in
		return true
	}, false)
}

// UpdateWith loads the entity, maps it to its update DTO, and hands the
// DTO to the caller-supplied mutator. A false return from the mutator
// surfaces as ExternalError without re-running field validation, which is
// how patch-application failures reach the caller. When validateFields is
// set the mutated DTO is validated before the business checks run.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) UpdateWith(ctx context.Context, key K, mutate func(dto *UpdateIn) bool, validateFields bool) OperationResult[Out] {
	entity, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Failed[Out](OperationEntityNotFound, nil)
		}
		return failedCause[Out](OperationDatabaseError, serverError(), err)
	}

	dto := s.hooks.Input(entity)
	if !mutate(&dto) {
		return Failed[Out](OperationExternalError, nil)
	}

	if validateFields {
		if errs := dto.Validate(); errs != nil {
			return Failed[Out](OperationValidationError, errs)
		}
	}

	if s.hooks.ValidateUpdate != nil {
		errs, err := s.hooks.ValidateUpdate(ctx, dto, entity)
		if err != nil {
			return failedCause[Out](OperationDatabaseError, serverError(), err)
		}
		if errs != nil {
			return Failed[Out](OperationUnprocessableEntity, errs)
		}
	}

	updated := s.hooks.Update(dto, entity)
	ok, err := s.repo.Update(ctx, updated)
	if err != nil {
		if isUniqueViolation(err) {
			errs := oneError("Conflict", "A record with the same unique value already exists.")
			return failedCause[Out](OperationDatabaseError, errs, err)
		}
		return failedCause[Out](OperationDatabaseError, serverError(), err)
	}
	if !ok {
		return Failed[Out](OperationDatabaseError, serverError())
	}
	return Succeeded(s.hooks.Output(updated))
}

// Delete removes the entity by key.
func (s *EntityService[T, K, Out, CreateIn, UpdateIn]) Delete(ctx context.Context, key K) (store.DeleteResult, error) {
	return s.repo.Delete(ctx, key)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode
}
