package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/microblog/apiserver/internal/auth"
	"github.com/microblog/apiserver/internal/store"
	"github.com/microblog/apiserver/types"
)

// LoginResult reports the outcome of a credential check.
type LoginResult int

const (
	// LoginSuccess means the credentials were verified.
	LoginSuccess LoginResult = iota
	// LoginUserNotFound means no account exists for the username.
	LoginUserNotFound
	// LoginFailed means the password did not verify.
	LoginFailed
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	EntityRepository[types.User, int]
	FindByUserName(ctx context.Context, username string) (types.User, error)
	FindWithRelationsByUserName(ctx context.Context, username string) (types.User, error)
	UserNameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SetLastSignedIn(ctx context.Context, id int, at time.Time) error
}

// UserService encapsulates user use-cases: account CRUD plus credential
// handling through the password-hashing collaborator. Unlike posts and
// comments it implements Create and Update itself, because both need the
// hashing step between mapping and persistence.
type UserService struct {
	*EntityService[types.User, int, types.UserOutput, types.UserCreateInput, types.UserUpdateInput]
	repo   UserRepository
	hasher auth.PasswordHasher
	logger *slog.Logger
}

func NewUserService(repo UserRepository, hasher auth.PasswordHasher, logger *slog.Logger) *UserService {
	s := &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
	s.EntityService = NewEntityService(repo, Hooks[types.User, int, types.UserOutput, types.UserCreateInput, types.UserUpdateInput]{
		Output: types.NewUserOutput,
		Create: func(in types.UserCreateInput) types.User {
			return in.Entity(time.Now().UTC())
		},
		Update: func(in types.UserUpdateInput, original types.User) types.User {
			return in.Apply(original)
		},
		Input: func(u types.User) types.UserUpdateInput {
			id := u.ID
			birthDate := types.NewDate(u.BirthDate)
			return types.UserUpdateInput{
				UserID:    &id,
				UserName:  &u.UserName,
				Email:     &u.Email,
				FirstName: &u.FirstName,
				LastName:  &u.LastName,
				BirthDate: &birthDate,
			}
		},
		ValidateCreate: s.validateCreate,
		ValidateUpdate: s.validateUpdate,
	})
	return s
}

// FindByUserName projects the user with the given name, along with the
// user's posts. Absence yields nil without an error.
func (s *UserService) FindByUserName(ctx context.Context, username string) (*types.UserDetailOutput, error) {
	user, err := s.repo.FindWithRelationsByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := types.NewUserDetailOutput(user)
	return &out, nil
}

// Create validates the DTO, pre-checks username and email uniqueness,
// hashes the password, and inserts the account. The plaintext password
// never reaches the store.
func (s *UserService) Create(ctx context.Context, in types.UserCreateInput, validateFields bool) OperationResult[types.UserOutput] {
	if validateFields {
		if errs := in.Validate(); errs != nil {
			return Failed[types.UserOutput](OperationValidationError, errs)
		}
	}

	errs, err := s.validateCreate(ctx, in)
	if err != nil {
		return failedCause[types.UserOutput](OperationDatabaseError, serverError(), err)
	}
	if errs != nil {
		return Failed[types.UserOutput](OperationUnprocessableEntity, errs)
	}

	user := in.Entity(time.Now().UTC())
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return failedCause[types.UserOutput](OperationExternalError, nil, err)
		}
		user.PasswordHash = hash
	}

	result := s.insert(ctx, user)
	if result.IsSuccessful() {
		s.logger.InfoContext(ctx, "user account created", "username", user.UserName)
	}
	return result
}

// Update replaces the targeted account with the DTO's values, hashing a
// new password when one is supplied and keeping the stored hash otherwise.
func (s *UserService) Update(ctx context.Context, id int, in types.UserUpdateInput, validateFields bool) OperationResult[types.UserOutput] {
	if validateFields {
		if errs := in.Validate(); errs != nil {
			return Failed[types.UserOutput](OperationValidationError, errs)
		}
	}
	return s.UpdateUserWith(ctx, id, func(dto *types.UserUpdateInput) bool {
		*dto = in
		return true
	}, false)
}

// UpdateUserWith mirrors the generic mutator-based update, adding the
// password hashing step between validation and persistence.
func (s *UserService) UpdateUserWith(ctx context.Context, id int, mutate func(dto *types.UserUpdateInput) bool, validateFields bool) OperationResult[types.UserOutput] {
	user, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Failed[types.UserOutput](OperationEntityNotFound, nil)
		}
		return failedCause[types.UserOutput](OperationDatabaseError, serverError(), err)
	}

	birthDate := types.NewDate(user.BirthDate)
	dto := types.UserUpdateInput{
		UserID:    &user.ID,
		UserName:  &user.UserName,
		Email:     &user.Email,
		FirstName: &user.FirstName,
		LastName:  &user.LastName,
		BirthDate: &birthDate,
	}
	if !mutate(&dto) {
		return Failed[types.UserOutput](OperationExternalError, nil)
	}

	if validateFields {
		if errs := dto.Validate(); errs != nil {
			return Failed[types.UserOutput](OperationValidationError, errs)
		}
	}

	errs, err := s.validateUpdate(ctx, dto, user)
	if err != nil {
		return failedCause[types.UserOutput](OperationDatabaseError, serverError(), err)
	}
	if errs != nil {
		return Failed[types.UserOutput](OperationUnprocessableEntity, errs)
	}

	updated := dto.Apply(user)
	if dto.Password != nil {
		hash, err := s.hasher.Hash(*dto.Password)
		if err != nil {
			return failedCause[types.UserOutput](OperationExternalError, nil, err)
		}
		updated.PasswordHash = hash
	}

	ok, err := s.repo.Update(ctx, updated)
	if err != nil {
		if isUniqueViolation(err) {
			errs := oneError("Conflict", "A record with the same unique value already exists.")
			return failedCause[types.UserOutput](OperationDatabaseError, errs, err)
		}
		return failedCause[types.UserOutput](OperationDatabaseError, serverError(), err)
	}
	if !ok {
		return Failed[types.UserOutput](OperationDatabaseError, serverError())
	}
	return Succeeded(types.NewUserOutput(updated))
}

// Login verifies the credentials. The last-signed-in timestamp is
// stamped only after successful verification; an account without a
// stored hash always fails.
func (s *UserService) Login(ctx context.Context, username, password string) (LoginResult, *types.UserOutput, error) {
	user, err := s.repo.FindByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginUserNotFound, nil, nil
		}
		return LoginFailed, nil, err
	}

	if s.hasher.Verify(user.PasswordHash, password) != auth.VerificationSuccess {
		return LoginFailed, nil, nil
	}

	now := time.Now().UTC()
	if err := s.repo.SetLastSignedIn(ctx, user.ID, now); err != nil {
		return LoginFailed, nil, err
	}
	s.logger.InfoContext(ctx, "user signed in", "username", user.UserName)

	out := types.NewUserOutput(user)
	return LoginSuccess, &out, nil
}

// DeleteByUserName removes the account with the given name.
func (s *UserService) DeleteByUserName(ctx context.Context, username string) (store.DeleteResult, *types.UserOutput, error) {
	user, err := s.repo.FindByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.DeleteNotFound, nil, nil
		}
		return store.DeleteFailed, nil, err
	}

	result, err := s.repo.Delete(ctx, user.ID)
	if err != nil || result != store.DeleteSuccess {
		return result, nil, err
	}
	out := types.NewUserOutput(user)
	return store.DeleteSuccess, &out, nil
}

func (s *UserService) validateCreate(ctx context.Context, in types.UserCreateInput) (map[string]string, error) {
	errs := map[string]string{}
	if in.UserName != nil {
		nameErrs, err := ValidateUniqueName(ctx, s.repo.UserNameExists, "UserName", *in.UserName, "")
		if err != nil {
			return nil, err
		}
		for k, v := range nameErrs {
			errs[k] = v
		}
	}
	if in.Email != nil {
		emailErrs, err := ValidateUniqueName(ctx, s.repo.EmailExists, "Email", *in.Email, "")
		if err != nil {
			return nil, err
		}
		for k, v := range emailErrs {
			errs[k] = v
		}
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

func (s *UserService) validateUpdate(ctx context.Context, in types.UserUpdateInput, original types.User) (map[string]string, error) {
	errs := map[string]string{}
	if in.UserID != nil && *in.UserID != original.ID {
		errs["UserId"] = "User Id provided doesn't match with the targeted user."
	}
	if in.UserName != nil {
		nameErrs, err := ValidateUniqueName(ctx, s.repo.UserNameExists, "UserName", *in.UserName, original.UserName)
		if err != nil {
			return nil, err
		}
		for k, v := range nameErrs {
			errs[k] = v
		}
	}
	if in.Email != nil {
		emailErrs, err := ValidateUniqueName(ctx, s.repo.EmailExists, "Email", *in.Email, original.Email)
		if err != nil {
			return nil, err
		}
		for k, v := range emailErrs {
			errs[k] = v
		}
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}
