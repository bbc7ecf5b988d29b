package types

import (
	"strings"
	"time"
)

const maxNameLength = 256

// UserOutput is the public read projection of a User. The password hash
// and normalized columns are never part of it.
type UserOutput struct {
	UserID    int    `json:"userId"`
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	BirthDate Date   `json:"birthDate"`
}

// NewUserOutput projects a user entity to its output shape.
func NewUserOutput(u User) UserOutput {
	return UserOutput{
		UserID:    u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		BirthDate: NewDate(u.BirthDate),
	}
}

// UserDetailOutput composes UserOutput with the user's posts.
type UserDetailOutput struct {
	UserOutput
	Posts []PostOutput `json:"posts"`
}

// NewUserDetailOutput projects a user loaded with relations.
func NewUserDetailOutput(u User) UserDetailOutput {
	posts := make([]PostOutput, 0, len(u.Posts))
	for _, p := range u.Posts {
		if p.Author == nil {
			p.Author = &u
		}
		posts = append(posts, NewPostOutput(p))
	}
	return UserDetailOutput{
		UserOutput: NewUserOutput(u),
		Posts:      posts,
	}
}

// UserCreateInput is the validated input shape for creating a user.
// Pointer fields distinguish absent values from zero values.
type UserCreateInput struct {
	UserName  *string `json:"userName"`
	Password  *string `json:"password,omitempty"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	BirthDate *Date   `json:"birthDate"`
}

// Validate checks the field-level constraints of the input.
func (in UserCreateInput) Validate() map[string]string {
	errs := map[string]string{}
	requireString(errs, "UserName", in.UserName, "Username is required and can't be empty.")
	requireString(errs, "Email", in.Email, "Email is required and can't be empty.")
	if in.BirthDate == nil {
		errs["BirthDate"] = "Birthdate is required and can't be empty."
	}
	checkMaxLength(errs, "UserName", in.UserName, maxNameLength)
	checkMaxLength(errs, "Email", in.Email, maxNameLength)
	checkMaxLength(errs, "FirstName", in.FirstName, maxNameLength)
	checkMaxLength(errs, "LastName", in.LastName, maxNameLength)
	if in.Email != nil && *in.Email != "" && !strings.Contains(*in.Email, "@") {
		errs["Email"] = "Email must be a valid email address."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Entity maps the input to a new user entity. The password is left for
// the hashing collaborator; only its hash is ever persisted.
func (in UserCreateInput) Entity(now time.Time) User {
	u := User{
		UserName:       deref(in.UserName),
		Email:          deref(in.Email),
		EmailConfirmed: false,
		FirstName:      deref(in.FirstName),
		LastName:       deref(in.LastName),
		DateCreated:    now,
	}
	if in.BirthDate != nil {
		u.BirthDate = in.BirthDate.Time
	}
	u.NormalizedUserName = Normalize(u.UserName)
	u.NormalizedEmail = Normalize(u.Email)
	return u
}

// UserUpdateInput is the validated input shape for updating a user.
// It carries the identifier of the targeted entity, which must match.
type UserUpdateInput struct {
	UserID    *int    `json:"userId"`
	UserName  *string `json:"userName"`
	Password  *string `json:"password,omitempty"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	BirthDate *Date   `json:"birthDate"`
}

// Validate checks the field-level constraints of the input.
func (in UserUpdateInput) Validate() map[string]string {
	errs := UserCreateInput{
		UserName:  in.UserName,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		BirthDate: in.BirthDate,
	}.Validate()
	if in.UserID == nil {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["UserId"] = "User Id must be provided."
	}
	return errs
}

// Apply replaces the mutable fields of the original entity with the
// input's values. The whole record is persisted afterwards.
func (in UserUpdateInput) Apply(u User) User {
	u.UserName = deref(in.UserName)
	u.Email = deref(in.Email)
	u.FirstName = deref(in.FirstName)
	u.LastName = deref(in.LastName)
	if in.BirthDate != nil {
		u.BirthDate = in.BirthDate.Time
	}
	u.NormalizedUserName = Normalize(u.UserName)
	u.NormalizedEmail = Normalize(u.Email)
	return u
}

// UserLoginInput carries login credentials.
type UserLoginInput struct {
	UserName *string `json:"userName"`
	Password *string `json:"password"`
}

// Validate checks the field-level constraints of the input.
func (in UserLoginInput) Validate() map[string]string {
	errs := map[string]string{}
	requireString(errs, "UserName", in.UserName, "Username is required and can't be empty.")
	requireString(errs, "Password", in.Password, "Password is required and can't be empty.")
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func requireString(errs map[string]string, field string, value *string, message string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		errs[field] = message
	}
}

func checkMaxLength(errs map[string]string, field string, value *string, max int) {
	if _, taken := errs[field]; taken {
		return
	}
	if value != nil && len(*value) > max {
		errs[field] = field + " exceeds the maximum allowed length."
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
