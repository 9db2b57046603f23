package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role carried by a user.
type Role string

// Supported roles.
const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleStudent Role = "student"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleStudent:
		return true
	default:
		return false
	}
}

// Gender is the user's recorded gender.
type Gender string

// Supported genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// IsValid reports whether g is a known gender.
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// Password length bounds. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
)

// User validation errors
var (
	ErrEmptyUserID         = NewValidationError("id", "cannot be empty", ErrInvalidID)
	ErrEmptyEmail          = NewValidationError("email", "cannot be empty", nil)
	ErrInvalidEmail        = NewValidationError("email", "has invalid format", nil)
	ErrEmptyFirstName      = NewValidationError("first_name", "cannot be empty", nil)
	ErrEmptyLastName       = NewValidationError("last_name", "cannot be empty", nil)
	ErrInvalidGender       = NewValidationError("gender", "must be male or female", nil)
	ErrInvalidRole         = NewValidationError("role", "must be admin, user or student", nil)
	ErrPasswordTooShort    = NewValidationError("password", "must be at least 12 characters long", nil)
	ErrPasswordTooLong     = NewValidationError("password", "must be at most 72 characters long", nil)
	ErrEmptyHashedPassword = NewValidationError("password", "cannot be empty", nil)
)

// UserProfile holds the descriptive attributes of a user.
type UserProfile struct {
	FirstName  string
	LastName   string
	MiddleName string
	Gender     Gender
	Role       Role
}

// User represents a registered account.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // plaintext, only set while registering or changing password
	HashedPassword string    `json:"-"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	MiddleName     string    `json:"middle_name,omitempty"`
	Gender         Gender    `json:"gender"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a validated User with a fresh ID. An empty role defaults to RoleUser.
//
// The password is kept in plaintext on the returned value; the caller hashes it
// before the user is stored.
func NewUser(email, password string, profile UserProfile) (*User, error) {
	role := profile.Role
	if role == "" {
		role = RoleUser
	}

	now := time.Now().UTC()
	user := &User{
		ID:         uuid.New(),
		Email:      strings.TrimSpace(email),
		Password:   password,
		FirstName:  strings.TrimSpace(profile.FirstName),
		LastName:   strings.TrimSpace(profile.LastName),
		MiddleName: strings.TrimSpace(profile.MiddleName),
		Gender:     profile.Gender,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	if u.FirstName == "" {
		return ErrEmptyFirstName
	}
	if u.LastName == "" {
		return ErrEmptyLastName
	}
	if !u.Gender.IsValid() {
		return ErrInvalidGender
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}

	// A stored user has only the hash; a new or changed password must meet the length rules.
	if u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		if len(u.Password) > MaxPasswordLength {
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}

	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// validateEmailFormat requires a non-empty local part and a dotted domain.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return false
	}

	domainPart := email[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
