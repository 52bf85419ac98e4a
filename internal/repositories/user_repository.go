package repositories

import (
	"errors"

	"gymflow/internal/models"
)

// Sentinel errors so services can react to specific persistence outcomes
// without string matching.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for user and profile data access.
type UserRepository interface {
	// CreateWithProfile persists a new user together with its profile in a
	// single transaction: either both rows are committed or neither is.
	CreateWithProfile(user *models.User, profile *models.Profile) error
	GetByEmail(email string) (*models.User, error)
	// GetByID returns the user with its profile preloaded.
	GetByID(id string) (*models.User, error)
	GetProfile(userID string) (*models.Profile, error)
	// UpdateProfile writes the full profile row. Merging a partial update
	// into the existing row is the caller's job.
	UpdateProfile(profile *models.Profile) error
}
