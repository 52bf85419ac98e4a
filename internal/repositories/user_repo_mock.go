package repositories

import (
	"sync"

	"gymflow/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users    map[string]models.User
	profiles map[string]models.Profile
	mu       sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:    make(map[string]models.User),
		profiles: make(map[string]models.Profile),
	}
}

// CreateWithProfile stores the user and profile together under one lock,
// mirroring the transactional behavior of the real repository.
func (r *MockUserRepository) CreateWithProfile(user *models.User, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	profile.UserID = user.ID

	r.users[user.ID] = *user
	r.profiles[user.ID] = *profile
	return nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// GetByID returns a user by ID with its profile attached.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if profile, ok := r.profiles[id]; ok {
		p := profile
		user.Profile = &p
	}
	return &user, nil
}

// GetProfile returns the profile owned by the given user.
func (r *MockUserRepository) GetProfile(userID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

// UpdateProfile replaces the mutable fields of a stored profile. DateJoined
// keeps its original value.
func (r *MockUserRepository) UpdateProfile(profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.profiles[profile.UserID]
	if !ok {
		return ErrNotFound
	}

	existing.Username = profile.Username
	existing.FirstName = profile.FirstName
	existing.LastName = profile.LastName
	existing.DateOfBirth = profile.DateOfBirth
	existing.ProfilePicture = profile.ProfilePicture
	r.profiles[profile.UserID] = existing
	return nil
}
