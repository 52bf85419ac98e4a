package repositories

import (
	"errors"
	"fmt"

	"gymflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
// It expects the gorm.Config to have TranslateError enabled so unique
// constraint violations surface as gorm.ErrDuplicatedKey on every driver.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// CreateWithProfile creates the user and its profile rows inside one
// transaction, so a half-registered account can never be observed.
func (r *GORMUserRepository) CreateWithProfile(user *models.User, profile *models.Profile) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	profile.UserID = user.ID

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user with profile: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID, with the profile preloaded.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Profile").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// GetProfile retrieves the profile owned by the given user.
func (r *GORMUserRepository) GetProfile(userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

// UpdateProfile writes the mutable profile columns. DateJoined is excluded
// from the column list, keeping it immutable after creation.
func (r *GORMUserRepository) UpdateProfile(profile *models.Profile) error {
	result := r.db.Model(&models.Profile{}).
		Where("user_id = ?", profile.UserID).
		Select("username", "first_name", "last_name", "date_of_birth", "profile_picture").
		Updates(profile)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile for user %s: %w", profile.UserID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
