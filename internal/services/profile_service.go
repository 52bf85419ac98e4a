package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gymflow/internal/models"
	"gymflow/internal/repositories"
	"gymflow/internal/storage"
)

const maxNameLength = 30

// PictureUpload carries an uploaded profile picture from the handler into
// the service without tying the service to multipart parsing.
type PictureUpload struct {
	Filename string
	Content  []byte
}

// UpdateProfileInput is a partial profile update. Nil fields were not
// submitted and keep their stored values; non-nil fields replace them,
// including with an empty string to clear a field.
type UpdateProfileInput struct {
	Username    *string
	FirstName   *string
	LastName    *string
	DateOfBirth *string // YYYY-MM-DD
	Picture     *PictureUpload
}

// ProfileService handles profile reads and owner-only edits.
type ProfileService struct {
	userRepo repositories.UserRepository
	pictures storage.PictureStore
	events   EventPublisher
}

// NewProfileService creates a new ProfileService.
func NewProfileService(userRepo repositories.UserRepository, pictures storage.PictureStore, events EventPublisher) *ProfileService {
	return &ProfileService{
		userRepo: userRepo,
		pictures: pictures,
		events:   events,
	}
}

// GetProfile returns the user identified by userID with its profile
// attached. Any authenticated viewer may read any profile.
func (s *ProfileService) GetProfile(userID string) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

// UpdateProfile applies a partial update to the profile owned by
// targetID, acting as actorID. The ownership check runs before anything
// is read or written; validation runs before persistence so a submission
// either lands completely or not at all.
func (s *ProfileService) UpdateProfile(actorID, targetID string, input UpdateProfileInput) (*models.Profile, error) {
	if actorID != targetID {
		return nil, ErrForbidden
	}

	errs, dob := s.validateUpdate(input)
	if len(errs) > 0 {
		return nil, errs
	}

	profile, err := s.userRepo.GetProfile(targetID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		profile.Username = *input.Username
	}
	if input.FirstName != nil {
		profile.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		profile.LastName = *input.LastName
	}
	if input.DateOfBirth != nil {
		profile.DateOfBirth = dob
	}

	// The picture file is written before the row update so the stored
	// reference never points at a file that does not exist. An omitted
	// picture leaves the current reference untouched.
	if input.Picture != nil {
		path, err := s.pictures.Save(input.Picture.Filename, input.Picture.Content)
		if err != nil {
			return nil, ValidationErrors{"profile_picture": err.Error()}
		}
		profile.ProfilePicture = path
	}

	if err := s.userRepo.UpdateProfile(profile); err != nil {
		return nil, fmt.Errorf("failed to persist profile update: %w", err)
	}

	s.publishEvent("account.profile_updated", map[string]interface{}{
		"user_id": profile.UserID,
	})

	return profile, nil
}

// validateUpdate checks the supplied fields only. The parsed date of
// birth is returned so the caller does not parse it twice.
func (s *ProfileService) validateUpdate(input UpdateProfileInput) (ValidationErrors, *time.Time) {
	errs := ValidationErrors{}

	if input.Username != nil && len(*input.Username) > maxNameLength {
		errs["username"] = fmt.Sprintf("Ensure this value has at most %d characters.", maxNameLength)
	}
	if input.FirstName != nil && len(*input.FirstName) > maxNameLength {
		errs["first_name"] = fmt.Sprintf("Ensure this value has at most %d characters.", maxNameLength)
	}
	if input.LastName != nil && len(*input.LastName) > maxNameLength {
		errs["last_name"] = fmt.Sprintf("Ensure this value has at most %d characters.", maxNameLength)
	}

	var dob *time.Time
	if input.DateOfBirth != nil && *input.DateOfBirth != "" {
		parsed, err := time.Parse("2006-01-02", *input.DateOfBirth)
		if err != nil {
			errs["date_of_birth"] = "Enter a valid date in YYYY-MM-DD format."
		} else {
			dob = &parsed
		}
	}
	return errs, dob
}

// publishEvent mirrors AuthService.publishEvent for profile events.
func (s *ProfileService) publishEvent(routingKey string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := s.events.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
