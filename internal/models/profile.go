package models

import "time"

// Profile holds the supplementary attributes of a user. It shares its
// primary key with the owning User row, so a profile has no identity of
// its own and is removed when the user is.
type Profile struct {
	UserID         string     `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	Username       string     `json:"username" gorm:"type:varchar(30)" validate:"omitempty,max=30"`
	FirstName      string     `json:"first_name" gorm:"type:varchar(30)" validate:"omitempty,max=30"`
	LastName       string     `json:"last_name" gorm:"type:varchar(30)" validate:"omitempty,max=30"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	DateJoined     time.Time  `json:"date_joined" gorm:"autoCreateTime"` // set at creation, never updated
	ProfilePicture string     `json:"profile_picture" gorm:"type:varchar(255)"`
}
