package repositories

import (
	"context"

	"gymflow/internal/models"
)

// SessionStore defines the interface for the server-side session records.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	// Delete removes a session. Deleting a session that no longer exists is
	// not an error, so logging out twice behaves the same as once.
	Delete(ctx context.Context, id string) error
}
