package repositories

import (
	"context"

	"librarian/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// CreateIfAbsent inserts user unless the email is taken and reports whether a row was written.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
