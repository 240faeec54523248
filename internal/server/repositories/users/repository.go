package users

import (
	"context"
	"errors"

	"github.com/vterekhov/recordsync/internal/server/models"
)

var (
	// ErrNotFound reports that no user matched.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate reports that the name is already registered.
	ErrDuplicate = errors.New("user already exists")
)

type Repository interface {
	Create(ctx context.Context, name string, secret []byte) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
}
