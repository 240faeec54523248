package shares

import (
	"context"
	"errors"

	"github.com/vterekhov/recordsync/internal/server/models"
)

// ErrNotFound reports that no share exists for the record.
var ErrNotFound = errors.New("share not found")

type Repository interface {
	Create(ctx context.Context, share *models.Share) error
	Get(ctx context.Context, recordName string) (*models.Share, error)
	AddParticipant(ctx context.Context, recordName, actor string) error
	Participants(ctx context.Context, recordName string) ([]string, error)
	CanWrite(ctx context.Context, zone, owner, actor string) (bool, error)
	ZoneParticipants(ctx context.Context, zone, owner string) ([]string, error)
}
