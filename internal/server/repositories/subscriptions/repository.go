package subscriptions

import (
	"context"

	"github.com/vterekhov/recordsync/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
	SelectByActors(ctx context.Context, actors []string) ([]*models.Subscription, error)
}
