package records

import (
	"context"
	"errors"

	"github.com/vterekhov/recordsync/internal/server/models"
	"github.com/vterekhov/recordsync/internal/wire"
)

// ErrNotFound reports that no live record row matched.
var ErrNotFound = errors.New("record not found")

// View selects which records a call can see. Exactly one member is set:
// Owner restricts to rows owned by that actor (the private scope),
// SharedWith restricts to rows in zones shared with that actor.
type View struct {
	Owner      string
	SharedWith string
}

// OwnedBy builds the private-scope view of one actor.
func OwnedBy(actor string) View { return View{Owner: actor} }

// SharedWith builds the shared-scope view of one actor.
func SharedWith(actor string) View { return View{SharedWith: actor} }

type Repository interface {
	Upsert(ctx context.Context, rec *models.Record) error
	Get(ctx context.Context, v View, name string) (*models.Record, error)
	Select(ctx context.Context, v View) ([]*models.Record, error)
	Query(ctx context.Context, v View, q wire.Query) ([]*models.Record, error)
	ChangedZones(ctx context.Context, v View, since int64, limit int) (*models.ZonePage, error)
	ZoneChanges(ctx context.Context, v View, zone string, since int64, limit int) (*models.ZoneChanges, error)
}
