package zones

import "context"

type Repository interface {
	Upsert(ctx context.Context, name, owner string) error
	SelectByOwner(ctx context.Context, owner string) ([]string, error)
	SelectSharedWith(ctx context.Context, actor string) ([]string, error)
}
