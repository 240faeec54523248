package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/server/models"
	"github.com/vterekhov/recordsync/internal/server/repositories/records"
	"github.com/vterekhov/recordsync/internal/server/repositories/repomanager"
	"github.com/vterekhov/recordsync/internal/server/repositories/shares"
	"github.com/vterekhov/recordsync/internal/wire"
)

// ShareService creates and accepts shares. Creating a share and marking the
// root record shared commit in one transaction so clients never observe one
// without the other.
type ShareService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	pub   Publisher
	log   logging.Logger
}

func NewShareService(db *sql.DB, repos repomanager.RepositoryManager, pub Publisher, log logging.Logger) *ShareService {
	return &ShareService{
		db:    db,
		repos: repos,
		pub:   pub,
		log:   log.With("module", "shares"),
	}
}

// Create shares a record the actor owns. The returned share carries the
// server-assigned invitation URL.
func (s *ShareService) Create(ctx context.Context, actor string, share wire.Share) (*wire.Share, error) {
	recordRepo := s.repos.Records(s.db)

	cur, err := recordRepo.Get(ctx, records.OwnedBy(actor), share.RecordName)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	permission := share.Permission
	if permission == "" {
		permission = wire.PermissionReadOnly
	}

	row := &models.Share{
		RecordName: cur.Name,
		Owner:      actor,
		Zone:       cur.Zone,
		Title:      share.Title,
		Permission: permission,
		URL:        "recordsync://share/" + uuid.NewString(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Shares(tx).Create(ctx, row); err != nil {
			return err
		}
		version, err := s.repos.Cursors(tx).NextVersion(ctx)
		if err != nil {
			return err
		}
		cur.Shared = true
		cur.Version = version
		return s.repos.Records(tx).Upsert(ctx, cur)
	})
	if err != nil {
		return nil, fmt.Errorf("creating share: %w", err)
	}

	return &wire.Share{
		RecordName: row.RecordName,
		Title:      row.Title,
		Permission: row.Permission,
		URL:        row.URL,
	}, nil
}

// Accept adds the actor as a participant of an existing share and returns
// the root record as seen through the shared scope.
func (s *ShareService) Accept(ctx context.Context, actor string, meta wire.ShareMetadata) (*wire.Record, error) {
	share, err := s.repos.Shares(s.db).Get(ctx, meta.RootRecordName)
	if err != nil {
		if errors.Is(err, shares.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if share.Owner == actor {
		return nil, fmt.Errorf("%w: owners cannot accept their own share", ErrPermission)
	}

	if err := s.repos.Shares(s.db).AddParticipant(ctx, share.RecordName, actor); err != nil {
		return nil, err
	}

	rec, err := s.repos.Records(s.db).Get(ctx, records.SharedWith(actor), share.RecordName)
	if err != nil {
		return nil, err
	}
	return rec.Wire(), nil
}
