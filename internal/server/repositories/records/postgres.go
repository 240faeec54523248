// Package records provides the PostgreSQL-backed record store, including the
// version-ordered change feeds the sync cursors page over.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/server/models"
	"github.com/vterekhov/recordsync/internal/wire"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// clause renders the view as a WHERE fragment. argn is the placeholder number
// the view's single argument binds to.
func (v View) clause(argn int) string {
	if v.Owner != "" {
		return fmt.Sprintf("r.owner = $%d", argn)
	}
	return fmt.Sprintf(`(r.zone, r.owner) IN (
		SELECT s.zone, s.owner FROM shares s
		JOIN share_participants p ON p.record_name = s.record_name
		WHERE p.actor = $%d)`, argn)
}

func (v View) arg() string {
	if v.Owner != "" {
		return v.Owner
	}
	return v.SharedWith
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}

	query := `
		INSERT INTO records (name, zone, type, owner, shared, deleted, version, fields, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (name)
		DO UPDATE SET
			shared = EXCLUDED.shared,
			deleted = EXCLUDED.deleted,
			version = EXCLUDED.version,
			fields = EXCLUDED.fields,
			updated_at = now()
		WHERE records.owner = EXCLUDED.owner AND records.zone = EXCLUDED.zone
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.Name, rec.Zone, rec.Type, rec.Owner, rec.Shared, rec.Deleted, rec.Version, fields)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("record %s belongs to another owner or zone", rec.Name)
	}
	return nil
}

const recordColumns = "r.name, r.zone, r.type, r.owner, r.shared, r.deleted, r.version, r.fields, r.updated_at"

func scanRecord(s interface{ Scan(...any) error }) (*models.Record, error) {
	var rec models.Record
	var fields []byte
	if err := s.Scan(&rec.Name, &rec.Zone, &rec.Type, &rec.Owner,
		&rec.Shared, &rec.Deleted, &rec.Version, &fields, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, v View, name string) (*models.Record, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM records r WHERE r.name = $1 AND NOT r.deleted AND %s`,
		recordColumns, v.clause(2))

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, name, v.arg()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Select(ctx context.Context, v View) ([]*models.Record, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM records r WHERE NOT r.deleted AND %s ORDER BY r.version`,
		recordColumns, v.clause(1))
	return r.selectRecords(ctx, query, v.arg())
}

func (r *PostgresRepository) Query(ctx context.Context, v View, q wire.Query) ([]*models.Record, error) {
	op := "r.fields->$2->>'string' = $3"
	value := q.Value
	if q.Op == wire.QueryContains {
		op = "r.fields->$2->>'string' ILIKE $3"
		value = "%" + q.Value + "%"
	}
	query := fmt.Sprintf(
		`SELECT %s FROM records r
		 WHERE NOT r.deleted AND r.type = $1 AND %s AND %s
		 ORDER BY r.version`,
		recordColumns, op, v.clause(4))
	return r.selectRecords(ctx, query, q.Type, q.Field, value, v.arg())
}

func (r *PostgresRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ChangedZones returns one page of zones containing changes past the cursor,
// ordered by the highest version inside each zone so pages drain in commit
// order.
func (r *PostgresRepository) ChangedZones(ctx context.Context, v View, since int64, limit int) (*models.ZonePage, error) {
	query := fmt.Sprintf(`
		SELECT r.zone, MAX(r.version) AS v FROM records r
		WHERE r.version > $1 AND %s
		GROUP BY r.zone ORDER BY v LIMIT $3`, v.clause(2))

	rows, err := r.db.QueryContext(ctx, query, since, v.arg(), limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to select changed zones: %w", err)
	}
	defer rows.Close()

	page := &models.ZonePage{NextVersion: since}
	for rows.Next() {
		var zone string
		var version int64
		if err := rows.Scan(&zone, &version); err != nil {
			return nil, err
		}
		if len(page.Zones) == limit {
			page.More = true
			break
		}
		page.Zones = append(page.Zones, zone)
		page.NextVersion = version
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

// ZoneChanges returns one page of record changes in a zone past the cursor,
// tombstones included.
func (r *PostgresRepository) ZoneChanges(ctx context.Context, v View, zone string, since int64, limit int) (*models.ZoneChanges, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM records r
		 WHERE r.zone = $1 AND r.version > $2 AND %s
		 ORDER BY r.version LIMIT $4`,
		recordColumns, v.clause(3))

	rows, err := r.db.QueryContext(ctx, query, zone, since, v.arg(), limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to select zone changes: %w", err)
	}
	defer rows.Close()

	page := &models.ZoneChanges{NextVersion: since}
	n := 0
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if n == limit {
			page.More = true
			break
		}
		n++
		page.NextVersion = rec.Version
		if rec.Deleted {
			page.DeletedNames = append(page.DeletedNames, rec.Name)
		} else {
			page.Records = append(page.Records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}
