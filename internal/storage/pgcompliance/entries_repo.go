package pgcompliance

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const entryColumns = `
  id, shipment_id, entry_type, port, country, status,
  tariff_code, declared_value, duty_amount, importer, description,
  compliance_checks, next_action, filed_at, cleared_at, last_checked_at,
  created_at, updated_at`

func scanEntry(row pgx.Row) (*models.CustomsEntry, error) {
	var e models.CustomsEntry
	if err := row.Scan(
		&e.ID, &e.ShipmentID, &e.EntryType, &e.Port, &e.Country, &e.Status,
		&e.TariffCode, &e.DeclaredValue, &e.DutyAmount, &e.Importer, &e.Description,
		&e.ComplianceChecks, &e.NextAction, &e.FiledAt, &e.ClearedAt, &e.LastCheckedAt,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan entry")
	}
	return &e, nil
}

func (s *Storage) CreateEntry(ctx context.Context, in models.EntryCreateInput) (*models.CustomsEntry, error) {
	now := time.Now().UTC()

	row := s.db.QueryRow(ctx, `
INSERT INTO customs_entries (
  shipment_id, entry_type, port, country, status,
  tariff_code, declared_value, importer, description,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
RETURNING`+entryColumns+`
`, in.ShipmentID, in.EntryType, in.Port, in.Country, models.EntryStatusDraft,
		in.TariffCode, in.DeclaredValue, in.Importer, in.Description, now)

	e, err := scanEntry(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert entry")
	}
	return e, nil
}

func (s *Storage) GetEntriesByIDs(ctx context.Context, ids []uint64) ([]*models.CustomsEntry, error) {
	if len(ids) == 0 {
		return []*models.CustomsEntry{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT`+entryColumns+` FROM customs_entries WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select entries")
	}
	defer rows.Close()

	out := make([]*models.CustomsEntry, 0, len(ids))
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListEntries(ctx context.Context) ([]models.CustomsEntry, error) {
	return s.listEntriesWhere(ctx, ``)
}

// ListOpenEntries — записи, которые ещё может двигать автоматика.
func (s *Storage) ListOpenEntries(ctx context.Context) ([]models.CustomsEntry, error) {
	return s.listEntriesWhere(ctx, `WHERE status <> 'cleared'`)
}

func (s *Storage) listEntriesWhere(ctx context.Context, where string) ([]models.CustomsEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT`+entryColumns+` FROM customs_entries `+where+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select entries")
	}
	defer rows.Close()

	var out []models.CustomsEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpdateEntryAutomation сохраняет поля, которыми владеет автоматика:
// статус, теги, пошлину, подсказку и штампы.
func (s *Storage) UpdateEntryAutomation(ctx context.Context, e models.CustomsEntry) error {
	_, err := s.db.Exec(ctx, `
UPDATE customs_entries
SET status = $2, compliance_checks = $3, duty_amount = $4, next_action = $5,
    filed_at = $6, cleared_at = $7, last_checked_at = $8, updated_at = now()
WHERE id = $1
`, e.ID, e.Status, e.ComplianceChecks, e.DutyAmount, e.NextAction, e.FiledAt, e.ClearedAt, e.LastCheckedAt)
	return errors.Wrap(err, "update entry automation")
}

// OverrideEntryStatus — операторский override, единственный разрешённый
// путь назад по статусам.
func (s *Storage) OverrideEntryStatus(ctx context.Context, entryID uint64, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE customs_entries SET status = $2, updated_at = now() WHERE id = $1`, entryID, status)
	return errors.Wrap(err, "override entry status")
}
