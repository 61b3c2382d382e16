package pgcompliance

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const filingColumns = `
  id, shipment_id, agency, filing_type, status, priority,
  due_date, submitted_at, last_checked_at, created_at, updated_at`

func scanFiling(row pgx.Row) (*models.AgencyFiling, error) {
	var f models.AgencyFiling
	if err := row.Scan(
		&f.ID, &f.ShipmentID, &f.Agency, &f.FilingType, &f.Status, &f.Priority,
		&f.DueDate, &f.SubmittedAt, &f.LastCheckedAt, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan filing")
	}
	return &f, nil
}

func (s *Storage) CreateFiling(ctx context.Context, in models.FilingCreateInput) (*models.AgencyFiling, error) {
	now := time.Now().UTC()
	priority := in.Priority
	if priority == "" {
		priority = "normal"
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO agency_filings (
  shipment_id, agency, filing_type, status, priority, due_date, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
RETURNING`+filingColumns+`
`, in.ShipmentID, in.Agency, in.FilingType, models.FilingStatusDraft, priority, in.DueDate, now)

	f, err := scanFiling(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert filing")
	}
	return f, nil
}

func (s *Storage) ListFilings(ctx context.Context) ([]models.AgencyFiling, error) {
	return s.listFilingsWhere(ctx, ``)
}

// ListOpenFilings — подачи, которые ещё двигает автоматика.
func (s *Storage) ListOpenFilings(ctx context.Context) ([]models.AgencyFiling, error) {
	return s.listFilingsWhere(ctx, `WHERE status <> 'approved'`)
}

func (s *Storage) listFilingsWhere(ctx context.Context, where string) ([]models.AgencyFiling, error) {
	rows, err := s.db.Query(ctx, `SELECT`+filingColumns+` FROM agency_filings `+where+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select filings")
	}
	defer rows.Close()

	var out []models.AgencyFiling
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetFilingByID(ctx context.Context, id uint64) (*models.AgencyFiling, error) {
	row := s.db.QueryRow(ctx, `SELECT`+filingColumns+` FROM agency_filings WHERE id = $1`, id)
	f, err := scanFiling(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

// UpdateFilingAutomation сохраняет исход autoEscalate по одной записи.
func (s *Storage) UpdateFilingAutomation(ctx context.Context, f models.AgencyFiling) error {
	_, err := s.db.Exec(ctx, `
UPDATE agency_filings
SET status = $2, submitted_at = $3, last_checked_at = $4, updated_at = now()
WHERE id = $1
`, f.ID, f.Status, f.SubmittedAt, f.LastCheckedAt)
	return errors.Wrap(err, "update filing automation")
}
