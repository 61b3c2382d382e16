package pgcompliance

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) UpsertZone(ctx context.Context, z models.FTZZone) (*models.FTZZone, error) {
	err := s.db.QueryRow(ctx, `
INSERT INTO ftz_zones (zone_number, name, location, operator, status, total_area, available_area)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (zone_number)
DO UPDATE SET
  name = EXCLUDED.name,
  location = EXCLUDED.location,
  operator = EXCLUDED.operator,
  status = EXCLUDED.status,
  total_area = EXCLUDED.total_area,
  available_area = EXCLUDED.available_area
RETURNING id
`, z.ZoneNumber, z.Name, z.Location, z.Operator, z.Status, z.TotalArea, z.AvailableArea).Scan(&z.ID)
	if err != nil {
		return nil, errors.Wrap(err, "upsert zone")
	}
	return &z, nil
}

func (s *Storage) ListZones(ctx context.Context) (map[uint64]models.FTZZone, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, zone_number, name, location, operator, status, total_area, available_area
FROM ftz_zones
`)
	if err != nil {
		return nil, errors.Wrap(err, "select zones")
	}
	defer rows.Close()

	out := map[uint64]models.FTZZone{}
	for rows.Next() {
		var z models.FTZZone
		if err := rows.Scan(&z.ID, &z.ZoneNumber, &z.Name, &z.Location, &z.Operator, &z.Status, &z.TotalArea, &z.AvailableArea); err != nil {
			return nil, errors.Wrap(err, "scan zone")
		}
		out[z.ID] = z
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

const itemColumns = `
  id, zone_id, shipment_id, description, quantity,
  declared_value, currency, duty_deferral, entry_date,
  last_movement, status, created_at, updated_at`

func scanItem(row pgx.Row) (*models.FTZInventoryItem, error) {
	var it models.FTZInventoryItem
	if err := row.Scan(
		&it.ID, &it.ZoneID, &it.ShipmentID, &it.Description, &it.Quantity,
		&it.DeclaredValue, &it.Currency, &it.DutyDeferral, &it.EntryDate,
		&it.LastMovement, &it.Status, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan inventory item")
	}
	return &it, nil
}

func (s *Storage) CreateInventoryItem(ctx context.Context, it models.FTZInventoryItem) (*models.FTZInventoryItem, error) {
	now := time.Now().UTC()
	if it.Status == "" {
		it.Status = models.ItemStatusInZone
	}
	if it.EntryDate.IsZero() {
		it.EntryDate = now
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO ftz_inventory_items (
  zone_id, shipment_id, description, quantity, declared_value,
  currency, duty_deferral, entry_date, status, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
RETURNING`+itemColumns+`
`, it.ZoneID, it.ShipmentID, it.Description, it.Quantity, it.DeclaredValue,
		it.Currency, it.DutyDeferral, it.EntryDate.UTC(), it.Status, now)

	created, err := scanItem(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert inventory item")
	}
	return created, nil
}

func (s *Storage) GetInventoryItemByID(ctx context.Context, id uint64) (*models.FTZInventoryItem, error) {
	row := s.db.QueryRow(ctx, `SELECT`+itemColumns+` FROM ftz_inventory_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}

// ListInZoneItems — активный инвентарь; терминальные статусы остаются в
// таблице для аудита, но свипы их не трогают.
func (s *Storage) ListInZoneItems(ctx context.Context) ([]models.FTZInventoryItem, error) {
	rows, err := s.db.Query(ctx, `SELECT`+itemColumns+` FROM ftz_inventory_items WHERE status = $1 ORDER BY id`, models.ItemStatusInZone)
	if err != nil {
		return nil, errors.Wrap(err, "select inventory items")
	}
	defer rows.Close()

	var out []models.FTZInventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpdateInventoryMovement сохраняет результат ftz.ApplyMovement.
func (s *Storage) UpdateInventoryMovement(ctx context.Context, it models.FTZInventoryItem) error {
	_, err := s.db.Exec(ctx, `
UPDATE ftz_inventory_items
SET quantity = $2, status = $3, last_movement = $4, updated_at = now()
WHERE id = $1
`, it.ID, it.Quantity, it.Status, it.LastMovement)
	return errors.Wrap(err, "update inventory movement")
}
