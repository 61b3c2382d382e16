package pgcompliance

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/pkg/errors"
)

// UpsertPartner создаёт партнёра или обновляет его конфигурацию по edi_id.
// Партнёры приходят из конфигурации/онбординга, движки их только читают.
func (s *Storage) UpsertPartner(ctx context.Context, p models.TradingPartner) (*models.TradingPartner, error) {
	now := time.Now().UTC()

	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO trading_partners (
  name, edi_id, comm_method, active, supported_transactions, routing_rules, last_connection, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
ON CONFLICT (edi_id)
DO UPDATE SET
  name = EXCLUDED.name,
  comm_method = EXCLUDED.comm_method,
  active = EXCLUDED.active,
  supported_transactions = EXCLUDED.supported_transactions,
  routing_rules = EXCLUDED.routing_rules,
  updated_at = EXCLUDED.updated_at
RETURNING id
`, p.Name, p.EDIID, p.CommMethod, p.Active, p.SupportedTransactions, p.RoutingRules, p.LastConnection, now).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "upsert partner")
	}

	ps, err := s.getPartnersByIDs(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	if len(ps) != 1 {
		return nil, errors.New("partner not found after upsert")
	}
	return ps[0], nil
}

func (s *Storage) ListPartners(ctx context.Context) ([]models.TradingPartner, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, name, edi_id, comm_method, active,
  supported_transactions, routing_rules, last_connection,
  created_at, updated_at
FROM trading_partners
ORDER BY id
`)
	if err != nil {
		return nil, errors.Wrap(err, "select partners")
	}
	defer rows.Close()

	var out []models.TradingPartner
	for rows.Next() {
		var p models.TradingPartner
		if err := rows.Scan(
			&p.ID, &p.Name, &p.EDIID, &p.CommMethod, &p.Active,
			&p.SupportedTransactions, &p.RoutingRules, &p.LastConnection,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan partner")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) getPartnersByIDs(ctx context.Context, ids []uint64) ([]*models.TradingPartner, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, name, edi_id, comm_method, active,
  supported_transactions, routing_rules, last_connection,
  created_at, updated_at
FROM trading_partners
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select partners by ids")
	}
	defer rows.Close()

	out := make([]*models.TradingPartner, 0, len(ids))
	for rows.Next() {
		var p models.TradingPartner
		if err := rows.Scan(
			&p.ID, &p.Name, &p.EDIID, &p.CommMethod, &p.Active,
			&p.SupportedTransactions, &p.RoutingRules, &p.LastConnection,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan partner")
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// TouchPartnerConnection — bookkeeping по lastConnection после успешной
// доставки через шлюз партнёра.
func (s *Storage) TouchPartnerConnection(ctx context.Context, partnerID uint64, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE trading_partners SET last_connection = $2, updated_at = now() WHERE id = $1`, partnerID, at.UTC())
	return errors.Wrap(err, "touch partner connection")
}
