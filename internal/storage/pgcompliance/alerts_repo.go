package pgcompliance

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/pkg/errors"
)

// AppendAlerts пишет алерт-события в журнал. Повторная доставка того же
// event_id из Kafka молча игнорируется (at-least-once у консьюмера).
func (s *Storage) AppendAlerts(ctx context.Context, alerts []messages.ComplianceAlert) error {
	now := time.Now().UTC()
	for _, a := range alerts {
		_, err := s.db.Exec(ctx, `
INSERT INTO compliance_alerts (
  event_id, engine, severity, entity_kind, entity_id, code, message, emitted_at, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (event_id) DO NOTHING
`, a.EventID, a.Engine, a.Severity, a.EntityKind, a.EntityID, a.Code, a.Message, a.EmittedAt.UTC(), now)
		if err != nil {
			return errors.Wrap(err, "insert alert")
		}
	}
	return nil
}

func (s *Storage) ListRecentAlerts(ctx context.Context, limit int) ([]messages.ComplianceAlert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
SELECT event_id, engine, severity, entity_kind, entity_id, code, message, emitted_at
FROM compliance_alerts
ORDER BY emitted_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select alerts")
	}
	defer rows.Close()

	var out []messages.ComplianceAlert
	for rows.Next() {
		var a messages.ComplianceAlert
		if err := rows.Scan(&a.EventID, &a.Engine, &a.Severity, &a.EntityKind, &a.EntityID, &a.Code, &a.Message, &a.EmittedAt); err != nil {
			return nil, errors.Wrap(err, "scan alert")
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
