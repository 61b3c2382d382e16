package pgcompliance

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const messageColumns = `
  id, transaction_kind, partner_id, status, retry_count, priority,
  next_attempt_at, created_at, updated_at`

func scanMessage(row pgx.Row) (*models.OutboundMessage, error) {
	var m models.OutboundMessage
	if err := row.Scan(
		&m.ID, &m.TransactionKind, &m.PartnerID, &m.Status, &m.RetryCount, &m.Priority,
		&m.NextAttemptAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan message")
	}
	return &m, nil
}

// CreateMessages кладёт новые сообщения в статусе pending, готовые к
// маршрутизации немедленно. Сами payload'ы строит внешний слой.
func (s *Storage) CreateMessages(ctx context.Context, items []models.MessageCreateInput) ([]*models.OutboundMessage, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		priority := it.Priority
		if priority == "" {
			priority = models.MessagePriorityNormal
		}
		var id uint64
		err := tx.QueryRow(ctx, `
INSERT INTO outbound_messages (
  transaction_kind, partner_id, status, priority, next_attempt_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$5,$5)
RETURNING id
`, it.TransactionKind, it.PartnerID, models.MessageStatusPending, priority, now).Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "insert message")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return s.GetMessagesByIDs(ctx, ids)
}

func (s *Storage) GetMessagesByIDs(ctx context.Context, ids []uint64) ([]*models.OutboundMessage, error) {
	if len(ids) == 0 {
		return []*models.OutboundMessage{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT`+messageColumns+` FROM outbound_messages WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	defer rows.Close()

	out := make([]*models.OutboundMessage, 0, len(ids))
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ListMessages отдаёт снапшот для monitor/report (включая терминальные).
func (s *Storage) ListMessages(ctx context.Context, limit, offset int) ([]models.OutboundMessage, error) {
	if limit <= 0 || limit > 10_000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT`+messageColumns+`
FROM outbound_messages
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	defer rows.Close()

	var out []models.OutboundMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ClaimDueMessages выбирает пачку недоставленных сообщений, готовых к
// обработке, и "бронирует" их сдвигом next_attempt_at, чтобы параллельный
// свип их не подхватил. SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueMessages(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.OutboundMessage, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT`+messageColumns+`
FROM outbound_messages
WHERE next_attempt_at <= $1
  AND status <> $2
ORDER BY next_attempt_at ASC
LIMIT $3
FOR UPDATE SKIP LOCKED
`, now.UTC(), models.MessageStatusSent, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due messages")
	}
	defer rows.Close()

	var picked []models.OutboundMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		picked = append(picked, *m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for i := range picked {
		_, err := tx.Exec(ctx, `UPDATE outbound_messages SET next_attempt_at = $2, updated_at = now() WHERE id = $1`, picked[i].ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease message")
		}
		picked[i].NextAttemptAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

// UpdateMessageDelivery применяет исход одной попытки доставки.
// Обновления идут по одной записи: упавший на середине свип не портит
// уже применённые исходы.
func (s *Storage) UpdateMessageDelivery(ctx context.Context, m models.OutboundMessage) error {
	_, err := s.db.Exec(ctx, `
UPDATE outbound_messages
SET status = $2, retry_count = $3, next_attempt_at = $4, updated_at = now()
WHERE id = $1
`, m.ID, m.Status, m.RetryCount, m.NextAttemptAt.UTC())
	return errors.Wrap(err, "update message delivery")
}

// RefreshMessage делает сообщение немедленно доступным для следующего свипа
// (операторское "run automated check now").
func (s *Storage) RefreshMessage(ctx context.Context, messageID uint64) error {
	_, err := s.db.Exec(ctx, `UPDATE outbound_messages SET next_attempt_at = now(), updated_at = now() WHERE id = $1 AND status <> 'sent'`, messageID)
	return errors.Wrap(err, "refresh message")
}
