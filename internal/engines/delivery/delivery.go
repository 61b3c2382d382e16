package delivery

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/pkg/errors"
)

// Transport — внешняя способность доставки (EDI-шлюз). false без ошибки значит
// "шлюз отказал в доставке", ошибка значит "шлюз недоступен" (фатально для свипа).
type Transport interface {
	Send(ctx context.Context, msg models.OutboundMessage) (bool, error)
}

type Engine struct {
	transport Transport
}

func New(transport Transport) *Engine {
	return &Engine{transport: transport}
}

type RetryResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Exhausted int

	// Updated contains only the messages whose fields changed.
	Updated []models.OutboundMessage
}

// RetryFailed пытается повторно доставить каждое failed-сообщение с
// retryCount < MaxRetryCount. Индивидуальный отказ доставки не ошибка:
// инкрементируем retryCount и идём дальше. Ошибка транспорта — фатальна,
// но уже применённые изменения сохраняются в частичном результате.
func (e *Engine) RetryFailed(ctx context.Context, msgs []models.OutboundMessage) (RetryResult, error) {
	var res RetryResult
	for _, m := range msgs {
		if m.Status != models.MessageStatusFailed {
			continue
		}
		if m.RetryCount >= models.MaxRetryCount {
			// Terminal failure: report, never retry.
			res.Exhausted++
			continue
		}

		res.Attempted++
		delivered, err := e.transport.Send(ctx, m)
		if err != nil {
			return res, errors.Wrap(err, "transport send")
		}
		if delivered {
			m.Status = models.MessageStatusSent
			res.Succeeded++
		} else {
			m.RetryCount++
			res.Failed++
		}
		res.Updated = append(res.Updated, m)
	}
	return res, nil
}

type RouteResult struct {
	Routed             int
	Held               int
	SkippedNoPartner   int
	SkippedUnsupported int

	Updated []models.OutboundMessage
}

// RoutePending разрешает партнёра для каждого pending-сообщения и отправляет
// те, что проходят ShouldSend. Неразрешимый партнёр или неподдерживаемый тип
// транзакции — это skip, не ошибка. Непрошедшие окно остаются pending до
// следующего свипа.
func (e *Engine) RoutePending(ctx context.Context, msgs []models.OutboundMessage, partners []models.TradingPartner, now time.Time) (RouteResult, error) {
	byID := make(map[uint64]models.TradingPartner, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	var res RouteResult
	for _, m := range msgs {
		if m.Status != models.MessageStatusPending {
			continue
		}

		p, ok := byID[m.PartnerID]
		if !ok {
			res.SkippedNoPartner++
			continue
		}
		if !p.Supports(m.TransactionKind) {
			res.SkippedUnsupported++
			continue
		}
		if !ShouldSend(m, p, now) {
			res.Held++
			continue
		}

		delivered, err := e.transport.Send(ctx, m)
		if err != nil {
			return res, errors.Wrap(err, "transport send")
		}
		if delivered {
			m.Status = models.MessageStatusSent
		} else {
			m.Status = models.MessageStatusFailed
		}
		res.Routed++
		res.Updated = append(res.Updated, m)
	}
	return res, nil
}
