package sweeps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/engines/delivery"
	"github.com/BearBump/ComplianceBox/internal/integrations/edigateway"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func newAlert(engine, severity, entityKind string, entityID uint64, code, msg string, now time.Time) messages.ComplianceAlert {
	return messages.ComplianceAlert{
		EventID:    uuid.NewString(),
		Engine:     engine,
		Severity:   severity,
		EntityKind: entityKind,
		EntityID:   entityID,
		Code:       code,
		Message:    msg,
		EmittedAt:  now,
	}
}

// throttledTransport ограничивает частоту обращений к EDI-шлюзу по партнёру.
// Ключ — партнёр и текущая минута; превышение лимита не роняет свип,
// а коротко притормаживает его.
type throttledTransport struct {
	gw        edigateway.Client
	rl        RateLimiter
	perMinute int64
}

func (t *throttledTransport) Send(ctx context.Context, msg models.OutboundMessage) (bool, error) {
	if t.rl != nil && t.perMinute > 0 {
		minuteKey := fmt.Sprintf("rl:partner:%d:%s", msg.PartnerID, time.Now().UTC().Format("200601021504"))
		allowed, n, err := t.rl.Allow(ctx, minuteKey, t.perMinute, 70*time.Second)
		if err != nil {
			return false, errors.Wrap(err, "rate limiter")
		}
		if !allowed {
			slog.Warn("rate limit exceeded", "partner_id", msg.PartnerID, "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}
	return t.gw.Send(ctx, msg)
}

type DeliveryRepo interface {
	ClaimDueMessages(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.OutboundMessage, error)
	UpdateMessageDelivery(ctx context.Context, m models.OutboundMessage) error
	TouchPartnerConnection(ctx context.Context, partnerID uint64, at time.Time) error
	ListPartners(ctx context.Context) ([]models.TradingPartner, error)
	ListMessages(ctx context.Context, limit, offset int) ([]models.OutboundMessage, error)
}

// DeliverySweep — проход по недоставленным EDI-сообщениям: повторы для failed,
// маршрутизация pending и мониторинг здоровья обмена.
type DeliverySweep struct {
	repo    DeliveryRepo
	engine  *delivery.Engine
	planner *Planner

	batchSize    int
	lease        time.Duration
	monitorLimit int
}

func NewDeliverySweep(repo DeliveryRepo, gw edigateway.Client, rl RateLimiter, rlPerMinute int64) *DeliverySweep {
	return &DeliverySweep{
		repo:         repo,
		engine:       delivery.New(&throttledTransport{gw: gw, rl: rl, perMinute: rlPerMinute}),
		planner:      DefaultPlanner(),
		batchSize:    100,
		lease:        120 * time.Second,
		monitorLimit: 1000,
	}
}

func (s *DeliverySweep) WithSettings(batchSize int, lease time.Duration, planner PlannerConfig) *DeliverySweep {
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if lease > 0 {
		s.lease = lease
	}
	s.planner = NewPlanner(planner)
	return s
}

func (s *DeliverySweep) Engine() string { return messages.EngineDelivery }

func (s *DeliverySweep) RunOnce(ctx context.Context, now time.Time) (Outcome, error) {
	var out Outcome

	claimed, err := s.repo.ClaimDueMessages(ctx, now, s.batchSize, s.lease)
	if err != nil {
		return out, errors.Wrap(err, "claim due messages")
	}
	out.Processed = len(claimed)

	partners, err := s.repo.ListPartners(ctx)
	if err != nil {
		return out, errors.Wrap(err, "list partners")
	}

	retryRes, retryErr := s.engine.RetryFailed(ctx, claimed)
	routeRes, routeErr := delivery.RouteResult{}, error(nil)
	if retryErr == nil {
		routeRes, routeErr = s.engine.RoutePending(ctx, claimed, partners, now)
	}

	// Исходы движка применяем по одной записи: транспортная ошибка на
	// середине не откатывает уже успешные доставки.
	updatedIDs := map[uint64]struct{}{}
	deliveredPartners := map[uint64]struct{}{}
	for _, m := range append(retryRes.Updated, routeRes.Updated...) {
		updatedIDs[m.ID] = struct{}{}
		switch m.Status {
		case models.MessageStatusSent:
			m.NextAttemptAt = now
			deliveredPartners[m.PartnerID] = struct{}{}
		default:
			m.NextAttemptAt = now.Add(s.planner.BackoffDelay(m.RetryCount))
		}
		if err := s.repo.UpdateMessageDelivery(ctx, m); err != nil {
			return out, errors.Wrap(err, "persist delivery outcome")
		}
		out.Changed++
	}

	// Успешный обмен со шлюзом — это и есть связь с партнёром; без отметки
	// Monitor вечно жаловался бы на lastConnection.
	for partnerID := range deliveredPartners {
		if err := s.repo.TouchPartnerConnection(ctx, partnerID, now); err != nil {
			slog.Warn("touch partner connection", "partner_id", partnerID, "error", err)
		}
	}

	// Непосланные остаются в очереди, но паркуются, чтобы не крутиться
	// вхолостую: held — до следующего окна, exhausted — надолго.
	for _, m := range claimed {
		if _, ok := updatedIDs[m.ID]; ok {
			continue
		}
		switch {
		case m.Status == models.MessageStatusFailed && m.RetryCount >= models.MaxRetryCount:
			m.NextAttemptAt = now.Add(s.planner.ExhaustedDelay())
		case m.Status == models.MessageStatusPending:
			m.NextAttemptAt = now.Add(s.planner.HoldDelay())
		default:
			continue
		}
		if err := s.repo.UpdateMessageDelivery(ctx, m); err != nil {
			return out, errors.Wrap(err, "park message")
		}
	}

	if retryErr != nil {
		return out, errors.Wrap(retryErr, "retry failed messages")
	}
	if routeErr != nil {
		return out, errors.Wrap(routeErr, "route pending messages")
	}

	snapshot, err := s.repo.ListMessages(ctx, s.monitorLimit, 0)
	if err != nil {
		return out, errors.Wrap(err, "list messages for monitor")
	}
	for _, a := range delivery.Monitor(snapshot, partners, now) {
		kind, id := "", uint64(0)
		switch {
		case a.MessageID != 0:
			kind, id = "message", a.MessageID
		case a.PartnerID != 0:
			kind, id = "partner", a.PartnerID
		}
		out.Alerts = append(out.Alerts, newAlert(messages.EngineDelivery, a.Severity, kind, id, a.Kind, a.Message, now))
	}
	return out, nil
}
