package delivery

import (
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
)

const (
	businessHoursStart = 9  // 09:00 local
	businessHoursEnd   = 18 // up to 18:00 local
)

// ShouldSend — детерминированный предикат маршрутизации.
//
// urgent отправляем всегда. Партнёрский routing-rules объект, если задан,
// пока трактуется как безусловное разрешение (упрощение, ждёт продуктового
// решения). Остальное — только в рабочие часы 09:00–18:00 и только в будни;
// high дополнительно разрешён по выходным.
func ShouldSend(msg models.OutboundMessage, partner models.TradingPartner, now time.Time) bool {
	if msg.Priority == models.MessagePriorityUrgent {
		return true
	}
	if partner.RoutingRules != nil {
		return true
	}

	h := now.Hour()
	if h < businessHoursStart || h >= businessHoursEnd {
		return false
	}

	wd := now.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return msg.Priority == models.MessagePriorityHigh
	}
	return true
}
