package delivery

import (
	"fmt"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
)

const (
	AlertOverdue     = "overdue"
	AlertConnection  = "connection"
	AlertSuccessRate = "success_rate"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	overdueAfter         = 24 * time.Hour
	connectionStaleAfter = 24 * time.Hour
	successRateWindow    = 7 * 24 * time.Hour
	successRateThreshold = 80.0 // percent
)

type Alert struct {
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	MessageID uint64 `json:"messageId,omitempty"`
	PartnerID uint64 `json:"partnerId,omitempty"`
}

// Monitor — чисто читающий скан: просроченные pending, "молчащие" партнёры и
// success rate за последние 7 дней. Пустой список при здоровом состоянии.
func Monitor(msgs []models.OutboundMessage, partners []models.TradingPartner, now time.Time) []Alert {
	alerts := []Alert{}

	for _, m := range msgs {
		if m.Status != models.MessageStatusPending {
			continue
		}
		if now.Sub(m.CreatedAt) > overdueAfter {
			alerts = append(alerts, Alert{
				Kind:      AlertOverdue,
				Severity:  SeverityHigh,
				Message:   fmt.Sprintf("message %d (%s) pending for more than 24h", m.ID, m.TransactionKind),
				MessageID: m.ID,
				PartnerID: m.PartnerID,
			})
		}
	}

	for _, p := range partners {
		if p.LastConnection == nil || now.Sub(*p.LastConnection) > connectionStaleAfter {
			alerts = append(alerts, Alert{
				Kind:      AlertConnection,
				Severity:  SeverityMedium,
				Message:   fmt.Sprintf("no connection from partner %q for more than 24h", p.Name),
				PartnerID: p.ID,
			})
		}
	}

	recent, sent := 0, 0
	for _, m := range msgs {
		if now.Sub(m.CreatedAt) > successRateWindow {
			continue
		}
		recent++
		if m.Status == models.MessageStatusSent {
			sent++
		}
	}
	if recent > 0 {
		pct := float64(sent) / float64(recent) * 100
		if pct < successRateThreshold {
			alerts = append(alerts, Alert{
				Kind:     AlertSuccessRate,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("7-day delivery success rate %.1f%% below %.0f%%", pct, successRateThreshold),
			})
		}
	}

	return alerts
}
