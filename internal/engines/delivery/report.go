package delivery

import (
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
)

type Report struct {
	Total       int            `json:"total"`
	Weekly      int            `json:"weekly"`
	SuccessRate float64        `json:"successRate"` // percent over all messages
	ByKind      map[string]int `json:"byKind"`
	ByPartner   map[uint64]int `json:"byPartner"`
}

// BuildReport — агрегат без побочных эффектов.
func BuildReport(msgs []models.OutboundMessage, now time.Time) Report {
	r := Report{
		ByKind:    map[string]int{},
		ByPartner: map[uint64]int{},
	}

	sent := 0
	for _, m := range msgs {
		r.Total++
		if now.Sub(m.CreatedAt) <= successRateWindow {
			r.Weekly++
		}
		if m.Status == models.MessageStatusSent {
			sent++
		}
		r.ByKind[m.TransactionKind]++
		r.ByPartner[m.PartnerID]++
	}
	if r.Total > 0 {
		r.SuccessRate = float64(sent) / float64(r.Total) * 100
	}
	return r
}
