package models

import "time"

const (
	CommMethodAS2  = "AS2"
	CommMethodSFTP = "SFTP"
	CommMethodVAN  = "VAN"
	CommMethodAPI  = "API"
)

// RoutingRules — партнёрские правила маршрутизации. Присутствие объекта сейчас
// означает "отправлять всегда" (см. delivery.ShouldSend).
type RoutingRules struct {
	Window   string `json:"window,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// TradingPartner is configuration-owned reference data. Engines only read it,
// except for LastConnection bookkeeping.
type TradingPartner struct {
	ID                    uint64        `json:"id"`
	Name                  string        `json:"name"`
	EDIID                 string        `json:"ediId"`
	CommMethod            string        `json:"commMethod"`
	Active                bool          `json:"active"`
	SupportedTransactions []string      `json:"supportedTransactions"`
	RoutingRules          *RoutingRules `json:"routingRules,omitempty"`
	LastConnection        *time.Time    `json:"lastConnection,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

func (p *TradingPartner) Supports(transactionKind string) bool {
	for _, k := range p.SupportedTransactions {
		if k == transactionKind {
			return true
		}
	}
	return false
}
