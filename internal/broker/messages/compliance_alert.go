package messages

import "time"

// Engine names as they appear on the wire.
const (
	EngineDelivery  = "delivery"
	EngineClearance = "clearance"
	EngineFTZ       = "ftz"
	EngineFilings   = "filings"
)

// ComplianceAlert — структурированный алерт движка, публикуется воркером и
// потребляется api для журнала и кэша дашборда.
type ComplianceAlert struct {
	EventID    string    `json:"event_id"`
	Engine     string    `json:"engine"`
	Severity   string    `json:"severity"`
	EntityKind string    `json:"entity_kind,omitempty"`
	EntityID   uint64    `json:"entity_id,omitempty"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	EmittedAt  time.Time `json:"emitted_at"`
}

// SweepCompleted — итог одного прохода движка.
type SweepCompleted struct {
	Engine    string    `json:"engine"`
	SweptAt   time.Time `json:"swept_at"`
	Processed int       `json:"processed"`
	Changed   int       `json:"changed"`
	Alerts    int       `json:"alerts"`
	Error     *string   `json:"error,omitempty"`
}
