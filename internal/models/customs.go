package models

import "time"

const (
	EntryStatusDraft       = "draft"
	EntryStatusFiled       = "filed"
	EntryStatusUnderReview = "under_review"
	EntryStatusCleared     = "cleared"
)

// Compliance-check tags. Derived from entry fields, append-only within a status.
const (
	CheckHTSValid            = "hts_valid"
	CheckValueDeclared       = "value_declared"
	CheckImporterIdentified  = "importer_identified"
	CheckDescriptionComplete = "description_complete"
	CheckDutyCalculated      = "duty_calculated"
)

const (
	NextActionAwaitingReview     = "awaiting_review"
	NextActionAwaitingInspection = "awaiting_inspection"
	NextActionCompleted          = "completed"
)

type CustomsEntry struct {
	ID               uint64     `json:"id"`
	ShipmentID       uint64     `json:"shipmentId"`
	EntryType        string     `json:"entryType"`
	Port             string     `json:"port"`
	Country          string     `json:"country"`
	Status           string     `json:"status"`
	TariffCode       string     `json:"tariffCode"`
	DeclaredValue    float64    `json:"declaredValue"`
	DutyAmount       float64    `json:"dutyAmount"`
	Importer         string     `json:"importer"`
	Description      string     `json:"description"`
	ComplianceChecks []string   `json:"complianceChecks"`
	NextAction       string     `json:"nextAction,omitempty"`
	FiledAt          *time.Time `json:"filedAt,omitempty"`
	ClearedAt        *time.Time `json:"clearedAt,omitempty"`
	LastCheckedAt    *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (e *CustomsEntry) HasCheck(tag string) bool {
	for _, c := range e.ComplianceChecks {
		if c == tag {
			return true
		}
	}
	return false
}

type EntryCreateInput struct {
	ShipmentID    uint64  `json:"shipmentId"`
	EntryType     string  `json:"entryType"`
	Port          string  `json:"port"`
	Country       string  `json:"country"`
	TariffCode    string  `json:"tariffCode"`
	DeclaredValue float64 `json:"declaredValue"`
	Importer      string  `json:"importer"`
	Description   string  `json:"description"`
}
