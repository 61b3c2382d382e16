package models

import "time"

const (
	FilingStatusDraft       = "draft"
	FilingStatusUrgent      = "urgent"
	FilingStatusSubmitted   = "submitted"
	FilingStatusUnderReview = "under_review"
	FilingStatusApproved    = "approved"
)

const (
	AgencyFDA  = "FDA"
	AgencyUSDA = "USDA"
	AgencyDOT  = "DOT"
	AgencyCPSC = "CPSC"
	AgencyEPA  = "EPA"
	AgencyFCC  = "FCC"
)

type AgencyFiling struct {
	ID            uint64     `json:"id"`
	ShipmentID    uint64     `json:"shipmentId"`
	Agency        string     `json:"agency"`
	FilingType    string     `json:"filingType"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type FilingCreateInput struct {
	ShipmentID uint64     `json:"shipmentId"`
	Agency     string     `json:"agency"`
	FilingType string     `json:"filingType"`
	Priority   string     `json:"priority,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}
