package models

import "time"

const (
	ZoneStatusActive   = "active"
	ZoneStatusInactive = "inactive"
)

const (
	ItemStatusInZone       = "in_zone"
	ItemStatusExported     = "exported"
	ItemStatusDomesticated = "domesticated"
	ItemStatusScrapped     = "scrapped"
)

// Movement types. Transfer перемещает остаток между зонами и статус не меняет.
const (
	MovementExport   = "export"
	MovementDomestic = "domestic_entry"
	MovementScrap    = "scrap"
	MovementTransfer = "transfer"
)

// FTZZone is static reference data for inventory items.
type FTZZone struct {
	ID            uint64  `json:"id"`
	ZoneNumber    string  `json:"zoneNumber"`
	Name          string  `json:"name"`
	Location      string  `json:"location,omitempty"`
	Operator      string  `json:"operator,omitempty"`
	Status        string  `json:"status"`
	TotalArea     float64 `json:"totalArea,omitempty"`
	AvailableArea float64 `json:"availableArea,omitempty"`
}

type FTZInventoryItem struct {
	ID            uint64     `json:"id"`
	ZoneID        uint64     `json:"zoneId"`
	ShipmentID    uint64     `json:"shipmentId"`
	Description   string     `json:"description"`
	Quantity      int64      `json:"quantity"`
	DeclaredValue float64    `json:"declaredValue"`
	Currency      string     `json:"currency"`
	DutyDeferral  float64    `json:"dutyDeferral"`
	EntryDate     time.Time  `json:"entryDate"`
	LastMovement  *time.Time `json:"lastMovement,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
