package ftz

import (
	"fmt"
	"math"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/pkg/errors"
)

var ErrInsufficientQuantity = errors.New("movement quantity exceeds on-hand quantity")

// Календарные (не рабочие) дни нахождения в зоне.
const (
	complianceLimitDays = 270 // 9 months of duty deferral
	violationAfterDays  = 330
	planAheadDays       = 240

	lowQuantityThreshold = 10
	consolidateThreshold = 5
	highValueThreshold   = 100_000.0
)

const (
	AlertExpirationWarning   = "expiration_warning"
	AlertLowInventory        = "low_inventory"
	AlertHighValueMonitoring = "high_value_monitoring"
)

const (
	ClassCompliant = "compliant"
	ClassWarning   = "warning"
	ClassViolation = "violation"
)

// DaysInZone = floor((now - entryDate) / 1 day).
func DaysInZone(item models.FTZInventoryItem, now time.Time) int {
	return int(math.Floor(now.Sub(item.EntryDate).Hours() / 24))
}

type DeferralLine struct {
	ItemID      uint64  `json:"itemId"`
	Description string  `json:"description"`
	DaysInZone  int     `json:"daysInZone"`
	Deferral    float64 `json:"deferralAmount"`
	Zone        string  `json:"zone"`
}

type DeferralReport struct {
	Lines         []DeferralLine `json:"lines"`
	TotalDeferred float64        `json:"totalDeferred"`
}

// DutyDeferralReport — строка на каждую позицию плюс сумма отложенных пошлин.
func DutyDeferralReport(items []models.FTZInventoryItem, zones map[uint64]models.FTZZone, now time.Time) DeferralReport {
	r := DeferralReport{Lines: make([]DeferralLine, 0, len(items))}
	for _, it := range items {
		zoneName := fmt.Sprintf("zone %d", it.ZoneID)
		if z, ok := zones[it.ZoneID]; ok {
			zoneName = fmt.Sprintf("FTZ %s (%s)", z.ZoneNumber, z.Name)
		}
		r.Lines = append(r.Lines, DeferralLine{
			ItemID:      it.ID,
			Description: it.Description,
			DaysInZone:  DaysInZone(it, now),
			Deferral:    it.DutyDeferral,
			Zone:        zoneName,
		})
		r.TotalDeferred += it.DutyDeferral
	}
	return r
}

type Alert struct {
	ItemID   uint64 `json:"itemId"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// InventoryAlerts — позиция может породить несколько алертов одновременно.
func InventoryAlerts(items []models.FTZInventoryItem, now time.Time) []Alert {
	alerts := []Alert{}
	for _, it := range items {
		if days := DaysInZone(it, now); days > complianceLimitDays {
			alerts = append(alerts, Alert{
				ItemID:   it.ID,
				Code:     AlertExpirationWarning,
				Severity: "high",
				Message:  fmt.Sprintf("%q in zone for %d days, past the 9-month deferral limit", it.Description, days),
			})
		}
		if it.Quantity < lowQuantityThreshold {
			alerts = append(alerts, Alert{
				ItemID:   it.ID,
				Code:     AlertLowInventory,
				Severity: "medium",
				Message:  fmt.Sprintf("%q quantity down to %d", it.Description, it.Quantity),
			})
		}
		if it.DeclaredValue > highValueThreshold {
			alerts = append(alerts, Alert{
				ItemID:   it.ID,
				Code:     AlertHighValueMonitoring,
				Severity: "low",
				Message:  fmt.Sprintf("%q declared at %.2f %s requires monitoring", it.Description, it.DeclaredValue, it.Currency),
			})
		}
	}
	return alerts
}

type AuditLine struct {
	ItemID         uint64 `json:"itemId"`
	Classification string `json:"classification"`
	DaysInZone     int    `json:"daysInZone"`
	Message        string `json:"message"`
}

type AuditReport struct {
	Compliant int         `json:"compliant"`
	Warning   int         `json:"warning"`
	Violation int         `json:"violation"`
	Lines     []AuditLine `json:"lines"`
}

// ComplianceAudit относит каждую позицию ровно к одному классу:
// compliant ≤ 270 дней, warning 271–330, violation > 330.
func ComplianceAudit(items []models.FTZInventoryItem, now time.Time) AuditReport {
	r := AuditReport{Lines: make([]AuditLine, 0, len(items))}
	for _, it := range items {
		days := DaysInZone(it, now)
		line := AuditLine{ItemID: it.ID, DaysInZone: days}
		switch {
		case days > violationAfterDays:
			r.Violation++
			line.Classification = ClassViolation
			line.Message = fmt.Sprintf("%q at %d days: deferral limit exceeded, immediate action required", it.Description, days)
		case days > complianceLimitDays:
			r.Warning++
			line.Classification = ClassWarning
			line.Message = fmt.Sprintf("%q at %d days: past the 270-day limit, schedule disposition", it.Description, days)
		default:
			r.Compliant++
			line.Classification = ClassCompliant
			line.Message = fmt.Sprintf("%q at %d days: compliant", it.Description, days)
		}
		r.Lines = append(r.Lines, line)
	}
	return r
}

// MovementAlert — единичная рекомендация по позиции, без мутации состояния.
func MovementAlert(item models.FTZInventoryItem, now time.Time) string {
	days := DaysInZone(item, now)
	switch {
	case days > complianceLimitDays:
		return fmt.Sprintf("%q in zone %d days: urgent action required, deferral window exceeded", item.Description, days)
	case days > planAheadDays:
		return fmt.Sprintf("%q in zone %d days: plan disposition within the next 30 days", item.Description, days)
	case item.Quantity < consolidateThreshold:
		return fmt.Sprintf("%q down to %d units: consider consolidating", item.Description, item.Quantity)
	default:
		return fmt.Sprintf("%q within normal parameters", item.Description)
	}
}

// ApplyMovement списывает количество. Статус становится терминальным только
// когда списание исчерпало остаток полностью; transfer статус не меняет.
func ApplyMovement(item models.FTZInventoryItem, movementType string, qty int64, now time.Time) (models.FTZInventoryItem, error) {
	if qty <= 0 {
		return item, errors.New("movement quantity must be positive")
	}
	if qty > item.Quantity {
		return item, ErrInsufficientQuantity
	}

	item.Quantity -= qty
	if item.Quantity == 0 {
		switch movementType {
		case models.MovementExport:
			item.Status = models.ItemStatusExported
		case models.MovementDomestic:
			item.Status = models.ItemStatusDomesticated
		case models.MovementScrap:
			item.Status = models.ItemStatusScrapped
		case models.MovementTransfer:
			// Полный transfer наблюдаемо статус не меняет; открытый вопрос
			// зафиксирован в DESIGN.md.
		}
	}
	item.LastMovement = &now
	return item, nil
}
