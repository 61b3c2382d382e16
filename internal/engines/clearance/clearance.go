package clearance

import (
	"math"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/pkg/errors"
)

var ErrMissingClassification = errors.New("tariff classification code is required")

const (
	minTariffCodeLen = 8

	checksToFile  = 3
	checksToClear = 4

	reviewAfterFiled = 48 * time.Hour // > 2 days since filing
)

// RunComplianceCheck выводит набор тегов из присутствующих полей записи.
// Набор заменяется целиком: одинаковый вход всегда даёт одинаковые теги.
func RunComplianceCheck(e models.CustomsEntry, now time.Time) models.CustomsEntry {
	checks := []string{}
	if len(e.TariffCode) >= minTariffCodeLen {
		checks = append(checks, models.CheckHTSValid)
	}
	if e.DeclaredValue > 0 {
		checks = append(checks, models.CheckValueDeclared)
	}
	if e.Importer != "" {
		checks = append(checks, models.CheckImporterIdentified)
	}
	if e.Description != "" {
		checks = append(checks, models.CheckDescriptionComplete)
	}

	e.ComplianceChecks = checks
	e.LastCheckedAt = &now
	return e
}

// CalculateDuty считает адвалорную пошлину по таблице ставок. Без кода
// классификации считать нечего — ErrMissingClassification. Операция
// детерминирована и идемпотентна.
func CalculateDuty(e models.CustomsEntry, rates *ratetable.Table, now time.Time) (models.CustomsEntry, error) {
	if e.TariffCode == "" {
		return e, ErrMissingClassification
	}

	rate, _ := rates.Rate(e.TariffCode)
	e.DutyAmount = math.Round(e.DeclaredValue * rate / 100)
	if !e.HasCheck(models.CheckDutyCalculated) {
		e.ComplianceChecks = append(e.ComplianceChecks, models.CheckDutyCalculated)
	}
	e.LastCheckedAt = &now
	return e, nil
}

// AutoAdvance — правило продвижения статуса, один шаг за вызов, состояния не
// перепрыгиваются. Возвращает запись и признак сработавшего перехода.
func AutoAdvance(e models.CustomsEntry, now time.Time) (models.CustomsEntry, bool) {
	switch e.Status {
	case models.EntryStatusDraft:
		if len(e.ComplianceChecks) >= checksToFile {
			e.Status = models.EntryStatusFiled
			e.NextAction = models.NextActionAwaitingReview
			e.FiledAt = &now
			return e, true
		}
	case models.EntryStatusFiled:
		if e.FiledAt != nil && now.Sub(*e.FiledAt) > reviewAfterFiled {
			e.Status = models.EntryStatusUnderReview
			e.NextAction = models.NextActionAwaitingInspection
			return e, true
		}
	case models.EntryStatusUnderReview:
		if len(e.ComplianceChecks) >= checksToClear {
			e.Status = models.EntryStatusCleared
			e.NextAction = models.NextActionCompleted
			e.ClearedAt = &now
			return e, true
		}
	}
	return e, false
}
