package sweeps

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/engines/clearance"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/pkg/errors"
)

type ClearanceRepo interface {
	ListOpenEntries(ctx context.Context) ([]models.CustomsEntry, error)
	UpdateEntryAutomation(ctx context.Context, e models.CustomsEntry) error
}

// ClearanceSweep прогоняет открытые таможенные записи через проверку тегов,
// расчёт пошлины и автопродвижение статуса.
type ClearanceSweep struct {
	repo  ClearanceRepo
	rates *ratetable.Table
}

func NewClearanceSweep(repo ClearanceRepo, rates *ratetable.Table) *ClearanceSweep {
	return &ClearanceSweep{repo: repo, rates: rates}
}

func (s *ClearanceSweep) Engine() string { return messages.EngineClearance }

func (s *ClearanceSweep) RunOnce(ctx context.Context, now time.Time) (Outcome, error) {
	var out Outcome

	entries, err := s.repo.ListOpenEntries(ctx)
	if err != nil {
		return out, errors.Wrap(err, "list open entries")
	}
	out.Processed = len(entries)

	for _, e := range entries {
		before := e.Status

		e = clearance.RunComplianceCheck(e, now)
		// Пошлина пересчитывается только при наличии и кода, и стоимости:
		// расчёт от нулевой стоимости навесил бы тег duty_calculated и
		// продвинул запись раньше времени.
		if e.TariffCode != "" && e.DeclaredValue > 0 {
			withDuty, err := clearance.CalculateDuty(e, s.rates, now)
			if err != nil {
				return out, errors.Wrapf(err, "calculate duty for entry %d", e.ID)
			}
			e = withDuty
		}
		e, moved := clearance.AutoAdvance(e, now)

		if err := s.repo.UpdateEntryAutomation(ctx, e); err != nil {
			return out, errors.Wrapf(err, "persist entry %d", e.ID)
		}

		if moved {
			out.Changed++
			out.Alerts = append(out.Alerts, newAlert(
				messages.EngineClearance, "low", "customs_entry", e.ID, "entry_advanced",
				fmt.Sprintf("entry %d advanced %s -> %s", e.ID, before, e.Status), now))
		}
	}
	return out, nil
}
