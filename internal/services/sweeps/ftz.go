package sweeps

import (
	"context"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/engines/ftz"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/pkg/errors"
)

type FTZRepo interface {
	ListInZoneItems(ctx context.Context) ([]models.FTZInventoryItem, error)
}

// FTZSweep — читающий проход по активному инвентарю зон: инвентарные алерты
// плюс нарушения 330-дневного порога из аудита. Состояние позиций меняют
// только движения, свип его не трогает.
type FTZSweep struct {
	repo FTZRepo
}

func NewFTZSweep(repo FTZRepo) *FTZSweep {
	return &FTZSweep{repo: repo}
}

func (s *FTZSweep) Engine() string { return messages.EngineFTZ }

func (s *FTZSweep) RunOnce(ctx context.Context, now time.Time) (Outcome, error) {
	var out Outcome

	items, err := s.repo.ListInZoneItems(ctx)
	if err != nil {
		return out, errors.Wrap(err, "list in-zone items")
	}
	out.Processed = len(items)

	for _, a := range ftz.InventoryAlerts(items, now) {
		out.Alerts = append(out.Alerts, newAlert(
			messages.EngineFTZ, a.Severity, "ftz_item", a.ItemID, a.Code, a.Message, now))
	}

	audit := ftz.ComplianceAudit(items, now)
	for _, line := range audit.Lines {
		if line.Classification != ftz.ClassViolation {
			continue
		}
		out.Alerts = append(out.Alerts, newAlert(
			messages.EngineFTZ, "critical", "ftz_item", line.ItemID, "audit_violation", line.Message, now))
	}
	return out, nil
}
