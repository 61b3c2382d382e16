package sweeps

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/engines/filings"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/pkg/errors"
)

type FilingsRepo interface {
	ListOpenFilings(ctx context.Context) ([]models.AgencyFiling, error)
	UpdateFilingAutomation(ctx context.Context, f models.AgencyFiling) error
}

// FilingsSweep эскалирует агентские подачи по часовым порогам и рассылает
// алерты по приближающимся срокам.
type FilingsSweep struct {
	repo FilingsRepo
}

func NewFilingsSweep(repo FilingsRepo) *FilingsSweep {
	return &FilingsSweep{repo: repo}
}

func (s *FilingsSweep) Engine() string { return messages.EngineFilings }

func (s *FilingsSweep) RunOnce(ctx context.Context, now time.Time) (Outcome, error) {
	var out Outcome

	open, err := s.repo.ListOpenFilings(ctx)
	if err != nil {
		return out, errors.Wrap(err, "list open filings")
	}
	out.Processed = len(open)

	for _, f := range filings.AutoEscalate(open, now) {
		if err := s.repo.UpdateFilingAutomation(ctx, f); err != nil {
			return out, errors.Wrapf(err, "persist filing %d", f.ID)
		}
		out.Changed++
		out.Alerts = append(out.Alerts, newAlert(
			messages.EngineFilings, "medium", "agency_filing", f.ID, "auto_escalated",
			fmt.Sprintf("%s %s escalated to %s", f.Agency, f.FilingType, f.Status), now))
	}

	for _, ds := range filings.DeadlineCheck(open, now) {
		for _, d := range ds {
			out.Alerts = append(out.Alerts, newAlert(
				messages.EngineFilings, d.Severity, "agency_filing", d.FilingID, d.Code,
				fmt.Sprintf("%s %s: %d days until due", d.Agency, d.FilingType, d.DaysUntilDue), now))
		}
	}
	return out, nil
}
