package sweeps

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ComplianceBox/internal/engines/filings"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeFilingsRepo struct {
	filings []models.AgencyFiling
	updates map[uint64]models.AgencyFiling
}

func (r *fakeFilingsRepo) ListOpenFilings(ctx context.Context) ([]models.AgencyFiling, error) {
	return r.filings, nil
}

func (r *fakeFilingsRepo) UpdateFilingAutomation(ctx context.Context, f models.AgencyFiling) error {
	if r.updates == nil {
		r.updates = map[uint64]models.AgencyFiling{}
	}
	r.updates[f.ID] = f
	return nil
}

func TestFilingsSweep_RunOnce(t *testing.T) {
	dueSoon := sweepNow.Add(12 * time.Hour)
	dueFar := sweepNow.Add(30 * 24 * time.Hour)
	submitted := sweepNow.Add(-6 * 24 * time.Hour)

	repo := &fakeFilingsRepo{filings: []models.AgencyFiling{
		// Срок меньше суток: draft уходит в urgent.
		{ID: 1, ShipmentID: 10, Agency: models.AgencyFDA, FilingType: "prior_notice", Status: models.FilingStatusDraft, DueDate: &dueSoon},
		// Далёкий срок: автоматика не трогает.
		{ID: 2, ShipmentID: 11, Agency: models.AgencyEPA, FilingType: "tsca_cert", Status: models.FilingStatusDraft, DueDate: &dueFar},
		// Шесть дней после подачи: submitted уходит в under_review.
		{ID: 3, ShipmentID: 12, Agency: models.AgencyDOT, FilingType: "hs7", Status: models.FilingStatusSubmitted, SubmittedAt: &submitted, DueDate: &dueFar},
	}}

	s := NewFilingsSweep(repo)
	out, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)

	require.Equal(t, 3, out.Processed)
	require.Equal(t, 2, out.Changed)
	require.Len(t, repo.updates, 2)

	f1 := repo.updates[1]
	require.Equal(t, models.FilingStatusUrgent, f1.Status)
	require.NotNil(t, f1.SubmittedAt)
	require.NotNil(t, f1.LastCheckedAt)

	f3 := repo.updates[3]
	require.Equal(t, models.FilingStatusUnderReview, f3.Status)

	var escalated, deadline int
	for _, a := range out.Alerts {
		switch a.Code {
		case "auto_escalated":
			escalated++
		case filings.CodeDueToday:
			// Подача 1: до срока 12 часов, floor даёт 0 дней.
			deadline++
			require.Equal(t, uint64(1), a.EntityID)
		default:
			t.Fatalf("unexpected alert code %q", a.Code)
		}
	}
	require.Equal(t, 2, escalated)
	require.Equal(t, 1, deadline)
}
