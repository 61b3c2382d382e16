package sweeps

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/stretchr/testify/require"
)

type fakeClearanceRepo struct {
	entries []models.CustomsEntry
	updates map[uint64]models.CustomsEntry
}

func (r *fakeClearanceRepo) ListOpenEntries(ctx context.Context) ([]models.CustomsEntry, error) {
	return r.entries, nil
}

func (r *fakeClearanceRepo) UpdateEntryAutomation(ctx context.Context, e models.CustomsEntry) error {
	if r.updates == nil {
		r.updates = map[uint64]models.CustomsEntry{}
	}
	r.updates[e.ID] = e
	return nil
}

func TestClearanceSweep_RunOnce(t *testing.T) {
	filedAt := sweepNow.Add(-72 * time.Hour)
	repo := &fakeClearanceRepo{entries: []models.CustomsEntry{
		// Полный черновик: теги, пошлина и продвижение в filed.
		{ID: 1, Status: models.EntryStatusDraft, TariffCode: "8517.62.00", DeclaredValue: 25000, Importer: "Vector Imports LLC", Description: "network switches"},
		// Пустой черновик: двигаться некуда.
		{ID: 2, Status: models.EntryStatusDraft},
		// Подана трое суток назад: уходит в under_review.
		{ID: 3, Status: models.EntryStatusFiled, TariffCode: "8517.62.00", DeclaredValue: 1000, Importer: "Vector Imports LLC", Description: "spares", FiledAt: &filedAt},
	}}

	s := NewClearanceSweep(repo, ratetable.New())
	out, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)

	require.Equal(t, 3, out.Processed)
	require.Equal(t, 2, out.Changed)
	require.Len(t, out.Alerts, 2)
	require.Equal(t, "entry_advanced", out.Alerts[0].Code)

	e1 := repo.updates[1]
	require.Equal(t, models.EntryStatusFiled, e1.Status)
	require.Equal(t, 1250.0, e1.DutyAmount)
	require.True(t, e1.HasCheck(models.CheckDutyCalculated))
	require.NotNil(t, e1.FiledAt)
	require.NotNil(t, e1.LastCheckedAt)

	e2 := repo.updates[2]
	require.Equal(t, models.EntryStatusDraft, e2.Status)
	require.Empty(t, e2.ComplianceChecks)
	require.NotNil(t, e2.LastCheckedAt)

	e3 := repo.updates[3]
	require.Equal(t, models.EntryStatusUnderReview, e3.Status)
	require.Equal(t, models.NextActionAwaitingInspection, e3.NextAction)
}

func TestClearanceSweep_NoDutyWithoutDeclaredValue(t *testing.T) {
	repo := &fakeClearanceRepo{entries: []models.CustomsEntry{
		// Код есть, стоимости нет: пошлина не считается, тега duty_calculated
		// нет, и двух тегов не хватает для продвижения из draft.
		{ID: 1, Status: models.EntryStatusDraft, TariffCode: "8517.62.00", Importer: "Vector Imports LLC"},
	}}

	s := NewClearanceSweep(repo, ratetable.New())
	out, err := s.RunOnce(context.Background(), sweepNow)
	require.NoError(t, err)
	require.Equal(t, 0, out.Changed)

	e := repo.updates[1]
	require.Equal(t, models.EntryStatusDraft, e.Status)
	require.Equal(t, 0.0, e.DutyAmount)
	require.False(t, e.HasCheck(models.CheckDutyCalculated))
	require.ElementsMatch(t, []string{models.CheckHTSValid, models.CheckImporterIdentified}, e.ComplianceChecks)
}
