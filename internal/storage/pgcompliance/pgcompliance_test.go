package pgcompliance

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "compliancebox_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/compliancebox_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGCompliance_RepoFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	// Партнёры: upsert идемпотентен по edi_id.
	p, err := st.UpsertPartner(ctx, models.TradingPartner{
		Name:                  "ACME Logistics",
		EDIID:                 "ACMELOG",
		CommMethod:            models.CommMethodAS2,
		Active:                true,
		SupportedTransactions: []string{models.TransactionStatusUpdate, models.TransactionInvoice},
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	again, err := st.UpsertPartner(ctx, models.TradingPartner{
		Name: "ACME Logistics GmbH", EDIID: "ACMELOG", CommMethod: models.CommMethodAS2, Active: true,
		SupportedTransactions: []string{models.TransactionStatusUpdate},
	})
	require.NoError(t, err)
	require.Equal(t, p.ID, again.ID)
	require.Equal(t, "ACME Logistics GmbH", again.Name)

	partners, err := st.ListPartners(ctx)
	require.NoError(t, err)
	require.Len(t, partners, 1)

	now := time.Now().UTC()
	require.NoError(t, st.TouchPartnerConnection(ctx, p.ID, now))

	// Сообщения: create → claim с lease → update.
	created, err := st.CreateMessages(ctx, []models.MessageCreateInput{
		{TransactionKind: models.TransactionStatusUpdate, PartnerID: p.ID, Priority: models.MessagePriorityUrgent},
		{TransactionKind: models.TransactionInvoice, PartnerID: p.ID},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, models.MessageStatusPending, created[0].Status)

	lease := 10 * time.Second
	due, err := st.ClaimDueMessages(ctx, now.Add(time.Minute), 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 2)

	// Забронированные не попадают в повторную выборку.
	due2, err := st.ClaimDueMessages(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Empty(t, due2)

	m := due[0]
	m.Status = models.MessageStatusFailed
	m.RetryCount = 1
	m.NextAttemptAt = now.Add(5 * time.Minute)
	require.NoError(t, st.UpdateMessageDelivery(ctx, m))

	require.NoError(t, st.RefreshMessage(ctx, m.ID))
	refreshed, err := st.GetMessagesByIDs(ctx, []uint64{m.ID})
	require.NoError(t, err)
	require.Len(t, refreshed, 1)
	require.True(t, refreshed[0].NextAttemptAt.Before(now.Add(time.Minute)))

	all, err := st.ListMessages(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestPGCompliance_EntriesFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	e, err := st.CreateEntry(ctx, models.EntryCreateInput{
		ShipmentID:    100,
		EntryType:     "consumption",
		Port:          "USSEA",
		Country:       "US",
		TariffCode:    "8517.62.00",
		DeclaredValue: 25000,
		Importer:      "Vector Imports LLC",
		Description:   "network switches",
	})
	require.NoError(t, err)
	require.Equal(t, models.EntryStatusDraft, e.Status)

	now := time.Now().UTC()
	e.Status = models.EntryStatusFiled
	e.ComplianceChecks = []string{models.CheckHTSValid, models.CheckValueDeclared, models.CheckImporterIdentified}
	e.DutyAmount = 1250
	e.NextAction = models.NextActionAwaitingReview
	e.FiledAt = &now
	e.LastCheckedAt = &now
	require.NoError(t, st.UpdateEntryAutomation(ctx, *e))

	open, err := st.ListOpenEntries(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, models.EntryStatusFiled, open[0].Status)
	require.Len(t, open[0].ComplianceChecks, 3)
	require.Equal(t, 1250.0, open[0].DutyAmount)

	require.NoError(t, st.OverrideEntryStatus(ctx, e.ID, models.EntryStatusCleared))
	open, err = st.ListOpenEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, open)

	all, err := st.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestPGCompliance_FTZAndFilingsFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	z, err := st.UpsertZone(ctx, models.FTZZone{ZoneNumber: "86", Name: "Tacoma", Status: models.ZoneStatusActive})
	require.NoError(t, err)

	it, err := st.CreateInventoryItem(ctx, models.FTZInventoryItem{
		ZoneID:        z.ID,
		ShipmentID:    200,
		Description:   "steel coils",
		Quantity:      100,
		DeclaredValue: 50000,
		Currency:      "USD",
		DutyDeferral:  2500,
		EntryDate:     time.Now().UTC().Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, models.ItemStatusInZone, it.Status)

	inZone, err := st.ListInZoneItems(ctx)
	require.NoError(t, err)
	require.Len(t, inZone, 1)

	now := time.Now().UTC()
	it.Quantity = 0
	it.Status = models.ItemStatusExported
	it.LastMovement = &now
	require.NoError(t, st.UpdateInventoryMovement(ctx, *it))

	inZone, err = st.ListInZoneItems(ctx)
	require.NoError(t, err)
	require.Empty(t, inZone)

	got, err := st.GetInventoryItemByID(ctx, it.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, models.ItemStatusExported, got.Status)

	missing, err := st.GetInventoryItemByID(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, missing)

	due := now.Add(24 * time.Hour)
	f, err := st.CreateFiling(ctx, models.FilingCreateInput{
		ShipmentID: 200, Agency: models.AgencyFDA, FilingType: "prior_notice", DueDate: &due,
	})
	require.NoError(t, err)
	require.Equal(t, models.FilingStatusDraft, f.Status)

	f.Status = models.FilingStatusUrgent
	f.SubmittedAt = &now
	f.LastCheckedAt = &now
	require.NoError(t, st.UpdateFilingAutomation(ctx, *f))

	open, err := st.ListOpenFilings(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, models.FilingStatusUrgent, open[0].Status)
	require.NotNil(t, open[0].SubmittedAt)
}

func TestPGCompliance_AlertLogDedup(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	a := messages.ComplianceAlert{
		EventID:   "evt-1",
		Engine:    messages.EngineFTZ,
		Severity:  "high",
		Code:      "expiration_warning",
		Message:   "item past the deferral limit",
		EmittedAt: time.Now().UTC(),
	}
	require.NoError(t, st.AppendAlerts(ctx, []messages.ComplianceAlert{a}))
	// Повторная доставка того же события — не дубль.
	require.NoError(t, st.AppendAlerts(ctx, []messages.ComplianceAlert{a}))

	got, err := st.ListRecentAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "evt-1", got[0].EventID)
}
