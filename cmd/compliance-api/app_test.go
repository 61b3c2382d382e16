package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/BearBump/ComplianceBox/internal/services/compliance"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	appended []messages.ComplianceAlert
}

func (r *fakeRepo) UpsertPartner(ctx context.Context, p models.TradingPartner) (*models.TradingPartner, error) {
	return &p, nil
}
func (r *fakeRepo) ListPartners(ctx context.Context) ([]models.TradingPartner, error) { return nil, nil }
func (r *fakeRepo) CreateMessages(ctx context.Context, items []models.MessageCreateInput) ([]*models.OutboundMessage, error) {
	return nil, nil
}
func (r *fakeRepo) GetMessagesByIDs(ctx context.Context, ids []uint64) ([]*models.OutboundMessage, error) {
	return nil, nil
}
func (r *fakeRepo) ListMessages(ctx context.Context, limit, offset int) ([]models.OutboundMessage, error) {
	return nil, nil
}
func (r *fakeRepo) RefreshMessage(ctx context.Context, messageID uint64) error { return nil }
func (r *fakeRepo) CreateEntry(ctx context.Context, in models.EntryCreateInput) (*models.CustomsEntry, error) {
	return &models.CustomsEntry{ID: 1}, nil
}
func (r *fakeRepo) GetEntriesByIDs(ctx context.Context, ids []uint64) ([]*models.CustomsEntry, error) {
	return nil, nil
}
func (r *fakeRepo) ListEntries(ctx context.Context) ([]models.CustomsEntry, error) { return nil, nil }
func (r *fakeRepo) UpdateEntryAutomation(ctx context.Context, e models.CustomsEntry) error {
	return nil
}
func (r *fakeRepo) OverrideEntryStatus(ctx context.Context, entryID uint64, status string) error {
	return nil
}
func (r *fakeRepo) UpsertZone(ctx context.Context, z models.FTZZone) (*models.FTZZone, error) {
	return &z, nil
}
func (r *fakeRepo) ListZones(ctx context.Context) (map[uint64]models.FTZZone, error) {
	return nil, nil
}
func (r *fakeRepo) CreateInventoryItem(ctx context.Context, it models.FTZInventoryItem) (*models.FTZInventoryItem, error) {
	return &it, nil
}
func (r *fakeRepo) GetInventoryItemByID(ctx context.Context, id uint64) (*models.FTZInventoryItem, error) {
	return nil, nil
}
func (r *fakeRepo) ListInZoneItems(ctx context.Context) ([]models.FTZInventoryItem, error) {
	return nil, nil
}
func (r *fakeRepo) UpdateInventoryMovement(ctx context.Context, it models.FTZInventoryItem) error {
	return nil
}
func (r *fakeRepo) CreateFiling(ctx context.Context, in models.FilingCreateInput) (*models.AgencyFiling, error) {
	return &models.AgencyFiling{ID: 1}, nil
}
func (r *fakeRepo) ListFilings(ctx context.Context) ([]models.AgencyFiling, error) { return nil, nil }
func (r *fakeRepo) GetFilingByID(ctx context.Context, id uint64) (*models.AgencyFiling, error) {
	return nil, nil
}
func (r *fakeRepo) AppendAlerts(ctx context.Context, alerts []messages.ComplianceAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, alerts...)
	return nil
}
func (r *fakeRepo) ListRecentAlerts(ctx context.Context, limit int) ([]messages.ComplianceAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]messages.ComplianceAlert(nil), r.appended...), nil
}

// fakeConsumer отдаёт один алерт и ждёт отмены контекста.
type fakeConsumer struct {
	value []byte
}

func (c fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	if c.value != nil {
		if err := handler([]byte("k"), c.value); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunComplianceAPI_ServesAndConsumes(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	repo := &fakeRepo{}
	svc := compliance.New(repo, nil, ratetable.New(), 0)

	alert := messages.ComplianceAlert{EventID: "evt-1", Engine: messages.EngineFTZ, Code: "expiration_warning", EmittedAt: time.Now().UTC()}
	b, err := json.Marshal(alert)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	opts := complianceAPIOpts{
		httpAddr:      "127.0.0.1:0",
		swaggerPath:   sw,
		topic:         "compliance.alerts",
		consumerGroup: "compliance-api",
		onListen:      func(httpAddr string) { addrCh <- httpAddr },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- runComplianceAPI(ctx, opts, svc, fakeConsumer{value: b}) }()

	httpAddr := <-addrCh

	resp, err := http.Get("http://" + httpAddr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	resp, err = http.Get("http://" + httpAddr + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), "\"swagger\"")

	// Алерт из Kafka попал в журнал и виден через API.
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + httpAddr + "/v1/alerts")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var out struct {
			Alerts []messages.ComplianceAlert `json:"alerts"`
		}
		if json.NewDecoder(resp.Body).Decode(&out) != nil {
			return false
		}
		return len(out.Alerts) == 1 && out.Alerts[0].EventID == "evt-1"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.Error(t, <-errCh)
}
