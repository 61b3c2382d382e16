package compliance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ComplianceBox/internal/broker/messages"
	"github.com/BearBump/ComplianceBox/internal/cache"
	"github.com/BearBump/ComplianceBox/internal/engines/clearance"
	"github.com/BearBump/ComplianceBox/internal/engines/delivery"
	"github.com/BearBump/ComplianceBox/internal/engines/filings"
	"github.com/BearBump/ComplianceBox/internal/engines/ftz"
	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/BearBump/ComplianceBox/internal/ratetable"
	"github.com/pkg/errors"
)

type Repository interface {
	UpsertPartner(ctx context.Context, p models.TradingPartner) (*models.TradingPartner, error)
	ListPartners(ctx context.Context) ([]models.TradingPartner, error)

	CreateMessages(ctx context.Context, items []models.MessageCreateInput) ([]*models.OutboundMessage, error)
	GetMessagesByIDs(ctx context.Context, ids []uint64) ([]*models.OutboundMessage, error)
	ListMessages(ctx context.Context, limit, offset int) ([]models.OutboundMessage, error)
	RefreshMessage(ctx context.Context, messageID uint64) error

	CreateEntry(ctx context.Context, in models.EntryCreateInput) (*models.CustomsEntry, error)
	GetEntriesByIDs(ctx context.Context, ids []uint64) ([]*models.CustomsEntry, error)
	ListEntries(ctx context.Context) ([]models.CustomsEntry, error)
	UpdateEntryAutomation(ctx context.Context, e models.CustomsEntry) error
	OverrideEntryStatus(ctx context.Context, entryID uint64, status string) error

	UpsertZone(ctx context.Context, z models.FTZZone) (*models.FTZZone, error)
	ListZones(ctx context.Context) (map[uint64]models.FTZZone, error)
	CreateInventoryItem(ctx context.Context, it models.FTZInventoryItem) (*models.FTZInventoryItem, error)
	GetInventoryItemByID(ctx context.Context, id uint64) (*models.FTZInventoryItem, error)
	ListInZoneItems(ctx context.Context) ([]models.FTZInventoryItem, error)
	UpdateInventoryMovement(ctx context.Context, it models.FTZInventoryItem) error

	CreateFiling(ctx context.Context, in models.FilingCreateInput) (*models.AgencyFiling, error)
	ListFilings(ctx context.Context) ([]models.AgencyFiling, error)
	GetFilingByID(ctx context.Context, id uint64) (*models.AgencyFiling, error)

	AppendAlerts(ctx context.Context, alerts []messages.ComplianceAlert) error
	ListRecentAlerts(ctx context.Context, limit int) ([]messages.ComplianceAlert, error)
}

type Service struct {
	repo      Repository
	cache     cache.BytesCache
	rates     *ratetable.Table
	reportTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, rates *ratetable.Table, reportTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, rates: rates, reportTTL: reportTTL}
}

const (
	deliveryReportKey = "report:delivery"
	ftzReportKey      = "report:ftz:deferral"
	filingsReportKey  = "report:filings"
)

// --- партнёры ---

func (s *Service) UpsertPartner(ctx context.Context, p models.TradingPartner) (*models.TradingPartner, error) {
	if p.Name == "" {
		return nil, errors.New("name is required")
	}
	if p.EDIID == "" {
		return nil, errors.New("ediId is required")
	}
	return s.repo.UpsertPartner(ctx, p)
}

func (s *Service) ListPartners(ctx context.Context) ([]models.TradingPartner, error) {
	return s.repo.ListPartners(ctx)
}

// --- EDI-сообщения ---

var validTransactionKinds = map[string]struct{}{
	models.TransactionStatusUpdate: {},
	models.TransactionLoadTender:   {},
	models.TransactionInvoice:      {},
}

var validPriorities = map[string]struct{}{
	models.MessagePriorityNormal: {},
	models.MessagePriorityHigh:   {},
	models.MessagePriorityUrgent: {},
}

func (s *Service) CreateMessages(ctx context.Context, items []models.MessageCreateInput) ([]*models.OutboundMessage, error) {
	if len(items) == 0 {
		return nil, errors.New("items is empty")
	}
	if len(items) > 10_000 {
		return nil, errors.New("too many items (max 10000)")
	}

	for _, it := range items {
		if _, ok := validTransactionKinds[it.TransactionKind]; !ok {
			return nil, errors.Errorf("unknown transaction kind %q", it.TransactionKind)
		}
		if it.PartnerID == 0 {
			return nil, errors.New("partnerId is required")
		}
		if it.Priority != "" {
			if _, ok := validPriorities[it.Priority]; !ok {
				return nil, errors.Errorf("unknown priority %q", it.Priority)
			}
		}
	}

	out, err := s.repo.CreateMessages(ctx, items)
	if err != nil {
		return nil, err
	}
	s.dropCached(ctx, deliveryReportKey)
	return out, nil
}

func (s *Service) GetMessagesByIDs(ctx context.Context, ids []uint64) ([]*models.OutboundMessage, error) {
	if len(ids) == 0 {
		return []*models.OutboundMessage{}, nil
	}
	return s.repo.GetMessagesByIDs(ctx, ids)
}

func (s *Service) ListMessages(ctx context.Context, limit, offset int) ([]models.OutboundMessage, error) {
	return s.repo.ListMessages(ctx, limit, offset)
}

// RefreshMessage — операторское "прогнать проверку сейчас": сообщение станет
// доступно ближайшему свипу воркера.
func (s *Service) RefreshMessage(ctx context.Context, messageID uint64) error {
	if messageID == 0 {
		return errors.New("messageId is required")
	}
	return s.repo.RefreshMessage(ctx, messageID)
}

// DeliveryReport — снапшот по доставке. Кэшируем целиком как JSON:
// отчёт читают дашборды, лёгкое запаздывание допустимо.
func (s *Service) DeliveryReport(ctx context.Context) (delivery.Report, error) {
	var r delivery.Report
	if s.getCached(ctx, deliveryReportKey, &r) {
		return r, nil
	}

	msgs, err := s.repo.ListMessages(ctx, 10_000, 0)
	if err != nil {
		return r, err
	}
	r = delivery.BuildReport(msgs, time.Now().UTC())
	s.putCached(ctx, deliveryReportKey, r)
	return r, nil
}

func (s *Service) DeliveryAlerts(ctx context.Context) ([]delivery.Alert, error) {
	msgs, err := s.repo.ListMessages(ctx, 10_000, 0)
	if err != nil {
		return nil, err
	}
	partners, err := s.repo.ListPartners(ctx)
	if err != nil {
		return nil, err
	}
	return delivery.Monitor(msgs, partners, time.Now().UTC()), nil
}

// --- таможенные записи ---

func (s *Service) CreateEntry(ctx context.Context, in models.EntryCreateInput) (*models.CustomsEntry, error) {
	if in.ShipmentID == 0 {
		return nil, errors.New("shipmentId is required")
	}
	if in.EntryType == "" {
		return nil, errors.New("entryType is required")
	}
	return s.repo.CreateEntry(ctx, in)
}

func (s *Service) GetEntriesByIDs(ctx context.Context, ids []uint64) ([]*models.CustomsEntry, error) {
	if len(ids) == 0 {
		return []*models.CustomsEntry{}, nil
	}
	return s.repo.GetEntriesByIDs(ctx, ids)
}

func (s *Service) ListEntries(ctx context.Context) ([]models.CustomsEntry, error) {
	return s.repo.ListEntries(ctx)
}

// CheckEntry — проверка по требованию, той же цепочкой, что и свип воркера:
// теги, пошлина, один шаг продвижения.
func (s *Service) CheckEntry(ctx context.Context, entryID uint64) (*models.CustomsEntry, error) {
	got, err := s.repo.GetEntriesByIDs(ctx, []uint64{entryID})
	if err != nil {
		return nil, err
	}
	if len(got) == 0 {
		return nil, errors.Errorf("entry %d not found", entryID)
	}

	now := time.Now().UTC()
	e := clearance.RunComplianceCheck(*got[0], now)
	if e.TariffCode != "" && e.DeclaredValue > 0 {
		e, err = clearance.CalculateDuty(e, s.rates, now)
		if err != nil {
			return nil, err
		}
	}
	e, _ = clearance.AutoAdvance(e, now)

	if err := s.repo.UpdateEntryAutomation(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

var validEntryStatuses = map[string]struct{}{
	models.EntryStatusDraft:       {},
	models.EntryStatusFiled:       {},
	models.EntryStatusUnderReview: {},
	models.EntryStatusCleared:     {},
}

// OverrideEntryStatus — ручной перевод статуса оператором, включая движение
// назад, которое автоматике запрещено.
func (s *Service) OverrideEntryStatus(ctx context.Context, entryID uint64, status string) error {
	if entryID == 0 {
		return errors.New("entryId is required")
	}
	if _, ok := validEntryStatuses[status]; !ok {
		return errors.Errorf("unknown entry status %q", status)
	}
	return s.repo.OverrideEntryStatus(ctx, entryID, status)
}

// --- FTZ ---

func (s *Service) UpsertZone(ctx context.Context, z models.FTZZone) (*models.FTZZone, error) {
	if z.ZoneNumber == "" {
		return nil, errors.New("zoneNumber is required")
	}
	if z.Status == "" {
		z.Status = models.ZoneStatusActive
	}
	return s.repo.UpsertZone(ctx, z)
}

func (s *Service) CreateInventoryItem(ctx context.Context, it models.FTZInventoryItem) (*models.FTZInventoryItem, error) {
	if it.ZoneID == 0 {
		return nil, errors.New("zoneId is required")
	}
	if it.Quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	created, err := s.repo.CreateInventoryItem(ctx, it)
	if err != nil {
		return nil, err
	}
	s.dropCached(ctx, ftzReportKey)
	return created, nil
}

type MovementResult struct {
	Item   models.FTZInventoryItem `json:"item"`
	Advice string                  `json:"advice"`
}

// ApplyMovement проводит движение по позиции и возвращает рекомендацию
// по дальнейшей работе с ней.
func (s *Service) ApplyMovement(ctx context.Context, itemID uint64, movementType string, qty int64) (*MovementResult, error) {
	it, err := s.repo.GetInventoryItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, errors.Errorf("inventory item %d not found", itemID)
	}

	now := time.Now().UTC()
	moved, err := ftz.ApplyMovement(*it, movementType, qty, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateInventoryMovement(ctx, moved); err != nil {
		return nil, err
	}
	s.dropCached(ctx, ftzReportKey)

	return &MovementResult{Item: moved, Advice: ftz.MovementAlert(moved, now)}, nil
}

func (s *Service) DutyDeferralReport(ctx context.Context) (ftz.DeferralReport, error) {
	var r ftz.DeferralReport
	if s.getCached(ctx, ftzReportKey, &r) {
		return r, nil
	}

	items, err := s.repo.ListInZoneItems(ctx)
	if err != nil {
		return r, err
	}
	zones, err := s.repo.ListZones(ctx)
	if err != nil {
		return r, err
	}
	r = ftz.DutyDeferralReport(items, zones, time.Now().UTC())
	s.putCached(ctx, ftzReportKey, r)
	return r, nil
}

func (s *Service) ComplianceAudit(ctx context.Context) (ftz.AuditReport, error) {
	items, err := s.repo.ListInZoneItems(ctx)
	if err != nil {
		return ftz.AuditReport{}, err
	}
	return ftz.ComplianceAudit(items, time.Now().UTC()), nil
}

// --- агентские подачи ---

var validAgencies = map[string]struct{}{
	models.AgencyFDA:  {},
	models.AgencyUSDA: {},
	models.AgencyDOT:  {},
	models.AgencyCPSC: {},
	models.AgencyEPA:  {},
	models.AgencyFCC:  {},
}

func (s *Service) CreateFiling(ctx context.Context, in models.FilingCreateInput) (*models.AgencyFiling, error) {
	if in.ShipmentID == 0 {
		return nil, errors.New("shipmentId is required")
	}
	if _, ok := validAgencies[in.Agency]; !ok {
		return nil, errors.Errorf("unknown agency %q", in.Agency)
	}
	if in.FilingType == "" {
		return nil, errors.New("filingType is required")
	}
	created, err := s.repo.CreateFiling(ctx, in)
	if err != nil {
		return nil, err
	}
	s.dropCached(ctx, filingsReportKey)
	return created, nil
}

func (s *Service) ListFilings(ctx context.Context) ([]models.AgencyFiling, error) {
	return s.repo.ListFilings(ctx)
}

func (s *Service) FilingReminder(ctx context.Context, filingID uint64) (string, error) {
	f, err := s.repo.GetFilingByID(ctx, filingID)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", errors.Errorf("filing %d not found", filingID)
	}
	return filings.Reminder(*f, time.Now().UTC()), nil
}

func (s *Service) DeadlineCheck(ctx context.Context) (map[string][]filings.Deadline, error) {
	fs, err := s.repo.ListFilings(ctx)
	if err != nil {
		return nil, err
	}
	return filings.DeadlineCheck(fs, time.Now().UTC()), nil
}

func (s *Service) FilingsReport(ctx context.Context) (filings.Report, error) {
	var r filings.Report
	if s.getCached(ctx, filingsReportKey, &r) {
		return r, nil
	}

	fs, err := s.repo.ListFilings(ctx)
	if err != nil {
		return r, err
	}
	r = filings.BuildReport(fs, time.Now().UTC())
	s.putCached(ctx, filingsReportKey, r)
	return r, nil
}

// --- журнал алертов ---

// ApplyAlertEvent принимает алерт воркера из Kafka. Журнал дедуплицируется
// по event_id, так что at-least-once доставка безопасна.
func (s *Service) ApplyAlertEvent(ctx context.Context, a messages.ComplianceAlert) error {
	if a.EventID == "" {
		return errors.New("event_id is required")
	}
	if a.EmittedAt.IsZero() {
		a.EmittedAt = time.Now().UTC()
	}
	if err := s.repo.AppendAlerts(ctx, []messages.ComplianceAlert{a}); err != nil {
		return err
	}

	// Свип успел что-то поменять: закэшированные отчёты устарели.
	switch a.Engine {
	case messages.EngineDelivery:
		s.dropCached(ctx, deliveryReportKey)
	case messages.EngineFTZ:
		s.dropCached(ctx, ftzReportKey)
	case messages.EngineFilings:
		s.dropCached(ctx, filingsReportKey)
	}
	return nil
}

func (s *Service) ListRecentAlerts(ctx context.Context, limit int) ([]messages.ComplianceAlert, error) {
	return s.repo.ListRecentAlerts(ctx, limit)
}

// Кэш отчётов — лучшее усилие: недоступный redis не ломает чтение из БД.

func (s *Service) getCached(ctx context.Context, key string, v any) bool {
	if s.cache == nil || s.reportTTL <= 0 {
		return false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func (s *Service) putCached(ctx context.Context, key string, v any) {
	if s.cache == nil || s.reportTTL <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, b, s.reportTTL)
}

func (s *Service) dropCached(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, key)
}
