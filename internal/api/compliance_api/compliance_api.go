package compliance_api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/BearBump/ComplianceBox/internal/services/compliance"
	"github.com/go-chi/chi/v5"
)

// ComplianceAPI — JSON-обвязка над сервисом для дашборда и операторов.
type ComplianceAPI struct {
	svc *compliance.Service
}

func New(svc *compliance.Service) *ComplianceAPI {
	return &ComplianceAPI{svc: svc}
}

func (a *ComplianceAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/partners", a.upsertPartner)
		r.Get("/partners", a.listPartners)

		r.Post("/messages", a.createMessages)
		r.Get("/messages", a.listMessages)
		r.Post("/messages/{id}/refresh", a.refreshMessage)

		r.Post("/entries", a.createEntry)
		r.Get("/entries", a.listEntries)
		r.Get("/entries/{id}", a.getEntry)
		r.Post("/entries/{id}/check", a.checkEntry)
		r.Post("/entries/{id}/status", a.overrideEntryStatus)

		r.Post("/zones", a.upsertZone)
		r.Post("/inventory", a.createInventoryItem)
		r.Post("/inventory/{id}/movements", a.applyMovement)

		r.Post("/filings", a.createFiling)
		r.Get("/filings", a.listFilings)
		r.Get("/filings/{id}/reminder", a.filingReminder)
		r.Get("/filings/deadlines", a.deadlineCheck)

		r.Get("/reports/delivery", a.deliveryReport)
		r.Get("/reports/ftz", a.ftzReport)
		r.Get("/reports/ftz/audit", a.ftzAudit)
		r.Get("/reports/filings", a.filingsReport)

		r.Get("/alerts", a.listAlerts)
		r.Get("/alerts/delivery", a.deliveryAlerts)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if strings.Contains(err.Error(), "not found") {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (a *ComplianceAPI) upsertPartner(w http.ResponseWriter, r *http.Request) {
	var in models.TradingPartner
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.UpsertPartner(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *ComplianceAPI) listPartners(w http.ResponseWriter, r *http.Request) {
	ps, err := a.svc.ListPartners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"partners": ps})
}

func (a *ComplianceAPI) createMessages(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Items []models.MessageCreateInput `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	msgs, err := a.svc.CreateMessages(r.Context(), in.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (a *ComplianceAPI) listMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	msgs, err := a.svc.ListMessages(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (a *ComplianceAPI) refreshMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := a.svc.RefreshMessage(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"refreshed": true})
}

func (a *ComplianceAPI) createEntry(w http.ResponseWriter, r *http.Request) {
	var in models.EntryCreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	e, err := a.svc.CreateEntry(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *ComplianceAPI) listEntries(w http.ResponseWriter, r *http.Request) {
	es, err := a.svc.ListEntries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": es})
}

func (a *ComplianceAPI) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	es, err := a.svc.GetEntriesByIDs(r.Context(), []uint64{id})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(es) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
		return
	}
	writeJSON(w, http.StatusOK, es[0])
}

func (a *ComplianceAPI) checkEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	e, err := a.svc.CheckEntry(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *ComplianceAPI) overrideEntryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.OverrideEntryStatus(r.Context(), id, in.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": in.Status})
}

func (a *ComplianceAPI) upsertZone(w http.ResponseWriter, r *http.Request) {
	var in models.FTZZone
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	z, err := a.svc.UpsertZone(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (a *ComplianceAPI) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var in models.FTZInventoryItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	it, err := a.svc.CreateInventoryItem(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (a *ComplianceAPI) applyMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var in struct {
		MovementType string `json:"movementType"`
		Quantity     int64  `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	res, err := a.svc.ApplyMovement(r.Context(), id, in.MovementType, in.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *ComplianceAPI) createFiling(w http.ResponseWriter, r *http.Request) {
	var in models.FilingCreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, err)
		return
	}
	f, err := a.svc.CreateFiling(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *ComplianceAPI) listFilings(w http.ResponseWriter, r *http.Request) {
	fs, err := a.svc.ListFilings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"filings": fs})
}

func (a *ComplianceAPI) filingReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	msg, err := a.svc.FilingReminder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reminder": msg})
}

func (a *ComplianceAPI) deadlineCheck(w http.ResponseWriter, r *http.Request) {
	ds, err := a.svc.DeadlineCheck(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deadlines": ds})
}

func (a *ComplianceAPI) deliveryReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.DeliveryReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *ComplianceAPI) ftzReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.DutyDeferralReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *ComplianceAPI) ftzAudit(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.ComplianceAudit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *ComplianceAPI) filingsReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.FilingsReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *ComplianceAPI) listAlerts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	alerts, err := a.svc.ListRecentAlerts(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *ComplianceAPI) deliveryAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.svc.DeliveryAlerts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}
