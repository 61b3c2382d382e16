package filings

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
)

const (
	CodeOverdue  = "overdue"
	CodeDueToday = "due_today"
	CodeDueSoon  = "due_soon"
	CodeDueWeek  = "due_week"
)

const (
	urgentWithin       = 24 * time.Hour
	reviewAfterSubmit  = 5 * 24 * time.Hour
	approveAfterReview = 10 * 24 * time.Hour
)

type Deadline struct {
	FilingID     uint64 `json:"filingId"`
	Agency       string `json:"agency"`
	FilingType   string `json:"filingType"`
	DaysUntilDue int    `json:"daysUntilDue"`
	Code         string `json:"code"`
	Severity     string `json:"severity"`
}

// Classify считает daysUntilDue = floor((dueDate - now)/1day) и переводит в
// класс срочности. Подачи без срока пропускаются (ok=false), как и те, до
// которых больше недели.
func Classify(f models.AgencyFiling, now time.Time) (Deadline, bool) {
	if f.DueDate == nil {
		return Deadline{}, false
	}
	days := int(math.Floor(f.DueDate.Sub(now).Hours() / 24))

	d := Deadline{
		FilingID:     f.ID,
		Agency:       f.Agency,
		FilingType:   f.FilingType,
		DaysUntilDue: days,
	}
	switch {
	case days < 0:
		d.Code, d.Severity = CodeOverdue, "critical"
	case days == 0:
		d.Code, d.Severity = CodeDueToday, "high"
	case days <= 3:
		d.Code, d.Severity = CodeDueSoon, "high"
	case days <= 7:
		d.Code, d.Severity = CodeDueWeek, "medium"
	default:
		return Deadline{}, false
	}
	return d, true
}

// DeadlineCheck применяет Classify к коллекции и группирует по классу.
func DeadlineCheck(fs []models.AgencyFiling, now time.Time) map[string][]Deadline {
	out := map[string][]Deadline{}
	for _, f := range fs {
		if d, ok := Classify(f, now); ok {
			out[d.Code] = append(out[d.Code], d)
		}
	}
	return out
}

// Агентские чек-листы для напоминаний.
var agencyChecklists = map[string][]string{
	models.AgencyFDA:  {"prior notice", "facility registration", "product code"},
	models.AgencyUSDA: {"phytosanitary certificate", "import permit"},
	models.AgencyDOT:  {"HS-7 declaration", "conformity documentation"},
}

// Reminder собирает агентский чек-лист и дельту до срока.
func Reminder(f models.AgencyFiling, now time.Time) string {
	items, ok := agencyChecklists[f.Agency]
	if !ok {
		items = []string{"agency filing form", "supporting documents"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s for shipment %d. Required: %s.", f.Agency, f.FilingType, f.ShipmentID, strings.Join(items, ", "))
	if f.DueDate != nil {
		days := int(math.Floor(f.DueDate.Sub(now).Hours() / 24))
		if days < 0 {
			fmt.Fprintf(&b, " %d days overdue.", -days)
		} else {
			fmt.Fprintf(&b, " %d days remaining.", days)
		}
	}
	return b.String()
}

// AutoEscalate продвигает статусы по часовым порогам и штампует время
// автоматической проверки. Возвращает только изменённые записи.
//
// Переход under_review → approved через 10 дней — поведение исходной
// системы; продукт его пока не подтвердил (см. DESIGN.md).
func AutoEscalate(fs []models.AgencyFiling, now time.Time) []models.AgencyFiling {
	var changed []models.AgencyFiling
	for _, f := range fs {
		switch f.Status {
		case models.FilingStatusDraft:
			if f.DueDate != nil && f.DueDate.Sub(now) <= urgentWithin {
				f.Status = models.FilingStatusUrgent
				// submittedAt ставится ровно при выходе из draft.
				f.SubmittedAt = &now
			} else {
				continue
			}
		case models.FilingStatusSubmitted, models.FilingStatusUrgent:
			// urgent — та же очередь подачи, что и submitted, иначе
			// эскалированный черновик застрял бы навсегда.
			if f.SubmittedAt != nil && now.Sub(*f.SubmittedAt) > reviewAfterSubmit {
				f.Status = models.FilingStatusUnderReview
			} else {
				continue
			}
		case models.FilingStatusUnderReview:
			if f.SubmittedAt != nil && now.Sub(*f.SubmittedAt) > approveAfterReview {
				f.Status = models.FilingStatusApproved
			} else {
				continue
			}
		default:
			continue
		}
		f.LastCheckedAt = &now
		changed = append(changed, f)
	}
	return changed
}

type Report struct {
	Total          int            `json:"total"`
	ByAgency       map[string]int `json:"byAgency"`
	ByStatus       map[string]int `json:"byStatus"`
	Overdue        int            `json:"overdue"`
	DueWithin7Days int            `json:"dueWithin7Days"`
	Completed      int            `json:"completed"`
}

// BuildReport — агрегаты по агентствам, статусам и срокам.
func BuildReport(fs []models.AgencyFiling, now time.Time) Report {
	r := Report{
		ByAgency: map[string]int{},
		ByStatus: map[string]int{},
	}
	for _, f := range fs {
		r.Total++
		r.ByAgency[f.Agency]++
		r.ByStatus[f.Status]++
		if f.Status == models.FilingStatusApproved || f.Status == "cleared" {
			r.Completed++
		}
		if f.DueDate == nil {
			continue
		}
		days := int(math.Floor(f.DueDate.Sub(now).Hours() / 24))
		if days < 0 {
			r.Overdue++
		} else if days <= 7 {
			r.DueWithin7Days++
		}
	}
	return r
}
