package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	complianceapp "speedwatch/internal/compliance/application"
	compliance "speedwatch/internal/compliance/domain"
	complianceexport "speedwatch/internal/compliance/interfaces"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

// Handler serves compliance report endpoints.
type Handler struct {
	service *complianceapp.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *complianceapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("compliance handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes report requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch {
	case r.URL.Path == "/api/v1/reports/fleet":
		h.handleFleet(w, r)
	case r.URL.Path == "/api/v1/reports/fleet/export.xlsx":
		h.handleFleetExport(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/reports/offices/"):
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/offices/")
		parts := strings.Split(path, "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			h.handleOffice(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "export.xlsx":
			h.handleOfficeExport(w, r, parts[0], "xlsx")
		case len(parts) == 2 && parts[1] == "export.pdf":
			h.handleOfficeExport(w, r, parts[0], "pdf")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type providerReportOut struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"display_name"`
	RequiredSlots  int               `json:"required_slots"`
	CompletedSlots int               `json:"completed_slots"`
	Percentage     int               `json:"percentage"`
	Slots          map[string]string `json:"slots"`
}

type officeReportOut struct {
	OfficeID       string              `json:"office_id"`
	Day            string              `json:"day"`
	RequiredSlots  int                 `json:"required_slots"`
	CompletedSlots int                 `json:"completed_slots"`
	Percentage     int                 `json:"percentage"`
	Providers      []providerReportOut `json:"providers"`
}

func toOfficeReportOut(report compliance.OfficeReport) officeReportOut {
	out := officeReportOut{
		OfficeID:       report.OfficeID,
		Day:            report.Day.Format("2006-01-02"),
		RequiredSlots:  report.TotalRequiredSlots,
		CompletedSlots: report.TotalCompletedSlots,
		Percentage:     report.Percentage,
		Providers:      make([]providerReportOut, 0, len(report.Providers)),
	}
	for _, pc := range report.Providers {
		entry := providerReportOut{
			ID:             pc.Provider.ID,
			DisplayName:    pc.Provider.DisplayName(),
			RequiredSlots:  pc.RequiredSlots,
			CompletedSlots: pc.CompletedSlots,
			Percentage:     pc.Percentage,
			Slots:          make(map[string]string, len(pc.Slots)),
		}
		for _, slot := range timeslot.All() {
			if record := pc.Slots[slot]; record != nil {
				entry.Slots[string(slot)] = record.Timestamp.Format(time.RFC3339)
			}
		}
		out.Providers = append(out.Providers, entry)
	}
	return out
}

func (h *Handler) handleOffice(w http.ResponseWriter, r *http.Request, officeID string) {
	report, ok := h.officeReport(w, r, officeID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toOfficeReportOut(report))
}

func (h *Handler) handleOfficeExport(w http.ResponseWriter, r *http.Request, officeID, format string) {
	report, ok := h.officeReport(w, r, officeID)
	if !ok {
		return
	}

	var (
		payload     []byte
		err         error
		contentType string
	)
	switch format {
	case "pdf":
		payload, err = complianceexport.BuildReportPDF(report)
		contentType = "application/pdf"
	default:
		payload, err = complianceexport.BuildReportXLSX(report)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("compliance-%s-%s.%s", report.OfficeID, report.Day.Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(payload)
}

func (h *Handler) handleFleet(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	summary, err := h.service.FleetReport(r.Context(), day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := struct {
		Offices            []officeReportOut `json:"offices"`
		FullyCompliant     []string          `json:"fully_compliant"`
		PartiallyCompliant []string          `json:"partially_compliant"`
		NonCompliant       []string          `json:"non_compliant"`
		AveragePercentage  float64           `json:"average_percentage"`
	}{
		FullyCompliant:     summary.FullyCompliant,
		PartiallyCompliant: summary.PartiallyCompliant,
		NonCompliant:       summary.NonCompliant,
		AveragePercentage:  summary.AveragePercentage,
	}
	for _, report := range summary.Reports {
		out.Offices = append(out.Offices, toOfficeReportOut(report))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleFleetExport(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	summary, err := h.service.FleetReport(r.Context(), day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload, err := complianceexport.BuildFleetXLSX(summary)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("compliance-fleet-%s.xlsx", day.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(payload)
}

func (h *Handler) officeReport(w http.ResponseWriter, r *http.Request, officeID string) (compliance.OfficeReport, bool) {
	day, err := parseDay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return compliance.OfficeReport{}, false
	}
	report, err := h.service.DailyReport(r.Context(), officeID, day, r.URL.Query().Get("tz"))
	if err != nil {
		if errors.Is(err, offices.ErrOfficeNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return compliance.OfficeReport{}, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return compliance.OfficeReport{}, false
	}
	return report, true
}

// parseDay reads the day query parameter, defaulting to today.
func parseDay(r *http.Request) (time.Time, error) {
	value := r.URL.Query().Get("day")
	if value == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("day must be YYYY-MM-DD")
	}
	return parsed, nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
