package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	measurementapp "speedwatch/internal/measurement/application"
	measurement "speedwatch/internal/measurement/domain"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

const timeLayout = time.RFC3339

// Handler serves measurement endpoints.
type Handler struct {
	service    *measurementapp.Service
	officeRepo offices.OfficeRepository
	records    measurement.RecordRepository
	resolver   *timeslot.Resolver
}

// NewHandler constructs a Handler.
func NewHandler(
	service *measurementapp.Service,
	officeRepo offices.OfficeRepository,
	records measurement.RecordRepository,
	resolver *timeslot.Resolver,
) (*Handler, error) {
	if service == nil {
		return nil, errors.New("measurement handler: nil service")
	}
	if officeRepo == nil {
		return nil, errors.New("measurement handler: nil office repository")
	}
	if records == nil {
		return nil, errors.New("measurement handler: nil record repository")
	}
	if resolver == nil {
		resolver = timeslot.NewResolver("", nil)
	}
	return &Handler{service: service, officeRepo: officeRepo, records: records, resolver: resolver}, nil
}

type recordResponse struct {
	ID            string    `json:"id"`
	OfficeID      string    `json:"office_id"`
	ISP           string    `json:"isp"`
	Timestamp     time.Time `json:"timestamp"`
	DownloadMbps  float64   `json:"download_mbps"`
	UploadMbps    float64   `json:"upload_mbps"`
	PingMs        float64   `json:"ping_ms"`
	JitterMs      float64   `json:"jitter_ms"`
	PacketLossPct float64   `json:"packet_loss_pct"`
	ServerID      string    `json:"server_id,omitempty"`
	ServerName    string    `json:"server_name,omitempty"`
}

func toRecordResponse(record *measurement.Record) recordResponse {
	return recordResponse{
		ID:            record.ID,
		OfficeID:      record.OfficeID,
		ISP:           record.ISP,
		Timestamp:     record.Timestamp,
		DownloadMbps:  record.DownloadMbps,
		UploadMbps:    record.UploadMbps,
		PingMs:        record.PingMs,
		JitterMs:      record.JitterMs,
		PacketLossPct: record.PacketLossPct,
		ServerID:      record.ServerID,
		ServerName:    record.ServerName,
	}
}

// ServeHTTP routes measurement requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/measurements/run" && r.Method == http.MethodPost:
		h.handleRun(w, r)
	case r.URL.Path == "/api/v1/measurements/availability" && r.Method == http.MethodGet:
		h.handleAvailability(w, r)
	case r.URL.Path == "/api/v1/measurements" && r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleRun executes one on-demand measurement. The requested label
// resolves through the same matching chain the scheduler uses, so a
// display label, stored label or bare name all land on the same
// provider.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfficeID string `json:"office_id"`
		ISP      string `json:"isp"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.OfficeID == "" {
		http.Error(w, "office_id is required", http.StatusBadRequest)
		return
	}

	office, err := h.officeRepo.Get(r.Context(), req.OfficeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if office == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	providers, _ := offices.ParseProviders(*office)
	provider, _ := offices.MatchLabel(providers, req.ISP, "")

	record, err := h.service.RunAndRecord(r.Context(), office, provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	classification := h.resolver.ClassifyAt(record.Timestamp, req.Timezone)
	respondJSON(w, http.StatusCreated, struct {
		Record recordResponse `json:"record"`
		Slot   string         `json:"slot,omitempty"`
		InSlot bool           `json:"in_slot"`
	}{
		Record: toRecordResponse(record),
		Slot:   string(classification.Slot),
		InSlot: classification.HasSlot,
	})
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	officeID := r.URL.Query().Get("office")
	if officeID == "" {
		http.Error(w, "office is required", http.StatusBadRequest)
		return
	}
	office, err := h.officeRepo.Get(r.Context(), officeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if office == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	availability, err := h.service.Availability(r.Context(), office, h.resolver, r.URL.Query().Get("tz"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type providerOut struct {
		ID          string          `json:"id"`
		DisplayName string          `json:"display_name"`
		Tested      bool            `json:"tested"`
		Record      *recordResponse `json:"record,omitempty"`
	}
	out := struct {
		Slot      string        `json:"slot,omitempty"`
		Open      bool          `json:"open"`
		Source    string        `json:"timezone_source"`
		Providers []providerOut `json:"providers"`
	}{
		Slot:   string(availability.Slot),
		Open:   availability.Open,
		Source: string(availability.Source),
	}
	for _, pa := range availability.Providers {
		entry := providerOut{
			ID:          pa.Provider.ID,
			DisplayName: pa.Provider.DisplayName(),
			Tested:      pa.Tested,
		}
		if pa.Record != nil {
			record := toRecordResponse(pa.Record)
			entry.Record = &record
		}
		out.Providers = append(out.Providers, entry)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	officeID := r.URL.Query().Get("office")
	if officeID == "" {
		http.Error(w, "office is required", http.StatusBadRequest)
		return
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	list, err := h.records.ListRange(r.Context(), officeID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]recordResponse, 0, len(list))
	for _, record := range list {
		out = append(out, toRecordResponse(record))
	}
	respondJSON(w, http.StatusOK, out)
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
