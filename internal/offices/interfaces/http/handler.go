package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"speedwatch/internal/ids"
	offices "speedwatch/internal/offices/domain"
	schedules "speedwatch/internal/schedules/domain"
)

// ScheduleProvisioner creates and arms the daily schedules for an
// office's current ISP configuration.
type ScheduleProvisioner interface {
	SetupOfficeSchedules(ctx context.Context, officeID string) ([]*schedules.TestSchedule, error)
}

// Handler serves office endpoints.
type Handler struct {
	repo        offices.OfficeRepository
	provisioner ScheduleProvisioner
}

// NewHandler constructs a Handler.
func NewHandler(repo offices.OfficeRepository, provisioner ScheduleProvisioner) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("offices handler: nil repository")
	}
	return &Handler{repo: repo, provisioner: provisioner}, nil
}

type officePayload struct {
	ID          string `json:"id,omitempty"`
	Unit        string `json:"unit"`
	SubUnit     string `json:"sub_unit,omitempty"`
	Location    string `json:"location,omitempty"`
	Section     string `json:"section,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	ISPName     string `json:"isp_name,omitempty"`
	GeneralISPs string `json:"general_isps,omitempty"`
	SectionISPs string `json:"section_isps,omitempty"`
}

type officeResponse struct {
	officePayload
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type providerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Section     string `json:"section"`
	Description string `json:"description,omitempty"`
	DisplayName string `json:"display_name"`
}

func toResponse(office *offices.Office) officeResponse {
	return officeResponse{
		officePayload: officePayload{
			ID:          office.ID,
			Unit:        office.Unit,
			SubUnit:     office.SubUnit,
			Location:    office.Location,
			Section:     office.Section,
			Timezone:    office.Timezone,
			ISPName:     office.ISPName,
			GeneralISPs: office.GeneralISPs,
			SectionISPs: office.SectionISPs,
		},
		CreatedAt: office.CreatedAt,
		UpdatedAt: office.UpdatedAt,
	}
}

// ServeHTTP routes office requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/offices" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/v1/offices/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/offices/")
	parts := strings.Split(path, "/")
	if len(parts) < 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	officeID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, officeID)
		case http.MethodPut:
			h.handleUpdate(w, r, officeID)
		case http.MethodDelete:
			h.handleDelete(w, r, officeID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) == 2 && parts[1] == "providers" && r.Method == http.MethodGet {
		h.handleProviders(w, r, officeID)
		return
	}
	if len(parts) == 2 && parts[1] == "schedules" && r.Method == http.MethodPost {
		h.handleProvision(w, r, officeID)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]officeResponse, 0, len(list))
	for _, office := range list {
		out = append(out, toResponse(office))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req officePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = ids.New()
	}
	office := fromPayload(req)
	if err := office.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Save(r.Context(), office); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stored, err := h.repo.Get(r.Context(), office.ID)
	if err != nil || stored == nil {
		stored = office
	}
	respondJSON(w, http.StatusCreated, struct {
		officeResponse
		SchedulesProvisioned int `json:"schedules_provisioned"`
	}{toResponse(stored), h.provision(r, office.ID)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, officeID string) {
	office, err := h.repo.Get(r.Context(), officeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if office == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(office))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, officeID string) {
	existing, err := h.repo.Get(r.Context(), officeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req officePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.ID = officeID
	office := fromPayload(req)
	office.CreatedAt = existing.CreatedAt
	if err := office.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Save(r.Context(), office); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		officeResponse
		SchedulesProvisioned int `json:"schedules_provisioned"`
	}{toResponse(office), h.provision(r, office.ID)})
}

// handleDelete removes the office row only. Schedules referencing the
// office survive; their triggers keep firing and skip until the office
// reappears or the schedule is removed.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, officeID string) {
	if err := h.repo.Delete(r.Context(), officeID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request, officeID string) {
	office, err := h.repo.Get(r.Context(), officeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if office == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	providers, warnings := offices.ParseProviders(*office)
	out := struct {
		Providers []providerResponse `json:"providers"`
		Warnings  []string           `json:"warnings,omitempty"`
	}{Providers: make([]providerResponse, 0, len(providers)), Warnings: warnings}
	for _, provider := range providers {
		out.Providers = append(out.Providers, providerResponse{
			ID:          provider.ID,
			Name:        provider.Name,
			Section:     provider.Section,
			Description: provider.Description,
			DisplayName: provider.DisplayName(),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleProvision(w http.ResponseWriter, r *http.Request, officeID string) {
	if h.provisioner == nil {
		http.Error(w, "scheduling disabled", http.StatusServiceUnavailable)
		return
	}
	ensured, err := h.provisioner.SetupOfficeSchedules(r.Context(), officeID)
	if err != nil {
		if errors.Is(err, offices.ErrOfficeNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"schedules": len(ensured)})
}

// provision ensures schedules for the office's current ISP config
// after a create or update. Best effort: a provisioning failure does
// not fail the save that already happened.
func (h *Handler) provision(r *http.Request, officeID string) int {
	if h.provisioner == nil {
		return 0
	}
	ensured, err := h.provisioner.SetupOfficeSchedules(r.Context(), officeID)
	if err != nil {
		return 0
	}
	return len(ensured)
}

func fromPayload(req officePayload) *offices.Office {
	return &offices.Office{
		ID:          req.ID,
		Unit:        req.Unit,
		SubUnit:     req.SubUnit,
		Location:    req.Location,
		Section:     req.Section,
		Timezone:    req.Timezone,
		ISPName:     req.ISPName,
		GeneralISPs: req.GeneralISPs,
		SectionISPs: req.SectionISPs,
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
