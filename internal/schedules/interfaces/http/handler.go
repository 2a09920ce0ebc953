package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	schedules "speedwatch/internal/schedules/domain"
)

// Registry is the subset of the schedule manager the handler drives.
type Registry interface {
	Deactivate(ctx context.Context, scheduleID string) error
	Remove(ctx context.Context, scheduleID string) error
	Armed(scheduleID string) bool
}

// Handler serves schedule administration endpoints.
type Handler struct {
	repo     schedules.ScheduleRepository
	registry Registry
}

// NewHandler constructs a Handler.
func NewHandler(repo schedules.ScheduleRepository, registry Registry) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("schedules handler: nil repository")
	}
	if registry == nil {
		return nil, errors.New("schedules handler: nil registry")
	}
	return &Handler{repo: repo, registry: registry}, nil
}

type scheduleResponse struct {
	ID       string     `json:"id"`
	OfficeID string     `json:"office_id"`
	ISP      string     `json:"isp"`
	Slot     string     `json:"slot"`
	IsActive bool       `json:"is_active"`
	Armed    bool       `json:"armed"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

func (h *Handler) toResponse(schedule *schedules.TestSchedule) scheduleResponse {
	resp := scheduleResponse{
		ID:       schedule.ID,
		OfficeID: schedule.OfficeID,
		ISP:      schedule.ISP,
		Slot:     string(schedule.Slot),
		IsActive: schedule.IsActive,
		Armed:    h.registry.Armed(schedule.ID),
	}
	if !schedule.LastRun.IsZero() {
		t := schedule.LastRun
		resp.LastRun = &t
	}
	if !schedule.NextRun.IsZero() {
		t := schedule.NextRun
		resp.NextRun = &t
	}
	return resp
}

// ServeHTTP routes schedule requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/schedules" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/v1/schedules/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/schedules/")
	parts := strings.Split(path, "/")
	if len(parts) < 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	scheduleID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, scheduleID)
		case http.MethodDelete:
			h.handleRemove(w, r, scheduleID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) == 2 && parts[1] == "deactivate" && r.Method == http.MethodPost {
		h.handleDeactivate(w, r, scheduleID)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		list []*schedules.TestSchedule
		err  error
	)
	if officeID := r.URL.Query().Get("office"); officeID != "" {
		list, err = h.repo.ListForOffice(r.Context(), officeID)
	} else {
		list, err = h.repo.ListActive(r.Context())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]scheduleResponse, 0, len(list))
	for _, schedule := range list {
		out = append(out, h.toResponse(schedule))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, scheduleID string) {
	schedule, err := h.repo.Get(r.Context(), scheduleID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if schedule == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(schedule))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request, scheduleID string) {
	if err := h.registry.Deactivate(r.Context(), scheduleID); err != nil {
		if errors.Is(err, schedules.ErrScheduleNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request, scheduleID string) {
	if err := h.registry.Remove(r.Context(), scheduleID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
