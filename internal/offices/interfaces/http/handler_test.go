package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/offices/infrastructure/memory"
	schedules "speedwatch/internal/schedules/domain"
)

type stubProvisioner struct {
	calls []string
	err   error
}

func (s *stubProvisioner) SetupOfficeSchedules(ctx context.Context, officeID string) ([]*schedules.TestSchedule, error) {
	_ = ctx
	s.calls = append(s.calls, officeID)
	if s.err != nil {
		return nil, s.err
	}
	return []*schedules.TestSchedule{{}, {}, {}}, nil
}

func newTestHandler(t *testing.T) (*Handler, *memory.OfficeRepository, *stubProvisioner) {
	t.Helper()
	repo := memory.NewOfficeRepository()
	provisioner := &stubProvisioner{}
	handler, err := NewHandler(repo, provisioner)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, repo, provisioner
}

func TestCreateAndGetOffice(t *testing.T) {
	handler, _, provisioner := newTestHandler(t)

	body := `{"id":"off-1","unit":"Region 1","timezone":"Asia/Manila","general_isps":"[\"Acme\"]"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/offices", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", resp.Code, resp.Body.String())
	}
	if len(provisioner.calls) != 1 || provisioner.calls[0] != "off-1" {
		t.Fatalf("create should provision schedules, calls: %v", provisioner.calls)
	}
	var created struct {
		SchedulesProvisioned int `json:"schedules_provisioned"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.SchedulesProvisioned != 3 {
		t.Fatalf("schedules_provisioned: got %d want 3", created.SchedulesProvisioned)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/offices/off-1", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("get: got %d", resp.Code)
	}
	var out struct {
		Unit     string `json:"unit"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Unit != "Region 1" || out.Timezone != "Asia/Manila" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestCreateOffice_GeneratesID(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offices", strings.NewReader(`{"unit":"Region 2"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: got %d", resp.Code)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCreateOffice_MissingUnit(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offices", strings.NewReader(`{"id":"off-1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	handler, repo, _ := newTestHandler(t)
	err := repo.Save(context.Background(), &offices.Office{
		ID:          "off-1",
		Unit:        "Region 1",
		GeneralISPs: `["Acme"]`,
		SectionISPs: `{"IT": ["Globe"]}`,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offices/off-1/providers", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("providers: got %d", resp.Code)
	}
	var out struct {
		Providers []struct {
			Name    string `json:"name"`
			Section string `json:"section"`
		} `json:"providers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Providers) != 2 {
		t.Fatalf("providers: got %d want 2", len(out.Providers))
	}
}

func TestProvisionSchedules(t *testing.T) {
	handler, repo, provisioner := newTestHandler(t)
	err := repo.Save(context.Background(), &offices.Office{ID: "off-1", Unit: "Region 1", GeneralISPs: `["Acme"]`})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offices/off-1/schedules", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("provision: got %d", resp.Code)
	}
	if len(provisioner.calls) != 1 || provisioner.calls[0] != "off-1" {
		t.Fatalf("provisioner calls: %v", provisioner.calls)
	}
}

func TestProvisionSchedules_UnknownOffice(t *testing.T) {
	handler, _, provisioner := newTestHandler(t)
	provisioner.err = offices.ErrOfficeNotFound

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offices/missing/schedules", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeleteOffice(t *testing.T) {
	handler, repo, _ := newTestHandler(t)
	err := repo.Save(context.Background(), &offices.Office{ID: "off-1", Unit: "Region 1"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/offices/off-1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", resp.Code)
	}
	office, err := repo.Get(context.Background(), "off-1")
	if err != nil || office != nil {
		t.Fatalf("office should be gone, got %v err=%v", office, err)
	}
}
