package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"speedwatch/internal/measurement/infrastructure/memory"

	measurement "speedwatch/internal/measurement/domain"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

type stubRunner struct {
	result measurement.Result
	err    error
	labels []string
}

func (s *stubRunner) Run(ctx context.Context, ispLabel string) (measurement.Result, error) {
	_ = ctx
	s.labels = append(s.labels, ispLabel)
	return s.result, s.err
}

type failingRecords struct{}

func (failingRecords) Save(context.Context, *measurement.Record) error { return errors.New("db down") }
func (failingRecords) ListForDay(context.Context, string, time.Time, *time.Location) ([]*measurement.Record, error) {
	return nil, nil
}
func (failingRecords) ListRange(context.Context, string, time.Time, time.Time) ([]*measurement.Record, error) {
	return nil, nil
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func testOffice() *offices.Office {
	return &offices.Office{
		ID:          "off-1",
		Unit:        "Region 1",
		Timezone:    "UTC",
		GeneralISPs: `["Acme"]`,
		SectionISPs: `{"IT": ["Globe"]}`,
	}
}

func TestRunAndRecord_PersistsStoredLabelAndSectionTag(t *testing.T) {
	records := memory.NewRecordRepository()
	runner := &stubRunner{result: measurement.Result{DownloadMbps: 87.5, UploadMbps: 43.1, PingMs: 12}}
	clock := &fixedClock{now: time.Date(2026, 8, 27, 9, 15, 0, 0, time.UTC)}
	service, err := NewService(records, runner, clock, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	office := testOffice()
	providers, _ := offices.ParseProviders(*office)
	var globe offices.ISPProvider
	for _, p := range providers {
		if p.Section == "IT" {
			globe = p
		}
	}

	record, err := service.RunAndRecord(context.Background(), office, globe)
	if err != nil {
		t.Fatalf("run and record: %v", err)
	}
	if record.ISP != "Globe (IT)" {
		t.Fatalf("stored label: got %q", record.ISP)
	}
	if got := record.SectionHint(); got != "IT" {
		t.Fatalf("section hint: got %q", got)
	}
	if runner.labels[0] != "Globe (IT)" {
		t.Fatalf("runner label: got %q", runner.labels[0])
	}

	stored, err := records.ListForDay(context.Background(), "off-1", clock.now, time.UTC)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored records: %d err=%v", len(stored), err)
	}
}

func TestRunAndRecord_GeneralProviderHasNoSectionTag(t *testing.T) {
	records := memory.NewRecordRepository()
	runner := &stubRunner{result: measurement.Result{DownloadMbps: 10}}
	service, err := NewService(records, runner, &fixedClock{now: time.Now().UTC()}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	office := testOffice()
	providers, _ := offices.ParseProviders(*office)
	var acme offices.ISPProvider
	for _, p := range providers {
		if p.Name == "Acme" {
			acme = p
		}
	}

	record, err := service.RunAndRecord(context.Background(), office, acme)
	if err != nil {
		t.Fatalf("run and record: %v", err)
	}
	if record.ISP != "Acme" {
		t.Fatalf("stored label: got %q", record.ISP)
	}
	if got := record.SectionHint(); got != "" {
		t.Fatalf("expected no section hint, got %q", got)
	}
}

func TestRunAndRecord_SaveFailureWrapsErrRecordingFailed(t *testing.T) {
	runner := &stubRunner{result: measurement.Result{DownloadMbps: 10}}
	service, err := NewService(failingRecords{}, runner, &fixedClock{now: time.Now().UTC()}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	office := testOffice()
	providers, _ := offices.ParseProviders(*office)

	_, err = service.RunAndRecord(context.Background(), office, providers[0])
	if !errors.Is(err, ErrRecordingFailed) {
		t.Fatalf("expected ErrRecordingFailed, got %v", err)
	}
}

func TestRunAndRecord_RunnerFailureIsNotRecordingFailure(t *testing.T) {
	records := memory.NewRecordRepository()
	runner := &stubRunner{err: errors.New("network unreachable")}
	service, err := NewService(records, runner, &fixedClock{now: time.Now().UTC()}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	office := testOffice()
	providers, _ := offices.ParseProviders(*office)

	_, err = service.RunAndRecord(context.Background(), office, providers[0])
	if err == nil || errors.Is(err, ErrRecordingFailed) {
		t.Fatalf("expected plain measurement error, got %v", err)
	}
}

func TestAvailability_SplitsTestedAndRemaining(t *testing.T) {
	records := memory.NewRecordRepository()
	clock := &fixedClock{now: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)}
	service, err := NewService(records, &stubRunner{}, clock, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	office := testOffice()

	err = records.Save(context.Background(), &measurement.Record{
		ID:        "rec-1",
		OfficeID:  office.ID,
		ISP:       "Acme",
		Timestamp: time.Date(2026, 8, 27, 9, 5, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	resolver := timeslot.NewResolver("UTC", nil)
	availability, err := service.Availability(context.Background(), office, resolver, "")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}

	if !availability.Open || availability.Slot != timeslot.SlotMorning {
		t.Fatalf("expected open morning slot, got open=%v slot=%s", availability.Open, availability.Slot)
	}
	tested := make(map[string]bool)
	for _, pa := range availability.Providers {
		tested[pa.Provider.StoredLabel()] = pa.Tested
	}
	if !tested["Acme"] {
		t.Errorf("Acme should be tested this slot")
	}
	if tested["Globe (IT)"] {
		t.Errorf("Globe should still be available")
	}
}

func TestAvailability_BucketsRecordsInClassificationZone(t *testing.T) {
	records := memory.NewRecordRepository()
	clock := &fixedClock{now: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)}
	service, err := NewService(records, &stubRunner{}, clock, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	// Office timezone differs from the zone the chain resolves (no
	// client zone, app zone UTC). The 09:00 UTC record is morning in
	// the classification zone but 17:00 in Asia/Manila; bucketing must
	// follow the classification zone.
	office := testOffice()
	office.Timezone = "Asia/Manila"

	err = records.Save(context.Background(), &measurement.Record{
		ID:        "rec-1",
		OfficeID:  office.ID,
		ISP:       "Acme",
		Timestamp: time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	availability, err := service.Availability(context.Background(), office, timeslot.NewResolver("UTC", nil), "")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !availability.Open || availability.Slot != timeslot.SlotMorning || availability.Source != timeslot.SourceApp {
		t.Fatalf("expected open morning via app zone, got open=%v slot=%s source=%s",
			availability.Open, availability.Slot, availability.Source)
	}
	for _, pa := range availability.Providers {
		if pa.Provider.Name == "Acme" && !pa.Tested {
			t.Fatalf("Acme tested at 09:00 in the resolved zone must count for the morning slot")
		}
	}
}

func TestAvailability_ClosedOutsideWindows(t *testing.T) {
	records := memory.NewRecordRepository()
	clock := &fixedClock{now: time.Date(2026, 8, 27, 20, 0, 0, 0, time.UTC)}
	service, err := NewService(records, &stubRunner{}, clock, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	availability, err := service.Availability(context.Background(), testOffice(), timeslot.NewResolver("UTC", nil), "")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if availability.Open {
		t.Fatalf("expected closed outside testing hours")
	}
	for _, pa := range availability.Providers {
		if pa.Tested {
			t.Errorf("no provider is testable when closed")
		}
	}
}
