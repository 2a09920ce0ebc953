package compliance

import (
	"encoding/json"
	"testing"
	"time"

	measurement "speedwatch/internal/measurement/domain"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

func record(officeID, isp string, at time.Time) *measurement.Record {
	return &measurement.Record{
		ID:        isp + at.Format("150405"),
		OfficeID:  officeID,
		ISP:       isp,
		Timestamp: at,
	}
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		completed int
		want      int
	}{
		{0, 0},
		{1, 33},
		{2, 67},
		{3, 100},
	}
	for _, tc := range cases {
		if got := Percentage(tc.completed, SlotsPerDay); got != tc.want {
			t.Fatalf("Percentage(%d, 3) = %d, want %d", tc.completed, got, tc.want)
		}
	}
	if got := Percentage(0, 0); got != 0 {
		t.Fatalf("zero requirement should report 0, got %d", got)
	}
}

func TestComputeOffice_Scenario(t *testing.T) {
	office := offices.Office{ID: "office-1", Unit: "HQ", GeneralISPs: `["Acme","Beta"]`}
	providers, _ := offices.ParseProviders(office)
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	records := []*measurement.Record{
		record("office-1", "Acme", day.Add(9*time.Hour+10*time.Minute)),
		record("office-1", "Beta", day.Add(12*time.Hour+30*time.Minute)),
		record("office-1", "Acme", day.Add(14*time.Hour)),
	}

	report := ComputeOffice(office, providers, records, time.UTC)
	if report.TotalRequiredSlots != 6 {
		t.Fatalf("total required = %d, want 6", report.TotalRequiredSlots)
	}
	if report.TotalCompletedSlots != 3 {
		t.Fatalf("total completed = %d, want 3", report.TotalCompletedSlots)
	}
	if report.Percentage != 50 {
		t.Fatalf("office percentage = %d, want 50", report.Percentage)
	}

	byName := make(map[string]ProviderCompliance)
	for _, pc := range report.Providers {
		byName[pc.Provider.Name] = pc
	}
	acme := byName["Acme"]
	if acme.CompletedSlots != 2 || acme.Percentage != 67 {
		t.Fatalf("Acme = %d slots / %d%%, want 2 / 67", acme.CompletedSlots, acme.Percentage)
	}
	if acme.Slots[timeslot.SlotMorning] == nil || acme.Slots[timeslot.SlotAfternoon] == nil {
		t.Fatalf("Acme should complete MORNING and AFTERNOON")
	}
	beta := byName["Beta"]
	if beta.CompletedSlots != 1 || beta.Percentage != 33 {
		t.Fatalf("Beta = %d slots / %d%%, want 1 / 33", beta.CompletedSlots, beta.Percentage)
	}
}

func TestComputeOffice_LatestRecordWinsWithinSlot(t *testing.T) {
	office := offices.Office{ID: "office-1", Unit: "HQ", GeneralISPs: "Acme"}
	providers, _ := offices.ParseProviders(office)
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	early := record("office-1", "Acme", day.Add(7*time.Hour))
	late := record("office-1", "Acme", day.Add(10*time.Hour))
	report := ComputeOffice(office, providers, []*measurement.Record{late, early}, time.UTC)

	pc := report.Providers[0]
	if pc.CompletedSlots != 1 {
		t.Fatalf("same-slot attempts must not double-count, got %d", pc.CompletedSlots)
	}
	if pc.Slots[timeslot.SlotMorning] != late {
		t.Fatalf("latest record must win the slot")
	}
}

func TestComputeOffice_SectionHintBucketing(t *testing.T) {
	office := offices.Office{ID: "office-1", Unit: "HQ", SectionISPs: `{"IT":["Globe"],"HR":["Globe"]}`}
	providers, _ := offices.ParseProviders(office)
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	r := record("office-1", "Globe (IT)", day.Add(9*time.Hour))
	r.RawData = json.RawMessage(`{"section":"IT"}`)
	report := ComputeOffice(office, providers, []*measurement.Record{r}, time.UTC)

	for _, pc := range report.Providers {
		completed := pc.CompletedSlots
		if pc.Provider.Section == "IT" && completed != 1 {
			t.Fatalf("IT provider should own the record, got %d", completed)
		}
		if pc.Provider.Section == "HR" && completed != 0 {
			t.Fatalf("HR provider must not claim the record, got %d", completed)
		}
	}
}

func TestComputeOffice_DayIsLocalMidnight(t *testing.T) {
	office := offices.Office{ID: "office-1", Unit: "HQ", GeneralISPs: "Acme"}
	providers, _ := offices.ParseProviders(office)
	manila, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 01:00 UTC is 09:00 in Manila; Day must be Manila midnight of
	// that local date, not a UTC day boundary.
	at := time.Date(2026, 8, 27, 1, 0, 0, 0, time.UTC)
	report := ComputeOffice(office, providers, []*measurement.Record{record("office-1", "Acme", at)}, manila)

	want := time.Date(2026, 8, 27, 0, 0, 0, 0, manila)
	if !report.Day.Equal(want) {
		t.Fatalf("Day = %v, want %v", report.Day, want)
	}
	if report.Day.Location() != manila {
		t.Fatalf("Day location = %v, want %v", report.Day.Location(), manila)
	}
}

func TestComputeOffice_RecordsOutsideWindowsIgnored(t *testing.T) {
	office := offices.Office{ID: "office-1", Unit: "HQ", GeneralISPs: "Acme"}
	providers, _ := offices.ParseProviders(office)
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	report := ComputeOffice(office, providers, []*measurement.Record{
		record("office-1", "Acme", day.Add(5*time.Hour)),
		record("office-1", "Acme", day.Add(21*time.Hour)),
	}, time.UTC)
	if report.TotalCompletedSlots != 0 {
		t.Fatalf("out-of-window records must not complete slots, got %d", report.TotalCompletedSlots)
	}
}

func TestSummarize(t *testing.T) {
	reports := []OfficeReport{
		{OfficeID: "a", Percentage: 100},
		{OfficeID: "b", Percentage: 50},
		{OfficeID: "c", Percentage: 0},
	}
	summary := Summarize(reports)
	if len(summary.FullyCompliant) != 1 || summary.FullyCompliant[0] != "a" {
		t.Fatalf("fully compliant = %v", summary.FullyCompliant)
	}
	if len(summary.PartiallyCompliant) != 1 || summary.PartiallyCompliant[0] != "b" {
		t.Fatalf("partially compliant = %v", summary.PartiallyCompliant)
	}
	if len(summary.NonCompliant) != 1 || summary.NonCompliant[0] != "c" {
		t.Fatalf("non compliant = %v", summary.NonCompliant)
	}
	if summary.AveragePercentage != 50 {
		t.Fatalf("fleet average = %v, want 50", summary.AveragePercentage)
	}
}
