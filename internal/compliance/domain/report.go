package compliance

import (
	"math"
	"time"

	measurement "speedwatch/internal/measurement/domain"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

// SlotsPerDay is the number of required daily measurement windows.
const SlotsPerDay = 3

// ProviderCompliance is one provider's completion state for a day.
type ProviderCompliance struct {
	Provider       offices.ISPProvider
	RequiredSlots  int
	CompletedSlots int
	Percentage     int
	// Slots holds the counted record per completed slot. Within one
	// slot the latest record wins; earlier attempts are informational
	// and never double-counted.
	Slots map[timeslot.Slot]*measurement.Record
}

// OfficeReport aggregates a day's compliance across an office's
// providers.
type OfficeReport struct {
	OfficeID            string
	Day                 time.Time
	Providers           []ProviderCompliance
	TotalRequiredSlots  int
	TotalCompletedSlots int
	Percentage          int
}

// Percentage computes a rounded completion percentage. A requirement
// of zero (office with no providers) is reported as 0, not an error.
func Percentage(completed, required int) int {
	if required <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(required) * 100))
}

// ComputeOffice buckets a day's records per provider and slot and
// rolls the counts up to office level. Record hours are classified in
// loc, which callers resolve through the timezone fallback chain.
func ComputeOffice(office offices.Office, providers []offices.ISPProvider, records []*measurement.Record, loc *time.Location) OfficeReport {
	if loc == nil {
		loc = time.UTC
	}

	report := OfficeReport{
		OfficeID:           office.ID,
		Providers:          make([]ProviderCompliance, 0, len(providers)),
		TotalRequiredSlots: SlotsPerDay * len(providers),
	}
	if len(records) > 0 {
		local := records[0].Timestamp.In(loc)
		report.Day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	}

	// Resolve each record's provider once; the matching chain is the
	// same one used on the live availability path.
	matched := make(map[string][]*measurement.Record, len(providers))
	for _, record := range records {
		p, _ := offices.MatchLabel(providers, record.ISP, record.SectionHint())
		matched[p.ID] = append(matched[p.ID], record)
	}

	for _, provider := range providers {
		pc := ProviderCompliance{
			Provider:      provider,
			RequiredSlots: SlotsPerDay,
			Slots:         make(map[timeslot.Slot]*measurement.Record),
		}
		for _, record := range matched[provider.ID] {
			slot, ok := timeslot.Classify(record.Timestamp.In(loc).Hour())
			if !ok {
				continue
			}
			current := pc.Slots[slot]
			if current == nil || record.Timestamp.After(current.Timestamp) {
				pc.Slots[slot] = record
			}
		}
		pc.CompletedSlots = len(pc.Slots)
		pc.Percentage = Percentage(pc.CompletedSlots, pc.RequiredSlots)
		report.Providers = append(report.Providers, pc)
		report.TotalCompletedSlots += pc.CompletedSlots
	}

	report.Percentage = Percentage(report.TotalCompletedSlots, report.TotalRequiredSlots)
	return report
}

// FleetSummary categorizes office reports across the fleet.
type FleetSummary struct {
	Reports            []OfficeReport
	FullyCompliant     []string
	PartiallyCompliant []string
	NonCompliant       []string
	AveragePercentage  float64
}

// Summarize buckets offices by compliance and computes the unweighted
// mean of office percentages.
func Summarize(reports []OfficeReport) FleetSummary {
	summary := FleetSummary{Reports: reports}
	total := 0
	for _, report := range reports {
		total += report.Percentage
		switch {
		case report.Percentage == 100:
			summary.FullyCompliant = append(summary.FullyCompliant, report.OfficeID)
		case report.Percentage == 0:
			summary.NonCompliant = append(summary.NonCompliant, report.OfficeID)
		default:
			summary.PartiallyCompliant = append(summary.PartiallyCompliant, report.OfficeID)
		}
	}
	if len(reports) > 0 {
		summary.AveragePercentage = float64(total) / float64(len(reports))
	}
	return summary
}
