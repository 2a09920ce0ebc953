package application

import (
	"context"
	"fmt"

	measurement "speedwatch/internal/measurement/domain"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

// ProviderAvailability is one provider's state for the current slot.
type ProviderAvailability struct {
	Provider offices.ISPProvider
	Tested   bool
	Record   *measurement.Record
}

// Availability answers "which ISPs can still be tested right now".
type Availability struct {
	Slot      timeslot.Slot
	Open      bool
	Source    timeslot.Source
	Providers []ProviderAvailability
}

// Availability classifies the current instant and splits the office's
// providers into already-tested and still-available for that slot.
// Outside testing hours Open is false and no provider is testable.
func (s *Service) Availability(ctx context.Context, office *offices.Office, resolver *timeslot.Resolver, clientZone string) (Availability, error) {
	if office == nil {
		return Availability{}, offices.ErrNilOffice
	}
	if resolver == nil {
		resolver = timeslot.NewResolver("", nil)
	}

	now := s.clock.Now()
	classification := resolver.ClassifyAt(now, clientZone)
	providers, _ := offices.ParseProviders(*office)

	out := Availability{
		Slot:      classification.Slot,
		Open:      classification.HasSlot,
		Source:    classification.Source,
		Providers: make([]ProviderAvailability, 0, len(providers)),
	}
	if !classification.HasSlot {
		for _, provider := range providers {
			out.Providers = append(out.Providers, ProviderAvailability{Provider: provider})
		}
		return out, nil
	}

	// Bucket records in the same zone the classification resolved;
	// swapping to another zone here would compare slots computed
	// against two different wall clocks.
	loc := classification.Location
	records, err := s.records.ListForDay(ctx, office.ID, now, loc)
	if err != nil {
		return Availability{}, fmt.Errorf("list today's records: %w", err)
	}

	tested := make(map[string]*measurement.Record, len(records))
	for _, record := range records {
		slot, ok := timeslot.Classify(record.Timestamp.In(loc).Hour())
		if !ok || slot != classification.Slot {
			continue
		}
		matched, _ := offices.MatchLabel(providers, record.ISP, record.SectionHint())
		current := tested[matched.ID]
		if current == nil || record.Timestamp.After(current.Timestamp) {
			tested[matched.ID] = record
		}
	}

	for _, provider := range providers {
		record := tested[provider.ID]
		out.Providers = append(out.Providers, ProviderAvailability{
			Provider: provider,
			Tested:   record != nil,
			Record:   record,
		})
	}
	return out, nil
}
