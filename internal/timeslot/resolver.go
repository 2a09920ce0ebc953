package timeslot

import (
	"errors"
	"log"
	"time"
)

// Source identifies which timezone source a classification used.
type Source string

const (
	SourceClient Source = "client"
	SourceApp    Source = "app"
	SourceUTC    Source = "utc"
)

// ErrUnknownTimezone is returned when a named zone cannot be resolved.
var ErrUnknownTimezone = errors.New("timeslot: unknown timezone")

// ClassifyInZone classifies instant's local hour in the named IANA
// zone. A zone that cannot be loaded yields ErrUnknownTimezone, which
// is distinct from a successful classification outside all windows.
func ClassifyInZone(instant time.Time, zone string) (Slot, bool, error) {
	if zone == "" {
		return "", false, ErrUnknownTimezone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", false, ErrUnknownTimezone
	}
	slot, ok := Classify(instant.In(loc).Hour())
	return slot, ok, nil
}

// Classification is the result of a timezone-aware slot lookup.
// Location is the zone the chain picked; callers doing follow-up
// calendar work for the same request must reuse it rather than
// re-resolving.
type Classification struct {
	Slot     Slot
	HasSlot  bool
	Hour     int
	Source   Source
	Location *time.Location
}

// Resolver classifies instants using a fixed timezone priority chain:
// the caller-supplied client zone, then the configured application
// zone, then UTC. A single call picks exactly one source and reports
// it; the chain never swaps zones mid-calculation.
type Resolver struct {
	appZone string
	logger  *log.Logger
}

// NewResolver constructs a Resolver. appZone may be empty, in which
// case the chain degrades to client zone then UTC.
func NewResolver(appZone string, logger *log.Logger) *Resolver {
	return &Resolver{appZone: appZone, logger: logger}
}

// ClassifyAt resolves instant's wall-clock hour using the first usable
// timezone source and classifies it.
func (r *Resolver) ClassifyAt(instant time.Time, clientZone string) Classification {
	loc, source := r.resolveLocation(clientZone)
	local := instant.In(loc)
	slot, ok := Classify(local.Hour())
	return Classification{Slot: slot, HasSlot: ok, Hour: local.Hour(), Source: source, Location: loc}
}

// Location resolves the timezone the chain would use for clientZone
// without classifying anything.
func (r *Resolver) Location(clientZone string) (*time.Location, Source) {
	return r.resolveLocation(clientZone)
}

func (r *Resolver) resolveLocation(clientZone string) (*time.Location, Source) {
	if clientZone != "" {
		if loc, err := time.LoadLocation(clientZone); err == nil {
			return loc, SourceClient
		}
		r.warnf("client timezone %q not usable, falling back", clientZone)
	}
	if r != nil && r.appZone != "" {
		if loc, err := time.LoadLocation(r.appZone); err == nil {
			return loc, SourceApp
		}
		r.warnf("app timezone %q not usable, falling back to UTC", r.appZone)
	}
	return time.UTC, SourceUTC
}

func (r *Resolver) warnf(format string, args ...any) {
	if r != nil && r.logger != nil {
		r.logger.Printf("timeslot: "+format, args...)
	}
}
