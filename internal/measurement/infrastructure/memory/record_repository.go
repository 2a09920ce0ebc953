package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	measurement "speedwatch/internal/measurement/domain"
)

// RecordRepository is an in-memory speed test record store.
type RecordRepository struct {
	mu      sync.RWMutex
	records []measurement.Record
}

// NewRecordRepository constructs a repository.
func NewRecordRepository() *RecordRepository {
	return &RecordRepository{}
}

// Save appends a record. Records are immutable once created.
func (r *RecordRepository) Save(ctx context.Context, record *measurement.Record) error {
	_ = ctx
	if record == nil {
		return measurement.ErrNilRecord
	}
	if err := record.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.records = append(r.records, *record)
	r.mu.Unlock()
	return nil
}

// ListForDay returns the office's records on the calendar day in loc.
func (r *RecordRepository) ListForDay(ctx context.Context, officeID string, day time.Time, loc *time.Location) ([]*measurement.Record, error) {
	_ = ctx
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return r.ListRange(ctx, officeID, start, start.Add(24*time.Hour))
}

// ListRange returns the office's records in [from, to) ordered by time.
func (r *RecordRepository) ListRange(ctx context.Context, officeID string, from, to time.Time) ([]*measurement.Record, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*measurement.Record
	for i := range r.records {
		record := r.records[i]
		if record.OfficeID != officeID {
			continue
		}
		if record.Timestamp.Before(from) || !record.Timestamp.Before(to) {
			continue
		}
		out = append(out, &record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
