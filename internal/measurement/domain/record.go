package measurement

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNilRecord is returned when saving a nil record.
	ErrNilRecord = errors.New("measurement: nil record")
	// ErrEmptyOfficeID is returned when a record has no office.
	ErrEmptyOfficeID = errors.New("measurement: empty office id")
	// ErrEmptyISP is returned when a record has no ISP label.
	ErrEmptyISP = errors.New("measurement: empty isp label")
)

// Record is one captured speed test. Records are immutable once
// created; ISP holds the resolved display label at time of capture.
type Record struct {
	ID            string
	OfficeID      string
	ISP           string
	Timestamp     time.Time
	DownloadMbps  float64
	UploadMbps    float64
	PingMs        float64
	JitterMs      float64
	PacketLossPct float64
	ServerID      string
	ServerName    string
	RawData       json.RawMessage
}

// Validate checks record invariants.
func (r Record) Validate() error {
	if r.OfficeID == "" {
		return ErrEmptyOfficeID
	}
	if r.ISP == "" {
		return ErrEmptyISP
	}
	return nil
}

// SectionHint extracts the explicit section tag from the raw payload,
// when present. The hint is the highest-priority signal when matching
// a record back to a provider.
func (r Record) SectionHint() string {
	if len(r.RawData) == 0 {
		return ""
	}
	var payload struct {
		Section string `json:"section"`
	}
	if err := json.Unmarshal(r.RawData, &payload); err != nil {
		return ""
	}
	return payload.Section
}

// RecordRepository persists captured speed tests.
type RecordRepository interface {
	Save(ctx context.Context, record *Record) error
	// ListForDay returns all records for the office whose timestamps
	// fall on the given calendar day in loc, ordered by timestamp.
	ListForDay(ctx context.Context, officeID string, day time.Time, loc *time.Location) ([]*Record, error)
	ListRange(ctx context.Context, officeID string, from, to time.Time) ([]*Record, error)
}
