package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"speedwatch/internal/ids"
	measurement "speedwatch/internal/measurement/domain"
	"speedwatch/internal/observability/metrics"
	offices "speedwatch/internal/offices/domain"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ErrRecordingFailed wraps a persistence failure that happened after a
// successful measurement. The measurement data is lost unless the
// caller retries, so services log this loudly.
var ErrRecordingFailed = errors.New("measurement: record persistence failed after successful test")

// Service runs measurements and persists their records.
type Service struct {
	records    measurement.RecordRepository
	runner     measurement.Runner
	clock      Clock
	logger     *log.Logger
	metrics    *metrics.Metrics
	onRecorded func(*measurement.Record)
}

// Option configures the service.
type Option func(*Service)

// WithMetrics attaches the metrics bundle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOnRecorded registers a callback invoked after a record persists,
// used for live broadcasting.
func WithOnRecorded(fn func(*measurement.Record)) Option {
	return func(s *Service) { s.onRecorded = fn }
}

// NewService constructs a Service.
func NewService(records measurement.RecordRepository, runner measurement.Runner, clock Clock, logger *log.Logger, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("measurement service: nil record repository")
	}
	if runner == nil {
		return nil, errors.New("measurement service: nil runner")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Service{records: records, runner: runner, clock: clock, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunAndRecord executes a measurement for the provider's link and
// persists the record labeled with the provider's stored label. The
// record carries the provider's section as an explicit payload tag so
// later matching does not depend on label parsing.
func (s *Service) RunAndRecord(ctx context.Context, office *offices.Office, provider offices.ISPProvider) (*measurement.Record, error) {
	if office == nil {
		return nil, offices.ErrNilOffice
	}

	started := s.clock.Now()
	result, err := s.runner.Run(ctx, provider.StoredLabel())
	if s.metrics != nil {
		s.metrics.MeasurementDuration.Observe(s.clock.Now().Sub(started).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("run measurement for %s: %w", provider.StoredLabel(), err)
	}

	record := &measurement.Record{
		ID:            ids.New(),
		OfficeID:      office.ID,
		ISP:           provider.StoredLabel(),
		Timestamp:     s.clock.Now(),
		DownloadMbps:  result.DownloadMbps,
		UploadMbps:    result.UploadMbps,
		PingMs:        result.PingMs,
		JitterMs:      result.JitterMs,
		PacketLossPct: result.PacketLossPct,
		ServerID:      result.ServerID,
		ServerName:    result.ServerName,
		RawData:       tagSection(result.RawData, provider.Section),
	}

	if err := s.records.Save(ctx, record); err != nil {
		// The test itself succeeded; losing the row is data loss.
		if s.logger != nil {
			s.logger.Printf("LOST RESULT: office=%s isp=%s download=%.2f upload=%.2f save error: %v",
				office.ID, record.ISP, record.DownloadMbps, record.UploadMbps, err)
		}
		if s.metrics != nil {
			s.metrics.ObserveFiring(metrics.StatusPersistenceError)
		}
		return nil, fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}
	if s.metrics != nil {
		s.metrics.RecordsTotal.Inc()
	}
	if s.onRecorded != nil {
		s.onRecorded(record)
	}
	return record, nil
}

// tagSection embeds the provider section into the raw payload. The
// tag is the highest-priority hint when matching stored rows back to
// providers.
func tagSection(raw json.RawMessage, section string) json.RawMessage {
	if section == "" || strings.EqualFold(section, offices.SectionGeneral) {
		return raw
	}
	payload := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = map[string]any{"raw": string(raw)}
		}
	}
	payload["section"] = section
	tagged, err := json.Marshal(payload)
	if err != nil {
		return raw
	}
	return tagged
}
