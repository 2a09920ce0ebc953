package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	compliance "speedwatch/internal/compliance/domain"
	measurement "speedwatch/internal/measurement/domain"
	"speedwatch/internal/observability/metrics"
	offices "speedwatch/internal/offices/domain"
	"speedwatch/internal/timeslot"
)

// Service computes daily compliance reports from persisted records.
type Service struct {
	offices  offices.OfficeRepository
	records  measurement.RecordRepository
	resolver *timeslot.Resolver
	logger   *log.Logger
	metrics  *metrics.Metrics
}

// Option configures the service.
type Option func(*Service)

// WithMetrics attaches the metrics bundle; each computed office report
// updates the compliance gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a compliance service.
func NewService(
	officeRepo offices.OfficeRepository,
	recordRepo measurement.RecordRepository,
	resolver *timeslot.Resolver,
	logger *log.Logger,
	opts ...Option,
) (*Service, error) {
	if officeRepo == nil {
		return nil, errors.New("compliance service: nil office repository")
	}
	if recordRepo == nil {
		return nil, errors.New("compliance service: nil record repository")
	}
	if resolver == nil {
		resolver = timeslot.NewResolver("", nil)
	}
	s := &Service{
		offices:  officeRepo,
		records:  recordRepo,
		resolver: resolver,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DailyReport computes one office's compliance for the given calendar
// day. clientZone may be empty; the office timezone and then the app
// default take over.
func (s *Service) DailyReport(ctx context.Context, officeID string, day time.Time, clientZone string) (compliance.OfficeReport, error) {
	office, err := s.offices.Get(ctx, officeID)
	if err != nil {
		return compliance.OfficeReport{}, fmt.Errorf("load office: %w", err)
	}
	if office == nil {
		return compliance.OfficeReport{}, offices.ErrOfficeNotFound
	}
	return s.reportFor(ctx, office, day, clientZone)
}

// FleetReport computes every office's report for the day plus the
// fleet-level categorization.
func (s *Service) FleetReport(ctx context.Context, day time.Time) (compliance.FleetSummary, error) {
	all, err := s.offices.List(ctx)
	if err != nil {
		return compliance.FleetSummary{}, fmt.Errorf("list offices: %w", err)
	}

	reports := make([]compliance.OfficeReport, 0, len(all))
	for _, office := range all {
		report, err := s.reportFor(ctx, office, day, "")
		if err != nil {
			return compliance.FleetSummary{}, fmt.Errorf("office %s: %w", office.ID, err)
		}
		reports = append(reports, report)
	}
	return compliance.Summarize(reports), nil
}

func (s *Service) reportFor(ctx context.Context, office *offices.Office, day time.Time, clientZone string) (compliance.OfficeReport, error) {
	zone := clientZone
	if zone == "" {
		zone = office.Timezone
	}
	loc, _ := s.resolver.Location(zone)

	records, err := s.records.ListForDay(ctx, office.ID, day, loc)
	if err != nil {
		return compliance.OfficeReport{}, fmt.Errorf("list records: %w", err)
	}

	providers, warnings := offices.ParseProviders(*office)
	for _, warning := range warnings {
		s.logf("office %s config: %s", office.ID, warning)
	}

	report := compliance.ComputeOffice(*office, providers, records, loc)
	local := day.In(loc)
	report.Day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if s.metrics != nil {
		s.metrics.CompliancePercent.WithLabelValues(office.ID).Set(float64(report.Percentage))
	}
	return report, nil
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
