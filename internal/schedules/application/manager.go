package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"speedwatch/internal/ids"
	measurementapp "speedwatch/internal/measurement/application"
	measurement "speedwatch/internal/measurement/domain"
	"speedwatch/internal/observability/metrics"
	offices "speedwatch/internal/offices/domain"
	schedules "speedwatch/internal/schedules/domain"
	"speedwatch/internal/timeslot"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Executor runs one measurement and persists its record.
type Executor interface {
	RunAndRecord(ctx context.Context, office *offices.Office, provider offices.ISPProvider) (*measurement.Record, error)
}

// Manager owns the registry of recurring measurement triggers, one per
// (office, ISP, slot). A single Manager instance per deployment is
// assumed; two instances would double-fire every schedule (no
// distributed coordination exists, see DESIGN.md).
type Manager struct {
	schedules schedules.ScheduleRepository
	offices   offices.OfficeRepository
	executor  Executor
	triggers  TriggerRegistry
	refZone   *time.Location
	clock     Clock
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu    sync.Mutex
	armed map[string]TriggerID
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithManagerMetrics attaches the metrics bundle.
func WithManagerMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) ManagerOption {
	return func(mgr *Manager) {
		if clock != nil {
			mgr.clock = clock
		}
	}
}

// NewManager constructs a Manager.
func NewManager(
	scheduleRepo schedules.ScheduleRepository,
	officeRepo offices.OfficeRepository,
	executor Executor,
	triggers TriggerRegistry,
	refZone *time.Location,
	logger *log.Logger,
	opts ...ManagerOption,
) (*Manager, error) {
	if scheduleRepo == nil {
		return nil, errors.New("schedule manager: nil schedule repository")
	}
	if officeRepo == nil {
		return nil, errors.New("schedule manager: nil office repository")
	}
	if executor == nil {
		return nil, errors.New("schedule manager: nil executor")
	}
	if triggers == nil {
		return nil, errors.New("schedule manager: nil trigger registry")
	}
	if refZone == nil {
		refZone = time.UTC
	}
	m := &Manager{
		schedules: scheduleRepo,
		offices:   officeRepo,
		executor:  executor,
		triggers:  triggers,
		refZone:   refZone,
		clock:     systemClock{},
		logger:    logger,
		armed:     make(map[string]TriggerID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start loads every persisted active schedule, arms its trigger and
// begins firing.
func (m *Manager) Start(ctx context.Context) error {
	active, err := m.schedules.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, schedule := range active {
		if err := m.arm(schedule); err != nil {
			return err
		}
	}
	m.triggers.Start()
	m.logf("schedule manager started: %d triggers armed", m.armedCount())
	return nil
}

// Stop halts firing and waits for in-flight callbacks.
func (m *Manager) Stop() {
	m.triggers.Stop()
	m.logf("schedule manager stopped")
}

// SetupOfficeSchedules ensures one active schedule and armed trigger
// per (ISP, slot) combination of the office's current configuration.
// Calling it twice in a row creates nothing new; pre-existing
// schedules are left untouched.
func (m *Manager) SetupOfficeSchedules(ctx context.Context, officeID string) ([]*schedules.TestSchedule, error) {
	office, err := m.offices.Get(ctx, officeID)
	if err != nil {
		return nil, err
	}
	if office == nil {
		return nil, offices.ErrOfficeNotFound
	}

	providers, warnings := offices.ParseProviders(*office)
	for _, warning := range warnings {
		m.logf("office %s config: %s", officeID, warning)
	}

	now := m.clock.Now()
	var ensured []*schedules.TestSchedule
	for _, provider := range providers {
		isp := provider.StoredLabel()
		for _, slot := range timeslot.All() {
			existing, err := m.schedules.FindActive(ctx, officeID, isp, slot)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				if err := m.arm(existing); err != nil {
					return nil, err
				}
				ensured = append(ensured, existing)
				continue
			}
			schedule := &schedules.TestSchedule{
				ID:        ids.New(),
				OfficeID:  officeID,
				ISP:       isp,
				Slot:      slot,
				IsActive:  true,
				NextRun:   m.upcomingFiring(now, slot),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := m.schedules.Save(ctx, schedule); err != nil {
				return nil, err
			}
			if err := m.arm(schedule); err != nil {
				return nil, err
			}
			ensured = append(ensured, schedule)
		}
	}
	return ensured, nil
}

// Deactivate stops a schedule without deleting its row.
func (m *Manager) Deactivate(ctx context.Context, scheduleID string) error {
	schedule, err := m.schedules.Get(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule == nil {
		return schedules.ErrScheduleNotFound
	}
	schedule.IsActive = false
	schedule.UpdatedAt = m.clock.Now()
	if err := m.schedules.Save(ctx, schedule); err != nil {
		return err
	}
	m.disarm(scheduleID)
	return nil
}

// Remove cancels the trigger and deletes the schedule. An in-flight
// firing is not interrupted; its late result still persists.
func (m *Manager) Remove(ctx context.Context, scheduleID string) error {
	m.disarm(scheduleID)
	return m.schedules.Delete(ctx, scheduleID)
}

// Armed reports whether a trigger is currently armed for the schedule.
func (m *Manager) Armed(scheduleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.armed[scheduleID]
	return ok
}

func (m *Manager) arm(schedule *schedules.TestSchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, already := m.armed[schedule.ID]; already {
		return nil
	}
	hour, minute := schedule.Slot.FiringTime()
	scheduleID := schedule.ID
	triggerID, err := m.triggers.Arm(TimeOfDay{Hour: hour, Minute: minute}, func() {
		m.fire(scheduleID)
	})
	if err != nil {
		return err
	}
	m.armed[schedule.ID] = triggerID
	if m.metrics != nil {
		m.metrics.SchedulesActive.Set(float64(len(m.armed)))
	}
	return nil
}

func (m *Manager) disarm(scheduleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	triggerID, ok := m.armed[scheduleID]
	if !ok {
		return
	}
	m.triggers.Disarm(triggerID)
	delete(m.armed, scheduleID)
	if m.metrics != nil {
		m.metrics.SchedulesActive.Set(float64(len(m.armed)))
	}
}

// fire executes one scheduled measurement. Any failure aborts only
// this firing; the recurring trigger stays armed and the next natural
// firing 24h later is the retry.
func (m *Manager) fire(scheduleID string) {
	ctx := context.Background()

	schedule, err := m.schedules.Get(ctx, scheduleID)
	if err != nil || schedule == nil || !schedule.IsActive {
		m.logf("firing %s skipped: schedule unavailable (err=%v)", scheduleID, err)
		return
	}

	office, err := m.offices.Get(ctx, schedule.OfficeID)
	if err != nil {
		m.logf("firing %s: office lookup error: %v", scheduleID, err)
		return
	}
	if office == nil {
		// The office is gone but the schedule row is not; keep the
		// trigger armed so a restored office resumes without rearming.
		m.observe(metrics.StatusOfficeMissing)
		m.logf("firing %s: office %s not found, trigger stays armed", scheduleID, schedule.OfficeID)
		return
	}

	providers, _ := offices.ParseProviders(*office)
	provider, _ := offices.MatchLabel(providers, schedule.ISP, "")

	if _, err := m.executor.RunAndRecord(ctx, office, provider); err != nil {
		if !errors.Is(err, measurementapp.ErrRecordingFailed) {
			m.observe(metrics.StatusMeasurementError)
		}
		m.logf("firing %s: office=%s isp=%s failed, next attempt on the following cycle: %v",
			scheduleID, office.ID, schedule.ISP, err)
		return
	}
	m.observe(metrics.StatusSuccess)

	// The schedule may have been removed while the measurement was in
	// flight; the record is kept but the bookkeeping row is gone.
	current, err := m.schedules.Get(ctx, scheduleID)
	if err != nil || current == nil {
		m.logf("firing %s: schedule gone after completion, result kept (err=%v)", scheduleID, err)
		return
	}
	schedule = current

	now := m.clock.Now()
	schedule.LastRun = now
	schedule.NextRun = m.nextFiring(now, schedule.Slot)
	schedule.UpdatedAt = now
	if err := m.schedules.Save(ctx, schedule); err != nil {
		m.logf("firing %s: bookkeeping update failed: %v", scheduleID, err)
	}
}

// upcomingFiring returns the next occurrence of the slot's firing time
// from now, in the reference timezone.
func (m *Manager) upcomingFiring(now time.Time, slot timeslot.Slot) time.Time {
	hour, minute := slot.FiringTime()
	local := now.In(m.refZone)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, m.refZone)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextFiring returns the same fixed time on the following day.
func (m *Manager) nextFiring(now time.Time, slot timeslot.Slot) time.Time {
	hour, minute := slot.FiringTime()
	local := now.In(m.refZone)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, m.refZone).AddDate(0, 0, 1)
}

func (m *Manager) armedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.armed)
}

func (m *Manager) observe(status string) {
	if m.metrics != nil {
		m.metrics.ObserveFiring(status)
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
