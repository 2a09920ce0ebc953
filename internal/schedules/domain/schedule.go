package schedules

import (
	"context"
	"errors"
	"time"

	"speedwatch/internal/timeslot"
)

var (
	// ErrNilSchedule is returned when saving a nil schedule.
	ErrNilSchedule = errors.New("schedules: nil schedule")
	// ErrEmptyScheduleID is returned when a schedule id is empty.
	ErrEmptyScheduleID = errors.New("schedules: empty schedule id")
	// ErrEmptyOfficeID is returned when a schedule has no office.
	ErrEmptyOfficeID = errors.New("schedules: empty office id")
	// ErrEmptyISP is returned when a schedule has no ISP label.
	ErrEmptyISP = errors.New("schedules: empty isp")
	// ErrInvalidSlot is returned for an unknown time slot.
	ErrInvalidSlot = errors.New("schedules: invalid time slot")
	// ErrScheduleNotFound is returned when a schedule does not exist.
	ErrScheduleNotFound = errors.New("schedules: schedule not found")
	// ErrDuplicateSchedule is returned when an active schedule already
	// exists for the same (office, isp, slot) triple.
	ErrDuplicateSchedule = errors.New("schedules: duplicate active schedule")
)

// TestSchedule is a recurring daily measurement for one office, ISP
// and time slot. At most one active schedule exists per
// (OfficeID, ISP, Slot) triple.
type TestSchedule struct {
	ID       string
	OfficeID string
	ISP      string
	Slot     timeslot.Slot
	IsActive bool
	LastRun  time.Time
	NextRun  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks schedule invariants.
func (s TestSchedule) Validate() error {
	if s.ID == "" {
		return ErrEmptyScheduleID
	}
	if s.OfficeID == "" {
		return ErrEmptyOfficeID
	}
	if s.ISP == "" {
		return ErrEmptyISP
	}
	if !s.Slot.Valid() {
		return ErrInvalidSlot
	}
	return nil
}

// ScheduleRepository persists test schedules.
type ScheduleRepository interface {
	Get(ctx context.Context, id string) (*TestSchedule, error)
	// FindActive returns the active schedule for the triple, or nil.
	FindActive(ctx context.Context, officeID, isp string, slot timeslot.Slot) (*TestSchedule, error)
	ListActive(ctx context.Context) ([]*TestSchedule, error)
	ListForOffice(ctx context.Context, officeID string) ([]*TestSchedule, error)
	Save(ctx context.Context, schedule *TestSchedule) error
	Delete(ctx context.Context, id string) error
}
