package memory

import (
	"context"
	"sort"
	"sync"

	schedules "speedwatch/internal/schedules/domain"
	"speedwatch/internal/timeslot"
)

// ScheduleRepository is an in-memory schedule store.
type ScheduleRepository struct {
	mu   sync.RWMutex
	data map[string]schedules.TestSchedule
}

// NewScheduleRepository constructs a repository.
func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{data: make(map[string]schedules.TestSchedule)}
}

// Get loads a schedule by id, nil when absent.
func (r *ScheduleRepository) Get(ctx context.Context, id string) (*schedules.TestSchedule, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	schedule, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	return &schedule, nil
}

// FindActive returns the active schedule for the triple, or nil.
func (r *ScheduleRepository) FindActive(ctx context.Context, officeID, isp string, slot timeslot.Slot) (*schedules.TestSchedule, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, schedule := range r.data {
		if schedule.IsActive && schedule.OfficeID == officeID && schedule.ISP == isp && schedule.Slot == slot {
			s := schedule
			return &s, nil
		}
	}
	return nil, nil
}

// ListActive returns all active schedules ordered by id.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*schedules.TestSchedule, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*schedules.TestSchedule
	for id := range r.data {
		if !r.data[id].IsActive {
			continue
		}
		schedule := r.data[id]
		out = append(out, &schedule)
	}
	sortByID(out)
	return out, nil
}

// ListForOffice returns all of an office's schedules ordered by id.
func (r *ScheduleRepository) ListForOffice(ctx context.Context, officeID string) ([]*schedules.TestSchedule, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*schedules.TestSchedule
	for id := range r.data {
		if r.data[id].OfficeID != officeID {
			continue
		}
		schedule := r.data[id]
		out = append(out, &schedule)
	}
	sortByID(out)
	return out, nil
}

// Save upserts a schedule, enforcing triple uniqueness as the last
// line of defense behind the manager's existence check.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *schedules.TestSchedule) error {
	_ = ctx
	if schedule == nil {
		return schedules.ErrNilSchedule
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if schedule.IsActive {
		for _, existing := range r.data {
			if existing.ID != schedule.ID && existing.IsActive &&
				existing.OfficeID == schedule.OfficeID && existing.ISP == schedule.ISP && existing.Slot == schedule.Slot {
				return schedules.ErrDuplicateSchedule
			}
		}
	}
	r.data[schedule.ID] = *schedule
	return nil
}

// Delete removes a schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()
	return nil
}

func sortByID(list []*schedules.TestSchedule) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
