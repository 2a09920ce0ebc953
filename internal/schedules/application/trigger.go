package application

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TimeOfDay is a fixed wall-clock firing time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TriggerID identifies one armed trigger.
type TriggerID int

// TriggerRegistry arms recurring daily callbacks at fixed wall-clock
// times in one reference timezone. Implementations must fire each
// callback in its own goroutine so a blocking callback never delays
// other triggers.
type TriggerRegistry interface {
	Arm(at TimeOfDay, callback func()) (TriggerID, error)
	Disarm(id TriggerID)
	Start()
	Stop()
}

// CronTriggers implements TriggerRegistry on robfig/cron. The cron
// syntax stays an implementation detail; callers only see
// (time-of-day, timezone, callback).
type CronTriggers struct {
	cron *cron.Cron
}

// NewCronTriggers constructs a registry firing in loc.
func NewCronTriggers(loc *time.Location) *CronTriggers {
	if loc == nil {
		loc = time.UTC
	}
	return &CronTriggers{cron: cron.New(cron.WithLocation(loc))}
}

// Arm schedules callback daily at the given time.
func (t *CronTriggers) Arm(at TimeOfDay, callback func()) (TriggerID, error) {
	spec := fmt.Sprintf("%d %d * * *", at.Minute, at.Hour)
	id, err := t.cron.AddFunc(spec, callback)
	if err != nil {
		return 0, fmt.Errorf("arm trigger at %s: %w", at, err)
	}
	return TriggerID(id), nil
}

// Disarm cancels a trigger. In-flight callbacks are not interrupted.
func (t *CronTriggers) Disarm(id TriggerID) {
	t.cron.Remove(cron.EntryID(id))
}

// Start begins firing.
func (t *CronTriggers) Start() {
	t.cron.Start()
}

// Stop halts future firings and waits for running callbacks.
func (t *CronTriggers) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
}
