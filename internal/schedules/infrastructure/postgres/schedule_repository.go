package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	schedules "speedwatch/internal/schedules/domain"
	"speedwatch/internal/timeslot"
)

const defaultSchedulesTable = "test_schedules"

// DBTX is the subset of *sql.DB the repository uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ScheduleRepository is a Postgres implementation for test schedules.
//
// The triple-uniqueness invariant is enforced by a partial unique index:
//
//	CREATE UNIQUE INDEX test_schedules_active_triple
//	ON test_schedules (office_id, isp, time_slot) WHERE is_active;
type ScheduleRepository struct {
	db    DBTX
	table string
}

// NewScheduleRepository constructs a repository.
func NewScheduleRepository(db DBTX, opts ...ScheduleOption) *ScheduleRepository {
	repo := &ScheduleRepository{db: db, table: defaultSchedulesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ScheduleOption configures the repository.
type ScheduleOption func(*ScheduleRepository)

// WithSchedulesTable overrides the default table name.
func WithSchedulesTable(table string) ScheduleOption {
	return func(repo *ScheduleRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a schedule by id, nil when absent.
func (r *ScheduleRepository) Get(ctx context.Context, id string) (*schedules.TestSchedule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("schedule repo: nil db")
	}
	if id == "" {
		return nil, schedules.ErrEmptyScheduleID
	}

	query := fmt.Sprintf(`
SELECT id, office_id, isp, time_slot, is_active, last_run, next_run, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return schedule, nil
}

// FindActive returns the active schedule for the triple, or nil.
func (r *ScheduleRepository) FindActive(ctx context.Context, officeID, isp string, slot timeslot.Slot) (*schedules.TestSchedule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("schedule repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, office_id, isp, time_slot, is_active, last_run, next_run, created_at, updated_at
FROM %s
WHERE office_id = $1 AND isp = $2 AND time_slot = $3 AND is_active
LIMIT 1`, r.table)

	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, officeID, isp, string(slot)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return schedule, nil
}

// ListActive returns every active schedule ordered by office then slot.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*schedules.TestSchedule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("schedule repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, office_id, isp, time_slot, is_active, last_run, next_run, created_at, updated_at
FROM %s
WHERE is_active
ORDER BY office_id, isp, time_slot`, r.table)
	return r.list(ctx, query)
}

// ListForOffice returns all schedules of one office, active or not.
func (r *ScheduleRepository) ListForOffice(ctx context.Context, officeID string) ([]*schedules.TestSchedule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("schedule repo: nil db")
	}
	if officeID == "" {
		return nil, schedules.ErrEmptyOfficeID
	}
	query := fmt.Sprintf(`
SELECT id, office_id, isp, time_slot, is_active, last_run, next_run, created_at, updated_at
FROM %s
WHERE office_id = $1
ORDER BY isp, time_slot`, r.table)
	return r.list(ctx, query, officeID)
}

// Save upserts a schedule. A violation of the active-triple index is
// surfaced as ErrDuplicateSchedule.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *schedules.TestSchedule) error {
	if r == nil || r.db == nil {
		return errors.New("schedule repo: nil db")
	}
	if schedule == nil {
		return schedules.ErrNilSchedule
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	office_id,
	isp,
	time_slot,
	is_active,
	last_run,
	next_run
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (id)
DO UPDATE SET
	office_id = EXCLUDED.office_id,
	isp = EXCLUDED.isp,
	time_slot = EXCLUDED.time_slot,
	is_active = EXCLUDED.is_active,
	last_run = EXCLUDED.last_run,
	next_run = EXCLUDED.next_run,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		schedule.ID,
		schedule.OfficeID,
		schedule.ISP,
		string(schedule.Slot),
		schedule.IsActive,
		nullTime(schedule.LastRun),
		nullTime(schedule.NextRun),
	)
	if err != nil && isUniqueViolation(err) {
		return schedules.ErrDuplicateSchedule
	}
	return err
}

// Delete removes a schedule row.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("schedule repo: nil db")
	}
	if id == "" {
		return schedules.ErrEmptyScheduleID
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *ScheduleRepository) list(ctx context.Context, query string, args ...any) ([]*schedules.TestSchedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schedules.TestSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*schedules.TestSchedule, error) {
	var schedule schedules.TestSchedule
	var slot string
	var lastRun, nextRun sql.NullTime
	if err := row.Scan(
		&schedule.ID,
		&schedule.OfficeID,
		&schedule.ISP,
		&slot,
		&schedule.IsActive,
		&lastRun,
		&nextRun,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	schedule.Slot = timeslot.Slot(slot)
	if lastRun.Valid {
		schedule.LastRun = lastRun.Time.UTC()
	}
	if nextRun.Valid {
		schedule.NextRun = nextRun.Time.UTC()
	}
	schedule.CreatedAt = schedule.CreatedAt.UTC()
	schedule.UpdatedAt = schedule.UpdatedAt.UTC()
	return &schedule, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// isUniqueViolation matches the Postgres 23505 error class without
// binding the repository to a driver-specific error type.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}

var _ schedules.ScheduleRepository = (*ScheduleRepository)(nil)
