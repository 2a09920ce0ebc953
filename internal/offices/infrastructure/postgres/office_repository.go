package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	offices "speedwatch/internal/offices/domain"
)

const defaultOfficesTable = "offices"

// DBTX is the subset of *sql.DB the repositories use, so callers can
// pass a transaction instead.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OfficeRepository is a Postgres implementation for offices.
type OfficeRepository struct {
	db    DBTX
	table string
}

// NewOfficeRepository constructs a repository.
func NewOfficeRepository(db DBTX, opts ...OfficeOption) *OfficeRepository {
	repo := &OfficeRepository{db: db, table: defaultOfficesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// OfficeOption configures the repository.
type OfficeOption func(*OfficeRepository)

// WithOfficesTable overrides the default table name.
func WithOfficesTable(table string) OfficeOption {
	return func(repo *OfficeRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads an office by id, nil when absent.
func (r *OfficeRepository) Get(ctx context.Context, id string) (*offices.Office, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("office repo: nil db")
	}
	if id == "" {
		return nil, offices.ErrEmptyOfficeID
	}

	query := fmt.Sprintf(`
SELECT id, unit, sub_unit, location, section, timezone, isp_name, general_isps, section_isps, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	office, err := scanOffice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return office, nil
}

// List returns all offices ordered by unit then id.
func (r *OfficeRepository) List(ctx context.Context) ([]*offices.Office, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("office repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, unit, sub_unit, location, section, timezone, isp_name, general_isps, section_isps, created_at, updated_at
FROM %s
ORDER BY unit, id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*offices.Office
	for rows.Next() {
		office, err := scanOffice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, office)
	}
	return out, rows.Err()
}

// Save upserts an office.
func (r *OfficeRepository) Save(ctx context.Context, office *offices.Office) error {
	if r == nil || r.db == nil {
		return errors.New("office repo: nil db")
	}
	if office == nil {
		return offices.ErrNilOffice
	}
	if err := office.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	unit,
	sub_unit,
	location,
	section,
	timezone,
	isp_name,
	general_isps,
	section_isps
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)
ON CONFLICT (id)
DO UPDATE SET
	unit = EXCLUDED.unit,
	sub_unit = EXCLUDED.sub_unit,
	location = EXCLUDED.location,
	section = EXCLUDED.section,
	timezone = EXCLUDED.timezone,
	isp_name = EXCLUDED.isp_name,
	general_isps = EXCLUDED.general_isps,
	section_isps = EXCLUDED.section_isps,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		office.ID,
		office.Unit,
		office.SubUnit,
		office.Location,
		office.Section,
		office.Timezone,
		office.ISPName,
		office.GeneralISPs,
		office.SectionISPs,
	)
	return err
}

// Delete removes an office.
func (r *OfficeRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("office repo: nil db")
	}
	if id == "" {
		return offices.ErrEmptyOfficeID
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffice(row rowScanner) (*offices.Office, error) {
	var office offices.Office
	var subUnit, location, section, timezone, ispName, generalISPs, sectionISPs sql.NullString
	if err := row.Scan(
		&office.ID,
		&office.Unit,
		&subUnit,
		&location,
		&section,
		&timezone,
		&ispName,
		&generalISPs,
		&sectionISPs,
		&office.CreatedAt,
		&office.UpdatedAt,
	); err != nil {
		return nil, err
	}
	office.SubUnit = subUnit.String
	office.Location = location.String
	office.Section = section.String
	office.Timezone = timezone.String
	office.ISPName = ispName.String
	office.GeneralISPs = generalISPs.String
	office.SectionISPs = sectionISPs.String
	office.CreatedAt = office.CreatedAt.UTC()
	office.UpdatedAt = office.UpdatedAt.UTC()
	return &office, nil
}

var _ offices.OfficeRepository = (*OfficeRepository)(nil)
