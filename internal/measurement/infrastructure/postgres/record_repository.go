package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	measurement "speedwatch/internal/measurement/domain"
)

const defaultRecordsTable = "speed_test_records"

// DBTX is the subset of *sql.DB the repository uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RecordRepository is a Postgres implementation for speed test records.
type RecordRepository struct {
	db    DBTX
	table string
}

// NewRecordRepository constructs a repository.
func NewRecordRepository(db DBTX, opts ...RecordOption) *RecordRepository {
	repo := &RecordRepository{db: db, table: defaultRecordsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RecordOption configures the repository.
type RecordOption func(*RecordRepository)

// WithRecordsTable overrides the default table name.
func WithRecordsTable(table string) RecordOption {
	return func(repo *RecordRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Save inserts a record. Records are append-only; a duplicate id is an
// error rather than an upsert.
func (r *RecordRepository) Save(ctx context.Context, record *measurement.Record) error {
	if r == nil || r.db == nil {
		return errors.New("record repo: nil db")
	}
	if record == nil {
		return measurement.ErrNilRecord
	}
	if err := record.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	office_id,
	isp,
	recorded_at,
	download_mbps,
	upload_mbps,
	ping_ms,
	jitter_ms,
	packet_loss_pct,
	server_id,
	server_name,
	raw_data
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)`, r.table)

	var raw any
	if len(record.RawData) > 0 {
		raw = []byte(record.RawData)
	}
	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.OfficeID,
		record.ISP,
		record.Timestamp.UTC(),
		record.DownloadMbps,
		record.UploadMbps,
		record.PingMs,
		record.JitterMs,
		record.PacketLossPct,
		record.ServerID,
		record.ServerName,
		raw,
	)
	return err
}

// ListForDay returns the office's records for one calendar day in loc,
// ordered by timestamp ascending. The day boundaries are computed in
// loc, not UTC, so a Manila morning stays a Manila morning.
func (r *RecordRepository) ListForDay(ctx context.Context, officeID string, day time.Time, loc *time.Location) ([]*measurement.Record, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return r.ListRange(ctx, officeID, from, from.AddDate(0, 0, 1))
}

// ListRange returns the office's records with from <= recorded_at < to.
func (r *RecordRepository) ListRange(ctx context.Context, officeID string, from, to time.Time) ([]*measurement.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("record repo: nil db")
	}
	if officeID == "" {
		return nil, measurement.ErrEmptyOfficeID
	}

	query := fmt.Sprintf(`
SELECT id, office_id, isp, recorded_at, download_mbps, upload_mbps, ping_ms, jitter_ms, packet_loss_pct, server_id, server_name, raw_data
FROM %s
WHERE office_id = $1 AND recorded_at >= $2 AND recorded_at < $3
ORDER BY recorded_at`, r.table)

	rows, err := r.db.QueryContext(ctx, query, officeID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*measurement.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*measurement.Record, error) {
	var record measurement.Record
	var serverID, serverName sql.NullString
	var raw []byte
	if err := row.Scan(
		&record.ID,
		&record.OfficeID,
		&record.ISP,
		&record.Timestamp,
		&record.DownloadMbps,
		&record.UploadMbps,
		&record.PingMs,
		&record.JitterMs,
		&record.PacketLossPct,
		&serverID,
		&serverName,
		&raw,
	); err != nil {
		return nil, err
	}
	record.Timestamp = record.Timestamp.UTC()
	record.ServerID = serverID.String
	record.ServerName = serverName.String
	if len(raw) > 0 {
		record.RawData = raw
	}
	return &record, nil
}

var _ measurement.RecordRepository = (*RecordRepository)(nil)
