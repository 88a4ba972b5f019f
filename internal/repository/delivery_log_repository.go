// internal/repository/delivery_log_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

// DeliveryLogRepositoryInterface is append-only: records are never updated or deleted.
type DeliveryLogRepositoryInterface interface {
	Append(ctx context.Context, rec *model.DeliveryRecord) error
	QueryAll(ctx context.Context) ([]model.DeliveryRecord, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Timeline(ctx context.Context) ([]model.DailyCount, error)
}

type DeliveryLogRepository struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewDeliveryLogRepository(db *sql.DB) *DeliveryLogRepository {
	return &DeliveryLogRepository{DB: db, Now: time.Now}
}

// Append stamps the record with the write time and stores it. ID and
// Timestamp are filled in on success.
func (r *DeliveryLogRepository) Append(ctx context.Context, rec *model.DeliveryRecord) error {
	if rec.Status != model.DeliveryStatusSent && rec.Status != model.DeliveryStatusFailed {
		return fmt.Errorf("unknown delivery status %q", rec.Status)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ts := now().UTC()

	query := `
        INSERT INTO email_logs (run_id, recipient, subject, status, timestamp, error)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	var id int64
	err := r.DB.QueryRowContext(ctx, query,
		rec.RunID, rec.Recipient, rec.Subject, rec.Status, ts, rec.Error,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("append delivery record for %s: %w", rec.Recipient, err)
	}

	rec.ID = id
	rec.Timestamp = ts
	return nil
}

// QueryAll returns every record, newest first. Ties on timestamp fall back to id.
func (r *DeliveryLogRepository) QueryAll(ctx context.Context) ([]model.DeliveryRecord, error) {
	query := `
        SELECT id, run_id, recipient, subject, status, timestamp, error
        FROM email_logs
        ORDER BY timestamp DESC, id DESC
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.DeliveryRecord{}
	for rows.Next() {
		var (
			rec    model.DeliveryRecord
			rawTS  any
			errMsg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Recipient, &rec.Subject, &rec.Status, &rawTS, &errMsg); err != nil {
			return nil, err
		}
		ts, err := scanTime(rawTS)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		rec.Timestamp = ts
		if errMsg.Valid {
			rec.Error = &errMsg.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *DeliveryLogRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM email_logs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{model.DeliveryStatusSent: 0, model.DeliveryStatusFailed: 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Timeline counts records per UTC day, oldest day first.
func (r *DeliveryLogRepository) Timeline(ctx context.Context) ([]model.DailyCount, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT timestamp FROM email_logs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perDay := map[string]int{}
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		ts, err := scanTime(raw)
		if err != nil {
			return nil, err
		}
		perDay[ts.UTC().Format(time.DateOnly)]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	timeline := make([]model.DailyCount, 0, len(perDay))
	for day, n := range perDay {
		timeline = append(timeline, model.DailyCount{Day: day, Count: n})
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Day < timeline[j].Day })
	return timeline, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// scanTime accepts whatever the driver hands back for a timestamp column.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

var _ DeliveryLogRepositoryInterface = (*DeliveryLogRepository)(nil)
