// Package repository provides postgres persistence for the integration
// event log: the append-only audit trail of every reconciliation action.
// There are intentionally no update or delete paths.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Log entry status tags.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusInfo    = "info"
)

// ValidStatusTag reports whether tag is a known log status tag.
func ValidStatusTag(tag string) bool {
	switch tag {
	case StatusSuccess, StatusWarning, StatusError, StatusInfo:
		return true
	}
	return false
}

// LogEntry is one audit record of a reconciliation action.
type LogEntry struct {
	ID         int64
	OrderID    *int64
	PrintJobID *int64
	Event      string
	Status     string
	Details    []byte
	ActorID    *uuid.UUID
	ActorName  *string
	CreatedAt  time.Time
}

// NewEntry carries the fields for appending a log entry.
type NewEntry struct {
	OrderID    *int64
	PrintJobID *int64
	Event      string
	Status     string
	Details    map[string]any
	ActorID    *uuid.UUID
	ActorName  *string
}

// EventStat is an aggregated (event, status) count.
type EventStat struct {
	Event  string
	Status string
	Count  int64
}

// DailyCount is the per-day activity of one status tag, for dashboard charts.
type DailyCount struct {
	Day     time.Time
	Success int64
	Warning int64
	Error   int64
	Info    int64
}

// Repository provides data access for integration log entries
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new integration log repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, order_id, print_job_id, event, status, details, actor_id, actor_name, created_at`

func scanEntry(row pgx.Row) (*LogEntry, error) {
	var e LogEntry
	err := row.Scan(
		&e.ID,
		&e.OrderID,
		&e.PrintJobID,
		&e.Event,
		&e.Status,
		&e.Details,
		&e.ActorID,
		&e.ActorName,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LogEvent appends one audit entry. Unknown status tags are coerced to info
// so a bad caller can never make an append fail.
func (r *Repository) LogEvent(ctx context.Context, entry NewEntry) error {
	if entry.Event == "" {
		return fmt.Errorf("log event: empty event description")
	}
	if !ValidStatusTag(entry.Status) {
		entry.Status = StatusInfo
	}

	var details []byte
	if len(entry.Details) > 0 {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("log event: marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO integration_logs (order_id, print_job_id, event, status, details, actor_id, actor_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

	_, err := r.pool.Exec(ctx, query,
		entry.OrderID,
		entry.PrintJobID,
		entry.Event,
		entry.Status,
		details,
		entry.ActorID,
		entry.ActorName,
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// RecentEvents returns the latest entries, newest first.
func (r *Repository) RecentEvents(ctx context.Context, limit int) ([]LogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM integration_logs ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// EventsByStatus returns the latest entries holding the given status tag.
func (r *Repository) EventsByStatus(ctx context.Context, status string, limit int) ([]LogEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM integration_logs
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("events by status: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// EventsByOrderID returns the audit trail of one order, newest first.
func (r *Repository) EventsByOrderID(ctx context.Context, orderID int64) ([]LogEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM integration_logs
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("events by order: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// EventsByPrintJobID returns the audit trail of one print job, newest first.
func (r *Repository) EventsByPrintJobID(ctx context.Context, printJobID int64) ([]LogEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM integration_logs
		WHERE print_job_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, printJobID)
	if err != nil {
		return nil, fmt.Errorf("events by print job: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// EventsStatistics returns (event, status) counts within the lookback window,
// highest counts first.
func (r *Repository) EventsStatistics(ctx context.Context, daysBack int) ([]EventStat, error) {
	query := `
		SELECT event, status, COUNT(*)
		FROM integration_logs
		WHERE created_at >= now() - make_interval(days => $1)
		GROUP BY event, status
		ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("events statistics: %w", err)
	}
	defer rows.Close()

	var stats []EventStat
	for rows.Next() {
		var s EventStat
		if err := rows.Scan(&s.Event, &s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("scan event stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CountByStatusSince counts entries with the given tag within the window.
func (r *Repository) CountByStatusSince(ctx context.Context, status string, daysBack int) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM integration_logs
		WHERE status = $1 AND created_at >= now() - make_interval(days => $2)`

	var count int64
	if err := r.pool.QueryRow(ctx, query, status, daysBack).Scan(&count); err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

// DailyActivity returns one row per day over the trailing window with
// per-tag counts, oldest day first. Days without entries are included.
func (r *Repository) DailyActivity(ctx context.Context, days int) ([]DailyCount, error) {
	query := `
		SELECT d.day,
			COUNT(*) FILTER (WHERE il.status = 'success'),
			COUNT(*) FILTER (WHERE il.status = 'warning'),
			COUNT(*) FILTER (WHERE il.status = 'error'),
			COUNT(*) FILTER (WHERE il.status = 'info')
		FROM generate_series(
			date_trunc('day', now()) - make_interval(days => $1 - 1),
			date_trunc('day', now()),
			interval '1 day'
		) AS d(day)
		LEFT JOIN integration_logs il ON date_trunc('day', il.created_at) = d.day
		GROUP BY d.day
		ORDER BY d.day`

	rows, err := r.pool.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Success, &dc.Warning, &dc.Error, &dc.Info); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]LogEntry, error) {
	var out []LogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
