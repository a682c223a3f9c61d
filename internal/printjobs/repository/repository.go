// Package repository provides postgres persistence for print jobs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printstore_backend/internal/printjobs/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrintJob is a fulfillment unit created for a non-stock order item.
// OrderID may be nil (or dangling) when the job is orphaned.
type PrintJob struct {
	ID                   int64
	OrderID              *int64
	OrderItemID          *int64
	ProductID            int64
	ProductName          string
	Status               domain.Status
	Quantity             int
	Options              []byte
	Notes                string
	ActualStartDate      *time.Time
	ActualEndDate        *time.Time
	ActualPrintTimeHours *float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateJobParams carries the fields needed to create a job.
type CreateJobParams struct {
	OrderID     *int64
	OrderItemID *int64
	ProductID   int64
	ProductName string
	Status      domain.Status
	Quantity    int
	Options     []byte
	Notes       string
}

// Repository provides data access for print jobs
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new print jobs repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `id, order_id, order_item_id, product_id, product_name, status, quantity,
	options, notes, actual_start_date, actual_end_date, actual_print_time_hours, created_at, updated_at`

func scanJob(row pgx.Row) (*PrintJob, error) {
	var j PrintJob
	err := row.Scan(
		&j.ID,
		&j.OrderID,
		&j.OrderItemID,
		&j.ProductID,
		&j.ProductName,
		&j.Status,
		&j.Quantity,
		&j.Options,
		&j.Notes,
		&j.ActualStartDate,
		&j.ActualEndDate,
		&j.ActualPrintTimeHours,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob fetches a single print job by ID. Returns (nil, nil) when absent.
func (r *Repository) GetJob(ctx context.Context, id int64) (*PrintJob, error) {
	query := `SELECT ` + jobColumns + ` FROM print_jobs WHERE id = $1`

	j, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get print job: %w", err)
	}
	return j, nil
}

// JobsByOrderID returns every job linked to the given order.
func (r *Repository) JobsByOrderID(ctx context.Context, orderID int64) ([]PrintJob, error) {
	query := `SELECT ` + jobColumns + ` FROM print_jobs WHERE order_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("jobs by order: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// CreateJob inserts a new print job. The unique constraint on order_item_id
// is the backstop against two concurrent repair runs creating the same job:
// the second insert returns (nil, nil) instead of a duplicate.
func (r *Repository) CreateJob(ctx context.Context, params CreateJobParams) (*PrintJob, error) {
	query := `
		INSERT INTO print_jobs (order_id, order_item_id, product_id, product_name, status, quantity, options, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (order_item_id) DO NOTHING
		RETURNING ` + jobColumns

	j, err := scanJob(r.pool.QueryRow(ctx, query,
		params.OrderID,
		params.OrderItemID,
		params.ProductID,
		params.ProductName,
		params.Status,
		params.Quantity,
		params.Options,
		params.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict: a job for this order item already exists.
			return nil, nil
		}
		return nil, fmt.Errorf("create print job: %w", err)
	}
	return j, nil
}

// UpdateStatus sets a job's status, stamping the actual start/end timestamps
// on the first transition into printing respectively a finished state.
// Returns false when the job does not exist or already holds the status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.Status) (bool, error) {
	query := `
		UPDATE print_jobs
		SET actual_start_date = CASE
				WHEN $2 = 'printing' AND actual_start_date IS NULL THEN now()
				ELSE actual_start_date
			END,
			actual_end_date = CASE
				WHEN $2 IN ('completed', 'failed') AND actual_end_date IS NULL THEN now()
				ELSE actual_end_date
			END,
			actual_print_time_hours = CASE
				WHEN $2 IN ('completed', 'failed') AND actual_end_date IS NULL AND actual_start_date IS NOT NULL
					THEN ROUND(EXTRACT(EPOCH FROM (now() - actual_start_date)) / 3600.0, 2)
				ELSE actual_print_time_hours
			END,
			status = $2,
			updated_at = now()
		WHERE id = $1 AND status <> $2`

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return false, fmt.Errorf("update print job status: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// CountByStatus counts jobs currently in any of the given statuses.
func (r *Repository) CountByStatus(ctx context.Context, statuses []domain.Status) (int64, error) {
	query := `SELECT COUNT(*) FROM print_jobs WHERE status = ANY($1)`

	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, raw).Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs by status: %w", err)
	}
	return count, nil
}

// FindOrphanedJobs returns jobs created within the lookback window whose
// order link is null or does not resolve to an existing order.
// The window bounds query cost, not correctness.
func (r *Repository) FindOrphanedJobs(ctx context.Context, daysBack int) ([]PrintJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM print_jobs pj
		WHERE pj.created_at >= now() - make_interval(days => $1)
		  AND (
			pj.order_id IS NULL
			OR NOT EXISTS (SELECT 1 FROM orders o WHERE o.id = pj.order_id)
		  )
		ORDER BY pj.created_at ASC`

	rows, err := r.pool.Query(ctx, query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("find orphaned jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]PrintJob, error) {
	var out []PrintJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan print job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// ListByStatus returns the newest jobs in one status, or all statuses
// when status is empty.
func (r *Repository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]PrintJob, error) {
	var (
		query string
		args  []any
	)
	if status == "" {
		query = `SELECT ` + jobColumns + ` FROM print_jobs ORDER BY created_at DESC LIMIT $1`
		args = []any{limit}
	} else {
		query = `SELECT ` + jobColumns + ` FROM print_jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = []any{status, limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list print jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}
