// Package repository provides postgres persistence for orders and order items.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printstore_backend/internal/orders/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Order is a customer purchase record with a lifecycle status.
type Order struct {
	ID                      int64
	Status                  domain.Status
	EstimatedPrintTimeHours *float64
	PrintStartDate          *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// OrderItem is a single purchased line of an order. Stock items are
// fulfilled from inventory and never require a print job.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	IsStockItem bool
	Options     []byte
}

// Repository provides data access for orders
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, status, estimated_print_time_hours, print_start_date, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.Status,
		&o.EstimatedPrintTimeHours,
		&o.PrintStartDate,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder fetches a single order by ID. Returns (nil, nil) when absent.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrderItems returns all items belonging to an order.
func (r *Repository) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, is_stock_item, options
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.IsStockItem, &it.Options); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateStatus sets the order status. Returns false when the order does not
// exist or already holds the requested status.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, status domain.Status) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2`

	result, err := r.pool.Exec(ctx, query, orderID, status)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// StampPrintStartDate records when the order first entered printing.
// A second call is a no-op; the first stamp wins.
func (r *Repository) StampPrintStartDate(ctx context.Context, orderID int64, at time.Time) error {
	query := `
		UPDATE orders
		SET print_start_date = $2, updated_at = now()
		WHERE id = $1 AND print_start_date IS NULL`

	if _, err := r.pool.Exec(ctx, query, orderID, at); err != nil {
		return fmt.Errorf("stamp print start date: %w", err)
	}
	return nil
}

// CreateWithItems inserts an order and its items in one transaction.
// Used by import/backfill tooling; checkout lives upstream.
func (r *Repository) CreateWithItems(ctx context.Context, order *Order, items []OrderItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (status, estimated_print_time_hours, print_start_date, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, created_at, updated_at`,
		order.Status, order.EstimatedPrintTimeHours, order.PrintStartDate,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, is_stock_item, options)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			order.ID, items[i].ProductID, items[i].ProductName, items[i].Quantity, items[i].IsStockItem, items[i].Options,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FindIncompleteFlows returns orders created within the lookback window that
// contain at least one non-stock item with no print job covering it.
// The window bounds query cost, not correctness.
func (r *Repository) FindIncompleteFlows(ctx context.Context, daysBack int) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.created_at >= now() - make_interval(days => $1)
		  AND o.status NOT IN ('cancelled', 'delivered')
		  AND EXISTS (
			SELECT 1 FROM order_items oi
			WHERE oi.order_id = o.id
			  AND oi.is_stock_item = false
			  AND NOT EXISTS (
				SELECT 1 FROM print_jobs pj WHERE pj.order_item_id = oi.id
			  )
		  )
		ORDER BY o.created_at ASC`

	rows, err := r.pool.Query(ctx, query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("find incomplete flows: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// ListRecent returns the newest orders first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Status, &o.EstimatedPrintTimeHours, &o.PrintStartDate, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
