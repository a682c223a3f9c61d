// Package service implements order management: reads, creation, and the
// status transitions that drive print job synchronization.
package service

import (
	"context"
	"fmt"

	"printstore_backend/internal/events"
	"printstore_backend/internal/orders/domain"
	"printstore_backend/internal/orders/repository"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

// Store is the slice of the orders repository the service needs.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*repository.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]repository.OrderItem, error)
	ListRecent(ctx context.Context, limit int) ([]repository.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.Status) (bool, error)
	CreateWithItems(ctx context.Context, order *repository.Order, items []repository.OrderItem) error
}

// JobReader provides read access to an order's print jobs for detail views.
type JobReader interface {
	JobsByOrderID(ctx context.Context, orderID int64) ([]jobsrepo.PrintJob, error)
}

// Service provides order operations.
type Service struct {
	store Store
	jobs  JobReader
	bus   platformevents.Bus
	log   *logger.Logger
}

func New(store Store, jobs JobReader, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{store: store, jobs: jobs, bus: bus, log: log}
}

// Detail bundles an order with its items and print jobs.
type Detail struct {
	Order *repository.Order      `json:"order"`
	Items []repository.OrderItem `json:"items"`
	Jobs  []jobsrepo.PrintJob    `json:"print_jobs"`
}

// Get returns one order with items and jobs.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load order", err)
	}
	if order == nil {
		return nil, apperr.NotFound(fmt.Sprintf("order #%d not found", id))
	}

	items, err := s.store.GetOrderItems(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load order items", err)
	}
	jobs, err := s.jobs.JobsByOrderID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load print jobs", err)
	}
	return &Detail{Order: order, Items: items, Jobs: jobs}, nil
}

// List returns the newest orders.
func (s *Service) List(ctx context.Context, limit int) ([]repository.Order, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	orders, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list orders", err)
	}
	return orders, nil
}

// NewItem describes one line of a new order.
type NewItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	IsStockItem bool
	Options     []byte
}

// Create stores a new order with its items and announces it as a status
// change from nothing to its initial status, so print jobs get created.
func (s *Service) Create(ctx context.Context, items []NewItem) (*repository.Order, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("an order needs at least one item")
	}

	order := &repository.Order{Status: domain.StatusPending}
	rows := make([]repository.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		rows = append(rows, repository.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			IsStockItem: item.IsStockItem,
			Options:     item.Options,
		})
	}

	if err := s.store.CreateWithItems(ctx, order, rows); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create order", err)
	}

	s.publish(ctx, events.NewOrderStatusChanged(order.ID, "", string(order.Status)))
	return order, nil
}

// UpdateStatus moves an order to a new status and publishes the change.
// Terminal orders are immutable.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.Status, note string) (*repository.Order, error) {
	if !status.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load order", err)
	}
	if order == nil {
		return nil, apperr.NotFound(fmt.Sprintf("order #%d not found", id))
	}
	if order.Status.IsTerminal() {
		return nil, apperr.Conflict(fmt.Sprintf("order #%d is %s and cannot change status", id, order.Status))
	}
	if order.Status == status {
		return order, nil
	}

	changed, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update order status", err)
	}
	if changed {
		fields := []any{"order_id", id, "old_status", order.Status, "new_status", status}
		if note != "" {
			fields = append(fields, "note", note)
		}
		s.log.Info("order status updated", fields...)
		s.publish(ctx, events.NewOrderStatusChanged(id, string(order.Status), string(status)))
	}

	order.Status = status
	return order, nil
}

func (s *Service) publish(ctx context.Context, event platformevents.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}
