package service

import (
	"context"
	"sync"
	"testing"

	"printstore_backend/internal/events"
	"printstore_backend/internal/orders/domain"
	"printstore_backend/internal/orders/repository"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

type fakeStore struct {
	mu     sync.Mutex
	orders map[int64]*repository.Order
	items  map[int64][]repository.OrderItem
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[int64]*repository.Order),
		items:  make(map[int64][]repository.OrderItem),
		nextID: 100,
	}
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID int64) ([]repository.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Order
	for _, o := range f.orders {
		if len(out) == limit {
			break
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, orderID int64, status domain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status == status {
		return false, nil
	}
	o.Status = status
	return true, nil
}

func (f *fakeStore) CreateWithItems(_ context.Context, order *repository.Order, items []repository.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	order.ID = f.nextID
	cp := *order
	f.orders[order.ID] = &cp
	for i := range items {
		f.nextID++
		items[i].ID = f.nextID
		items[i].OrderID = order.ID
	}
	f.items[order.ID] = items
	return nil
}

func (f *fakeStore) JobsByOrderID(_ context.Context, orderID int64) ([]jobsrepo.PrintJob, error) {
	return nil, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []platformevents.Event
}

func (b *recordingBus) Publish(_ context.Context, event platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event platformevents.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, platformevents.Handler) {}

func (b *recordingBus) statusChanges() []events.OrderStatusChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.OrderStatusChanged
	for _, e := range b.events {
		if sc, ok := e.(events.OrderStatusChanged); ok {
			out = append(out, sc)
		}
	}
	return out
}

func newTestService(store *fakeStore) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, store, bus, logger.New("test")), bus
}

func TestCreatePublishesInitialStatus(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store)

	order, err := svc.Create(context.Background(), []NewItem{
		{ProductID: 10, ProductName: "Phone stand", Quantity: 0},
		{ProductID: 11, ProductName: "Filament spool", Quantity: 2, IsStockItem: true},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.Status != domain.StatusPending {
		t.Fatalf("initial status = %q, want %q", order.Status, domain.StatusPending)
	}

	items := store.items[order.ID]
	if len(items) != 2 {
		t.Fatalf("stored %d items, want 2", len(items))
	}
	if items[0].Quantity != 1 {
		t.Fatalf("zero quantity not defaulted, got %d", items[0].Quantity)
	}

	changes := bus.statusChanges()
	if len(changes) != 1 {
		t.Fatalf("published %d status changes, want 1", len(changes))
	}
	if changes[0].OldStatus != "" || changes[0].NewStatus != string(domain.StatusPending) {
		t.Fatalf("unexpected transition %q -> %q", changes[0].OldStatus, changes[0].NewStatus)
	}
}

func TestCreateRejectsEmptyOrder(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusPublishesTransition(t *testing.T) {
	store := newFakeStore()
	store.orders[5] = &repository.Order{ID: 5, Status: domain.StatusPending}
	svc, bus := newTestService(store)

	order, err := svc.UpdateStatus(context.Background(), 5, domain.StatusPrinting, "operator started batch")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if order.Status != domain.StatusPrinting {
		t.Fatalf("status = %q, want printing", order.Status)
	}

	changes := bus.statusChanges()
	if len(changes) != 1 {
		t.Fatalf("published %d status changes, want 1", len(changes))
	}
	if changes[0].OrderID != 5 || changes[0].NewStatus != "printing" {
		t.Fatalf("unexpected event %+v", changes[0])
	}
}

func TestUpdateStatusSameStatusIsQuiet(t *testing.T) {
	store := newFakeStore()
	store.orders[5] = &repository.Order{ID: 5, Status: domain.StatusPrinting}
	svc, bus := newTestService(store)

	if _, err := svc.UpdateStatus(context.Background(), 5, domain.StatusPrinting, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if n := len(bus.statusChanges()); n != 0 {
		t.Fatalf("published %d events for a no-op update", n)
	}
}

func TestUpdateStatusRejectsTerminalOrder(t *testing.T) {
	store := newFakeStore()
	store.orders[5] = &repository.Order{ID: 5, Status: domain.StatusCancelled}
	svc, _ := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), 5, domain.StatusPrinting, "")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.UpdateStatus(context.Background(), 5, domain.Status("melted"), "")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.Get(context.Background(), 404)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
