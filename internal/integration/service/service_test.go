package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	logrepo "printstore_backend/internal/integration/repository"
	orderdomain "printstore_backend/internal/orders/domain"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobdomain "printstore_backend/internal/printjobs/domain"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

type fakeStore struct {
	mu     sync.Mutex
	orders map[int64]*ordersrepo.Order
	items  map[int64][]ordersrepo.OrderItem
	jobs   map[int64]*jobsrepo.PrintJob
	nextID int64

	entries []logrepo.NewEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[int64]*ordersrepo.Order),
		items:  make(map[int64][]ordersrepo.OrderItem),
		jobs:   make(map[int64]*jobsrepo.PrintJob),
		nextID: 1000,
	}
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*ordersrepo.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID int64) ([]ordersrepo.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ordersrepo.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, orderID int64, status orderdomain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status == status {
		return false, nil
	}
	o.Status = status
	return true, nil
}

func (f *fakeStore) StampPrintStartDate(_ context.Context, orderID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok && o.PrintStartDate == nil {
		o.PrintStartDate = &at
	}
	return nil
}

func (f *fakeStore) FindIncompleteFlows(_ context.Context, _ int) ([]ordersrepo.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ordersrepo.Order
	for _, o := range f.orders {
		if o.Status.IsTerminal() {
			continue
		}
		covered := make(map[int64]bool)
		for _, j := range f.jobs {
			if j.OrderItemID != nil {
				covered[*j.OrderItemID] = true
			}
		}
		for _, item := range f.items[o.ID] {
			if !item.IsStockItem && !covered[item.ID] {
				out = append(out, *o)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetJob(_ context.Context, id int64) (*jobsrepo.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) JobsByOrderID(_ context.Context, orderID int64) ([]jobsrepo.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []jobsrepo.PrintJob
	for _, j := range f.jobs {
		if j.OrderID != nil && *j.OrderID == orderID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateJob(_ context.Context, params jobsrepo.CreateJobParams) (*jobsrepo.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if params.OrderItemID != nil {
		for _, j := range f.jobs {
			if j.OrderItemID != nil && *j.OrderItemID == *params.OrderItemID {
				return nil, nil
			}
		}
	}
	f.nextID++
	job := &jobsrepo.PrintJob{
		ID:          f.nextID,
		OrderID:     params.OrderID,
		OrderItemID: params.OrderItemID,
		ProductID:   params.ProductID,
		ProductName: params.ProductName,
		Status:      params.Status,
		Quantity:    params.Quantity,
	}
	f.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, id int64, status jobdomain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status == status {
		return false, nil
	}
	j.Status = status
	return true, nil
}

func (f *fakeStore) CountByStatus(_ context.Context, statuses []jobdomain.Status) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.jobs {
		for _, s := range statuses {
			if j.Status == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (f *fakeStore) FindOrphanedJobs(_ context.Context, _ int) ([]jobsrepo.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []jobsrepo.PrintJob
	for _, j := range f.jobs {
		if j.OrderID == nil {
			out = append(out, *j)
			continue
		}
		if _, ok := f.orders[*j.OrderID]; !ok {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeStore) LogEvent(_ context.Context, entry logrepo.NewEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) RecentEvents(_ context.Context, limit int) ([]logrepo.LogEntry, error) {
	return nil, nil
}

func (f *fakeStore) EventsByStatus(_ context.Context, status string, limit int) ([]logrepo.LogEntry, error) {
	return nil, nil
}

func (f *fakeStore) EventsByOrderID(_ context.Context, orderID int64) ([]logrepo.LogEntry, error) {
	return nil, nil
}

func (f *fakeStore) EventsByPrintJobID(_ context.Context, printJobID int64) ([]logrepo.LogEntry, error) {
	return nil, nil
}

func (f *fakeStore) EventsStatistics(_ context.Context, daysBack int) ([]logrepo.EventStat, error) {
	return nil, nil
}

func (f *fakeStore) CountByStatusSince(_ context.Context, status string, daysBack int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DailyActivity(_ context.Context, days int) ([]logrepo.DailyCount, error) {
	return nil, nil
}

func (f *fakeStore) entriesByEvent(event string) []logrepo.NewEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []logrepo.NewEntry
	for _, e := range f.entries {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// jobStoreAdapter renames UpdateJobStatus to the JobStore interface method.
type jobStoreAdapter struct{ *fakeStore }

func (a jobStoreAdapter) UpdateStatus(ctx context.Context, id int64, status jobdomain.Status) (bool, error) {
	return a.fakeStore.UpdateJobStatus(ctx, id, status)
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

func (b *recordingBus) published(name string) []platformevents.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []platformevents.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(store *fakeStore) (*Service, *recordingBus) {
	bus := &recordingBus{}
	svc := New(store, jobStoreAdapter{store}, store, bus, logger.New("test"))
	return svc, bus
}

func TestFixOrderCreatesMissingJobs(t *testing.T) {
	store := newFakeStore()
	store.orders[501] = &ordersrepo.Order{ID: 501, Status: orderdomain.StatusPending}
	store.items[501] = []ordersrepo.OrderItem{
		{ID: 1, OrderID: 501, ProductID: 10, ProductName: "Phone stand", Quantity: 1},
	}

	svc, _ := newTestService(store)
	result, err := svc.FixOrder(context.Background(), SystemActor, 501)
	if err != nil {
		t.Fatalf("FixOrder: %v", err)
	}
	if !result.Repaired || result.CreatedJobs != 1 {
		t.Fatalf("result = %+v, want one created job", result)
	}

	jobs, _ := store.JobsByOrderID(context.Background(), 501)
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].Status != jobdomain.StatusPending {
		t.Fatalf("job status = %q, want pending", jobs[0].Status)
	}

	logs := store.entriesByEvent("manual_order_fix")
	if len(logs) != 1 || logs[0].Status != logrepo.StatusSuccess {
		t.Fatalf("audit entries = %+v, want one success", logs)
	}
}

func TestFixOrderIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.orders[501] = &ordersrepo.Order{ID: 501, Status: orderdomain.StatusPending}
	store.items[501] = []ordersrepo.OrderItem{
		{ID: 1, OrderID: 501, ProductID: 10, ProductName: "Phone stand", Quantity: 1},
	}

	svc, _ := newTestService(store)
	ctx := context.Background()
	if _, err := svc.FixOrder(ctx, SystemActor, 501); err != nil {
		t.Fatalf("first FixOrder: %v", err)
	}
	second, err := svc.FixOrder(ctx, SystemActor, 501)
	if err != nil {
		t.Fatalf("second FixOrder: %v", err)
	}
	if second.Repaired {
		t.Fatalf("second run repaired = true, want no-op (%+v)", second)
	}
	if jobs, _ := store.JobsByOrderID(ctx, 501); len(jobs) != 1 {
		t.Fatalf("jobs = %d after second run, want still 1", len(jobs))
	}
}

func TestFixOrderNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	_, err := svc.FixOrder(context.Background(), SystemActor, 999)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestFixJobSyncsThenNoop(t *testing.T) {
	store := newFakeStore()
	store.orders[1] = &ordersrepo.Order{ID: 1, Status: orderdomain.StatusInProduction}
	orderID := int64(1)
	store.jobs[7] = &jobsrepo.PrintJob{ID: 7, OrderID: &orderID, Status: jobdomain.StatusPending}

	svc, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.FixJob(ctx, SystemActor, 7)
	if err != nil {
		t.Fatalf("first FixJob: %v", err)
	}
	if !first.Repaired {
		t.Fatalf("first result = %+v, want repaired", first)
	}
	if store.jobs[7].Status != jobdomain.StatusPrinting {
		t.Fatalf("job status = %q, want printing", store.jobs[7].Status)
	}

	second, err := svc.FixJob(ctx, SystemActor, 7)
	if err != nil {
		t.Fatalf("second FixJob: %v", err)
	}
	if second.Repaired {
		t.Fatalf("second result = %+v, want no-op", second)
	}
}

func TestFixJobProtectsTerminalJob(t *testing.T) {
	store := newFakeStore()
	store.orders[1] = &ordersrepo.Order{ID: 1, Status: orderdomain.StatusPending}
	orderID := int64(1)
	store.jobs[3] = &jobsrepo.PrintJob{ID: 3, OrderID: &orderID, Status: jobdomain.StatusCompleted}

	svc, _ := newTestService(store)
	result, err := svc.FixJob(context.Background(), SystemActor, 3)
	if err != nil {
		t.Fatalf("FixJob: %v", err)
	}
	if result.Repaired {
		t.Fatalf("result = %+v, terminal job must not be overwritten", result)
	}
	if store.jobs[3].Status != jobdomain.StatusCompleted {
		t.Fatalf("job status = %q, want completed untouched", store.jobs[3].Status)
	}
}

func TestRepairOrphanedJobsUnlinkedJobFails(t *testing.T) {
	store := newFakeStore()
	store.jobs[77] = &jobsrepo.PrintJob{ID: 77, Status: jobdomain.StatusPending}

	svc, _ := newTestService(store)
	result, err := svc.RepairOrphanedJobs(context.Background(), SystemActor, 7)
	if err != nil {
		t.Fatalf("RepairOrphanedJobs: %v", err)
	}
	if result.Found != 1 || result.Repaired != 0 || result.Failed != 1 {
		t.Fatalf("result = %+v, want found=1 repaired=0 failed=1", result)
	}
	if len(result.Details) != 1 ||
		!strings.Contains(result.Details[0], "Job #77") ||
		!strings.Contains(result.Details[0], "not linked to any order") {
		t.Fatalf("details = %v", result.Details)
	}
}

// fixedOrphanScan forces FindOrphanedJobs to return a canned list, to
// exercise the path where an order reappears between scan and repair.
type fixedOrphanScan struct {
	jobStoreAdapter
	orphans []jobsrepo.PrintJob
}

func (s fixedOrphanScan) FindOrphanedJobs(context.Context, int) ([]jobsrepo.PrintJob, error) {
	return s.orphans, nil
}

func TestRepairOrphanedJobsSyncsWhenOrderReappears(t *testing.T) {
	store := newFakeStore()
	store.orders[5] = &ordersrepo.Order{ID: 5, Status: orderdomain.StatusInProduction}
	orderID := int64(5)
	store.jobs[12] = &jobsrepo.PrintJob{ID: 12, OrderID: &orderID, Status: jobdomain.StatusPending}

	scan := fixedOrphanScan{
		jobStoreAdapter: jobStoreAdapter{store},
		orphans:         []jobsrepo.PrintJob{*store.jobs[12]},
	}
	svc := New(store, scan, store, &recordingBus{}, logger.New("test"))

	result, err := svc.RepairOrphanedJobs(context.Background(), SystemActor, 7)
	if err != nil {
		t.Fatalf("RepairOrphanedJobs: %v", err)
	}
	if result.Found != 1 || result.Repaired != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v, want found=1 repaired=1 failed=0", result)
	}
	if store.jobs[12].Status != jobdomain.StatusPrinting {
		t.Fatalf("job status = %q, want printing", store.jobs[12].Status)
	}
	if !strings.Contains(result.Details[0], "synchronized with order #5") {
		t.Fatalf("details = %v", result.Details)
	}
}

func TestRepairIncompleteFlowsCreatesAndConverges(t *testing.T) {
	store := newFakeStore()
	store.orders[300] = &ordersrepo.Order{ID: 300, Status: orderdomain.StatusProcessing}
	store.items[300] = []ordersrepo.OrderItem{
		{ID: 31, OrderID: 300, ProductID: 1, ProductName: "Gear", Quantity: 3},
		{ID: 32, OrderID: 300, ProductID: 2, ProductName: "Filament", Quantity: 1, IsStockItem: true},
	}

	svc, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.RepairIncompleteFlows(ctx, SystemActor, 7)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Found != 1 || first.Repaired != 1 || first.Failed != 0 {
		t.Fatalf("first result = %+v, want found=1 repaired=1", first)
	}

	jobs, _ := store.JobsByOrderID(ctx, 300)
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1 (stock item must be skipped)", len(jobs))
	}
	if jobs[0].Status != jobdomain.StatusPreparing {
		t.Fatalf("job status = %q, want preparing", jobs[0].Status)
	}

	second, err := svc.RepairIncompleteFlows(ctx, SystemActor, 7)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Found != 0 || second.Repaired != 0 {
		t.Fatalf("second result = %+v, want nothing left to repair", second)
	}
}

func TestRunRepairPublishesSummary(t *testing.T) {
	store := newFakeStore()
	store.jobs[77] = &jobsrepo.PrintJob{ID: 77, Status: jobdomain.StatusPending}

	svc, bus := newTestService(store)
	orphaned, incomplete, err := svc.RunRepair(context.Background(), SystemActor, 7, "scheduler")
	if err != nil {
		t.Fatalf("RunRepair: %v", err)
	}
	if orphaned.Found != 1 || incomplete.Found != 0 {
		t.Fatalf("orphaned=%+v incomplete=%+v", orphaned, incomplete)
	}
	if got := bus.published("integration.repair.completed"); len(got) != 1 {
		t.Fatalf("published repair events = %d, want 1", len(got))
	}
}

func TestUpdateOrderStatusFromJobs(t *testing.T) {
	t.Run("all completed moves order to finishing", func(t *testing.T) {
		store := newFakeStore()
		store.orders[1] = &ordersrepo.Order{ID: 1, Status: orderdomain.StatusPrinting}
		store.items[1] = []ordersrepo.OrderItem{{ID: 1, OrderID: 1, ProductID: 1, ProductName: "Part", Quantity: 1}}
		orderID := int64(1)
		store.jobs[1] = &jobsrepo.PrintJob{ID: 1, OrderID: &orderID, Status: jobdomain.StatusCompleted}

		svc, _ := newTestService(store)
		result, err := svc.UpdateOrderStatusFromJobs(context.Background(), SystemActor, 1)
		if err != nil {
			t.Fatalf("UpdateOrderStatusFromJobs: %v", err)
		}
		if !result.Updated || result.NewStatus != string(orderdomain.StatusFinishing) {
			t.Fatalf("result = %+v, want finishing", result)
		}
		if store.orders[1].Status != orderdomain.StatusFinishing {
			t.Fatalf("order status = %q", store.orders[1].Status)
		}
	})

	t.Run("printing stamps print start date once", func(t *testing.T) {
		store := newFakeStore()
		store.orders[2] = &ordersrepo.Order{ID: 2, Status: orderdomain.StatusValidating}
		store.items[2] = []ordersrepo.OrderItem{{ID: 2, OrderID: 2, ProductID: 1, ProductName: "Part", Quantity: 1}}
		orderID := int64(2)
		store.jobs[2] = &jobsrepo.PrintJob{ID: 2, OrderID: &orderID, Status: jobdomain.StatusPrinting}

		svc, _ := newTestService(store)
		ctx := context.Background()
		if _, err := svc.UpdateOrderStatusFromJobs(ctx, SystemActor, 2); err != nil {
			t.Fatalf("UpdateOrderStatusFromJobs: %v", err)
		}
		if store.orders[2].PrintStartDate == nil {
			t.Fatalf("print start date not stamped")
		}
		stamped := *store.orders[2].PrintStartDate

		// A second derivation must not move the stamp.
		if _, err := svc.UpdateOrderStatusFromJobs(ctx, SystemActor, 2); err != nil {
			t.Fatalf("second run: %v", err)
		}
		if !store.orders[2].PrintStartDate.Equal(stamped) {
			t.Fatalf("print start date moved on second run")
		}
	})

	t.Run("failed job blocks and requests intervention", func(t *testing.T) {
		store := newFakeStore()
		store.orders[3] = &ordersrepo.Order{ID: 3, Status: orderdomain.StatusPrinting}
		store.items[3] = []ordersrepo.OrderItem{{ID: 3, OrderID: 3, ProductID: 1, ProductName: "Part", Quantity: 1}}
		orderID := int64(3)
		store.jobs[3] = &jobsrepo.PrintJob{ID: 3, OrderID: &orderID, Status: jobdomain.StatusFailed}

		svc, bus := newTestService(store)
		result, err := svc.UpdateOrderStatusFromJobs(context.Background(), SystemActor, 3)
		if err != nil {
			t.Fatalf("UpdateOrderStatusFromJobs: %v", err)
		}
		if result.Updated {
			t.Fatalf("result = %+v, failure must block any transition", result)
		}
		if store.orders[3].Status != orderdomain.StatusPrinting {
			t.Fatalf("order status changed to %q", store.orders[3].Status)
		}

		warnings := store.entriesByEvent("order_status_blocked")
		if len(warnings) != 1 || warnings[0].Status != logrepo.StatusWarning {
			t.Fatalf("audit entries = %+v, want one warning", warnings)
		}
		if got := bus.published("integration.manual_intervention.required"); len(got) != 1 {
			t.Fatalf("intervention events = %d, want 1", len(got))
		}
	})

	t.Run("cancelled job parks order with info entry", func(t *testing.T) {
		store := newFakeStore()
		store.orders[4] = &ordersrepo.Order{ID: 4, Status: orderdomain.StatusPrinting}
		store.items[4] = []ordersrepo.OrderItem{{ID: 4, OrderID: 4, ProductID: 1, ProductName: "Part", Quantity: 1}}
		orderID := int64(4)
		store.jobs[4] = &jobsrepo.PrintJob{ID: 4, OrderID: &orderID, Status: jobdomain.StatusCancelled}

		svc, bus := newTestService(store)
		result, err := svc.UpdateOrderStatusFromJobs(context.Background(), SystemActor, 4)
		if err != nil {
			t.Fatalf("UpdateOrderStatusFromJobs: %v", err)
		}
		if result.Updated {
			t.Fatalf("result = %+v, cancellation must block the transition", result)
		}

		entries := store.entriesByEvent("order_status_blocked")
		if len(entries) != 1 || entries[0].Status != logrepo.StatusInfo {
			t.Fatalf("audit entries = %+v, want one info entry", entries)
		}
		if got := bus.published("integration.manual_intervention.required"); len(got) != 0 {
			t.Fatalf("cancellation must not page the operator")
		}
	})
}

func TestSyncJobsForOrder(t *testing.T) {
	store := newFakeStore()
	store.orders[9] = &ordersrepo.Order{ID: 9, Status: orderdomain.StatusCancelled}
	orderID := int64(9)
	store.jobs[91] = &jobsrepo.PrintJob{ID: 91, OrderID: &orderID, Status: jobdomain.StatusPrinting}
	store.jobs[92] = &jobsrepo.PrintJob{ID: 92, OrderID: &orderID, Status: jobdomain.StatusCompleted}

	svc, _ := newTestService(store)
	if err := svc.SyncJobsForOrder(context.Background(), SystemActor, 9); err != nil {
		t.Fatalf("SyncJobsForOrder: %v", err)
	}

	if store.jobs[91].Status != jobdomain.StatusCancelled {
		t.Fatalf("active job status = %q, want cancelled", store.jobs[91].Status)
	}
	if store.jobs[92].Status != jobdomain.StatusCompleted {
		t.Fatalf("completed job status = %q, must stay completed", store.jobs[92].Status)
	}
}
