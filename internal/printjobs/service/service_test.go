package service

import (
	"context"
	"sync"
	"testing"

	"printstore_backend/internal/events"
	"printstore_backend/internal/printjobs/domain"
	"printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

type fakeStore struct {
	mu   sync.Mutex
	jobs map[int64]*repository.PrintJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[int64]*repository.PrintJob)}
}

func (f *fakeStore) GetJob(_ context.Context, id int64) (*repository.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, status domain.Status, limit int) ([]repository.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PrintJob
	for _, j := range f.jobs {
		if status != "" && j.Status != status {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, *j)
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, status domain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status == status {
		return false, nil
	}
	j.Status = status
	return true, nil
}

func (f *fakeStore) CountByStatus(_ context.Context, statuses []domain.Status) (int64, error) {
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

func (b *recordingBus) finished() []events.PrintJobFinished {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.PrintJobFinished
	for _, e := range b.events {
		if pf, ok := e.(events.PrintJobFinished); ok {
			out = append(out, pf)
		}
	}
	return out
}

func newTestService(store *fakeStore) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, bus, logger.New("test")), bus
}

func TestUpdateStatusAnnouncesTerminalTransition(t *testing.T) {
	store := newFakeStore()
	orderID := int64(501)
	store.jobs[7] = &repository.PrintJob{ID: 7, OrderID: &orderID, Status: domain.StatusPrinting}
	svc, bus := newTestService(store)

	job, err := svc.UpdateStatus(context.Background(), 7, domain.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if job.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", job.Status)
	}

	finished := bus.finished()
	if len(finished) != 1 {
		t.Fatalf("published %d job-finished events, want 1", len(finished))
	}
	if finished[0].JobID != 7 || finished[0].OrderID == nil || *finished[0].OrderID != 501 {
		t.Fatalf("unexpected event %+v", finished[0])
	}
}

func TestUpdateStatusNonTerminalIsQuiet(t *testing.T) {
	store := newFakeStore()
	store.jobs[7] = &repository.PrintJob{ID: 7, Status: domain.StatusPending}
	svc, bus := newTestService(store)

	if _, err := svc.UpdateStatus(context.Background(), 7, domain.StatusPrinting); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if n := len(bus.finished()); n != 0 {
		t.Fatalf("published %d job-finished events for a non-terminal transition", n)
	}
}

func TestUpdateStatusRejectsTerminalJob(t *testing.T) {
	store := newFakeStore()
	store.jobs[7] = &repository.PrintJob{ID: 7, Status: domain.StatusFailed}
	svc, _ := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), 7, domain.StatusPrinting)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.UpdateStatus(context.Background(), 7, domain.Status("vaporized"))
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQueueDepthCountsActiveJobs(t *testing.T) {
	store := newFakeStore()
	store.jobs[1] = &repository.PrintJob{ID: 1, Status: domain.StatusPending}
	store.jobs[2] = &repository.PrintJob{ID: 2, Status: domain.StatusPrinting}
	store.jobs[3] = &repository.PrintJob{ID: 3, Status: domain.StatusCompleted}
	store.jobs[4] = &repository.PrintJob{ID: 4, Status: domain.StatusFailed}
	svc, _ := newTestService(store)

	n, err := svc.QueueDepth(context.Background())
	if err != nil {
		t.Fatalf("QueueDepth: %v", err)
	}
	if n != 2 {
		t.Fatalf("queue depth = %d, want 2", n)
	}
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.List(context.Background(), domain.Status("nope"), 10)
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
