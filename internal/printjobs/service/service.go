// Package service implements print queue management. Status changes on
// jobs feed back into order status derivation through the event bus.
package service

import (
	"context"
	"fmt"

	"printstore_backend/internal/events"
	"printstore_backend/internal/printjobs/domain"
	"printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

// Store is the slice of the print jobs repository the service needs.
type Store interface {
	GetJob(ctx context.Context, id int64) (*repository.PrintJob, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]repository.PrintJob, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) (bool, error)
	CountByStatus(ctx context.Context, statuses []domain.Status) (int64, error)
}

// Service provides print queue operations.
type Service struct {
	store Store
	bus   platformevents.Bus
	log   *logger.Logger
}

func New(store Store, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Get returns one print job.
func (s *Service) Get(ctx context.Context, id int64) (*repository.PrintJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load print job", err)
	}
	if job == nil {
		return nil, apperr.NotFound(fmt.Sprintf("print job #%d not found", id))
	}
	return job, nil
}

// List returns the print queue, optionally filtered by status.
func (s *Service) List(ctx context.Context, status domain.Status, limit int) ([]repository.PrintJob, error) {
	if status != "" && !status.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown job status %q", status))
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	jobs, err := s.store.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list print jobs", err)
	}
	return jobs, nil
}

// QueueDepth counts jobs that still need printer time.
func (s *Service) QueueDepth(ctx context.Context) (int64, error) {
	n, err := s.store.CountByStatus(ctx, domain.ActiveStatuses())
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to count print jobs", err)
	}
	return n, nil
}

// UpdateStatus moves a job to a new status, as reported from the print
// floor. Terminal jobs are immutable; the timestamps are stamped by the
// repository. Terminal transitions are announced on the bus.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*repository.PrintJob, error) {
	if !status.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown job status %q", status))
	}

	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load print job", err)
	}
	if job == nil {
		return nil, apperr.NotFound(fmt.Sprintf("print job #%d not found", id))
	}
	if job.Status.IsTerminal() {
		return nil, apperr.Conflict(fmt.Sprintf("print job #%d is %s and cannot change status", id, job.Status))
	}
	if job.Status == status {
		return job, nil
	}

	changed, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update print job status", err)
	}
	if changed {
		s.log.Info("print job status updated", "job_id", id, "old_status", job.Status, "new_status", status)
		if status.IsTerminal() {
			s.publish(ctx, events.NewPrintJobFinished(id, job.OrderID, string(status)))
		}
	}

	// Re-read to pick up the stamped timestamps.
	return s.Get(ctx, id)
}

func (s *Service) publish(ctx context.Context, event platformevents.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}
