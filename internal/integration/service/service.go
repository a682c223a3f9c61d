// Package service implements the reconciliation engine: it keeps orders and
// print jobs consistent, repairs drift, and records every action in the
// integration event log.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	logrepo "printstore_backend/internal/integration/repository"
	orderdomain "printstore_backend/internal/orders/domain"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobdomain "printstore_backend/internal/printjobs/domain"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

// OrderStore is the slice of the orders repository the engine needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (*ordersrepo.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]ordersrepo.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID int64, status orderdomain.Status) (bool, error)
	StampPrintStartDate(ctx context.Context, orderID int64, at time.Time) error
	FindIncompleteFlows(ctx context.Context, daysBack int) ([]ordersrepo.Order, error)
}

// JobStore is the slice of the print jobs repository the engine needs.
type JobStore interface {
	GetJob(ctx context.Context, id int64) (*jobsrepo.PrintJob, error)
	JobsByOrderID(ctx context.Context, orderID int64) ([]jobsrepo.PrintJob, error)
	CreateJob(ctx context.Context, params jobsrepo.CreateJobParams) (*jobsrepo.PrintJob, error)
	UpdateStatus(ctx context.Context, id int64, status jobdomain.Status) (bool, error)
	CountByStatus(ctx context.Context, statuses []jobdomain.Status) (int64, error)
	FindOrphanedJobs(ctx context.Context, daysBack int) ([]jobsrepo.PrintJob, error)
}

// LogStore is the append-only audit trail.
type LogStore interface {
	LogEvent(ctx context.Context, entry logrepo.NewEntry) error
	RecentEvents(ctx context.Context, limit int) ([]logrepo.LogEntry, error)
	EventsByStatus(ctx context.Context, status string, limit int) ([]logrepo.LogEntry, error)
	EventsByOrderID(ctx context.Context, orderID int64) ([]logrepo.LogEntry, error)
	EventsByPrintJobID(ctx context.Context, printJobID int64) ([]logrepo.LogEntry, error)
	EventsStatistics(ctx context.Context, daysBack int) ([]logrepo.EventStat, error)
	CountByStatusSince(ctx context.Context, status string, daysBack int) (int64, error)
	DailyActivity(ctx context.Context, days int) ([]logrepo.DailyCount, error)
}

// Actor identifies who triggered a reconciliation action. The zero ID
// marks a system actor such as the scheduler.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// SystemActor is used for scheduler and event-driven runs.
var SystemActor = Actor{Name: "system"}

func (a Actor) logFields() (*uuid.UUID, *string) {
	var id *uuid.UUID
	if a.ID != uuid.Nil {
		actorID := a.ID
		id = &actorID
	}
	var name *string
	if a.Name != "" {
		actorName := a.Name
		name = &actorName
	}
	return id, name
}

// Service is the reconciliation engine.
type Service struct {
	orders OrderStore
	jobs   JobStore
	logs   LogStore
	bus    platformevents.Bus
	log    *logger.Logger
}

func New(orders OrderStore, jobs JobStore, logs LogStore, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{
		orders: orders,
		jobs:   jobs,
		logs:   logs,
		bus:    bus,
		log:    log,
	}
}

// FixResult describes the outcome of a manual fix action.
type FixResult struct {
	Repaired    bool   `json:"repaired"`
	CreatedJobs int    `json:"created_jobs"`
	SyncedJobs  int    `json:"synced_jobs"`
	Message     string `json:"message"`
}

// FixJob re-synchronizes a single print job with its order.
func (s *Service) FixJob(ctx context.Context, actor Actor, jobID int64) (*FixResult, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load print job", err)
	}
	if job == nil {
		return nil, apperr.NotFound(fmt.Sprintf("print job #%d not found", jobID))
	}

	if job.OrderID == nil {
		s.audit(ctx, actor, logrepo.NewEntry{
			PrintJobID: &job.ID,
			Event:      "manual_job_fix",
			Status:     logrepo.StatusWarning,
			Details: map[string]any{
				"reason": "job is not linked to any order; link it manually first",
			},
		})
		return &FixResult{Message: fmt.Sprintf("Job #%d is not linked to any order; manual repair required", job.ID)}, nil
	}

	order, err := s.orders.GetOrder(ctx, *job.OrderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load order", err)
	}
	if order == nil {
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID:    job.OrderID,
			PrintJobID: &job.ID,
			Event:      "manual_job_fix",
			Status:     logrepo.StatusError,
			Details: map[string]any{
				"reason": fmt.Sprintf("order #%d no longer exists", *job.OrderID),
			},
		})
		return nil, apperr.NotFound(fmt.Sprintf("order #%d not found", *job.OrderID))
	}

	decision := PlanJobSync(*job, *order)
	switch decision.Action {
	case JobUpdateStatus:
		changed, err := s.jobs.UpdateStatus(ctx, job.ID, decision.Expected)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to update print job status", err)
		}
		if !changed {
			return &FixResult{Message: fmt.Sprintf("Job #%d was already consistent", job.ID)}, nil
		}
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID:    job.OrderID,
			PrintJobID: &job.ID,
			Event:      "manual_job_fix",
			Status:     logrepo.StatusSuccess,
			Details: map[string]any{
				"old_status": string(decision.Current),
				"new_status": string(decision.Expected),
			},
		})
		return &FixResult{
			Repaired:   true,
			SyncedJobs: 1,
			Message:    fmt.Sprintf("Job #%d: %s -> %s", job.ID, decision.Current, decision.Expected),
		}, nil
	case JobProtected:
		return &FixResult{Message: fmt.Sprintf("Job #%d is %s and will not be overwritten", job.ID, job.Status)}, nil
	default:
		return &FixResult{Message: fmt.Sprintf("Job #%d is already consistent with order #%d", job.ID, order.ID)}, nil
	}
}

// FixOrder rebuilds the print job set for one order: it creates jobs for
// uncovered printable items and re-synchronizes the existing ones.
func (s *Service) FixOrder(ctx context.Context, actor Actor, orderID int64) (*FixResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load order", err)
	}
	if order == nil {
		return nil, apperr.NotFound(fmt.Sprintf("order #%d not found", orderID))
	}

	items, err := s.orders.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load order items", err)
	}
	jobs, err := s.jobs.JobsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load print jobs", err)
	}

	plan := BuildOrderRepairPlan(*order, items, jobs)
	if plan.IsNoop() {
		return &FixResult{Message: fmt.Sprintf("Order #%d is already consistent", order.ID)}, nil
	}

	result := &FixResult{}
	for _, params := range plan.Creates {
		created, err := s.jobs.CreateJob(ctx, params)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to create print job", err)
		}
		if created == nil {
			// Another repair run won the race for this item.
			continue
		}
		result.CreatedJobs++
	}
	for _, decision := range plan.Syncs {
		if decision.Action != JobUpdateStatus {
			continue
		}
		changed, err := s.jobs.UpdateStatus(ctx, decision.JobID, decision.Expected)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to update print job status", err)
		}
		if changed {
			result.SyncedJobs++
		}
	}

	result.Repaired = result.CreatedJobs > 0 || result.SyncedJobs > 0
	result.Message = fmt.Sprintf("Order #%d: created %d job(s), synchronized %d job(s)",
		order.ID, result.CreatedJobs, result.SyncedJobs)

	if result.Repaired {
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID: &order.ID,
			Event:   "manual_order_fix",
			Status:  logrepo.StatusSuccess,
			Details: map[string]any{
				"created_jobs": result.CreatedJobs,
				"synced_jobs":  result.SyncedJobs,
				"order_status": string(order.Status),
			},
		})
	}
	return result, nil
}

// SyncJobsForOrder pushes an order's current status down to all of its
// print jobs. It is triggered by order status change events.
func (s *Service) SyncJobsForOrder(ctx context.Context, actor Actor, orderID int64) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load order", err)
	}
	if order == nil {
		return apperr.NotFound(fmt.Sprintf("order #%d not found", orderID))
	}

	jobs, err := s.jobs.JobsByOrderID(ctx, order.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load print jobs", err)
	}

	synced := 0
	for _, job := range jobs {
		decision := PlanJobSync(job, *order)
		if decision.Action != JobUpdateStatus {
			continue
		}
		changed, err := s.jobs.UpdateStatus(ctx, job.ID, decision.Expected)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update print job status", err)
		}
		if changed {
			synced++
		}
	}

	if synced > 0 {
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID: &order.ID,
			Event:   "job_status_sync",
			Status:  logrepo.StatusSuccess,
			Details: map[string]any{
				"order_status": string(order.Status),
				"synced_jobs":  synced,
			},
		})
	}
	return nil
}

// audit appends to the integration log. Logging failures are reported
// but never abort the action they describe.
func (s *Service) audit(ctx context.Context, actor Actor, entry logrepo.NewEntry) {
	entry.ActorID, entry.ActorName = actor.logFields()
	if err := s.logs.LogEvent(ctx, entry); err != nil {
		s.log.Error("failed to write integration log entry", "event", entry.Event, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event platformevents.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}
