package service

import (
	"context"
	"fmt"

	logrepo "printstore_backend/internal/integration/repository"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobdomain "printstore_backend/internal/printjobs/domain"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	"printstore_backend/platform/apperr"
)

// DashboardStats are the headline numbers on the integration dashboard.
type DashboardStats struct {
	SuccessfulIntegrations int64 `json:"successful_integrations"`
	IntegrationErrors      int64 `json:"integration_errors"`
	PendingJobs            int64 `json:"pending_jobs"`
	OrphanedJobs           int64 `json:"orphaned_jobs"`
}

// Dashboard collects counters over the default repair window.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.SuccessfulIntegrations, err = s.logs.CountByStatusSince(ctx, logrepo.StatusSuccess, DefaultRepairWindowDays); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count successful integrations", err)
	}
	if stats.IntegrationErrors, err = s.logs.CountByStatusSince(ctx, logrepo.StatusError, DefaultRepairWindowDays); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count integration errors", err)
	}
	if stats.PendingJobs, err = s.jobs.CountByStatus(ctx, jobdomain.ActiveStatuses()); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count pending jobs", err)
	}

	orphans, err := s.jobs.FindOrphanedJobs(ctx, DefaultRepairWindowDays)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to scan orphaned jobs", err)
	}
	stats.OrphanedJobs = int64(len(orphans))
	return stats, nil
}

// Logs returns recent audit entries, optionally filtered by status tag.
func (s *Service) Logs(ctx context.Context, status string, limit int) ([]logrepo.LogEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	if status == "" {
		return s.logs.RecentEvents(ctx, limit)
	}
	if !logrepo.ValidStatusTag(status) {
		return nil, apperr.Validation(fmt.Sprintf("unknown status filter %q", status))
	}
	return s.logs.EventsByStatus(ctx, status, limit)
}

// LogsForOrder returns the audit trail of a single order.
func (s *Service) LogsForOrder(ctx context.Context, orderID int64) ([]logrepo.LogEntry, error) {
	return s.logs.EventsByOrderID(ctx, orderID)
}

// LogsForJob returns the audit trail of a single print job.
func (s *Service) LogsForJob(ctx context.Context, printJobID int64) ([]logrepo.LogEntry, error) {
	return s.logs.EventsByPrintJobID(ctx, printJobID)
}

// Statistics returns aggregated (event, status) counts for the window.
func (s *Service) Statistics(ctx context.Context, daysBack int) ([]logrepo.EventStat, error) {
	return s.logs.EventsStatistics(ctx, clampWindow(daysBack))
}

// ActivityChart returns per-day counts per status tag for dashboard charts.
func (s *Service) ActivityChart(ctx context.Context, days int) ([]logrepo.DailyCount, error) {
	return s.logs.DailyActivity(ctx, clampWindow(days))
}

// OrphanedJobs lists jobs with a broken order link in the window.
func (s *Service) OrphanedJobs(ctx context.Context, daysBack int) ([]jobsrepo.PrintJob, error) {
	return s.jobs.FindOrphanedJobs(ctx, clampWindow(daysBack))
}

// IncompleteOrders lists orders missing print jobs for printable items.
func (s *Service) IncompleteOrders(ctx context.Context, daysBack int) ([]ordersrepo.Order, error) {
	return s.orders.FindIncompleteFlows(ctx, clampWindow(daysBack))
}
