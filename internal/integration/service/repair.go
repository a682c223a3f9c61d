package service

import (
	"context"
	"fmt"

	"printstore_backend/internal/events"
	logrepo "printstore_backend/internal/integration/repository"
)

const (
	// DefaultRepairWindowDays bounds how far back the repair scans look.
	DefaultRepairWindowDays = 7
	// MaxRepairWindowDays caps the scan window to keep the queries cheap.
	MaxRepairWindowDays = 30
)

// RepairResult summarizes one repair pass over a category of drift.
type RepairResult struct {
	Found    int      `json:"found"`
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	Details  []string `json:"details"`
}

func (r RepairResult) counts() events.RepairCounts {
	return events.RepairCounts{Found: r.Found, Repaired: r.Repaired, Failed: r.Failed}
}

func clampWindow(daysBack int) int {
	if daysBack < 1 {
		return DefaultRepairWindowDays
	}
	if daysBack > MaxRepairWindowDays {
		return MaxRepairWindowDays
	}
	return daysBack
}

// RepairOrphanedJobs scans recent jobs whose order link is broken and
// re-synchronizes the ones that can be matched to a live order. A job
// with no usable order cannot be repaired automatically and is counted
// as failed. One bad row never aborts the batch.
func (s *Service) RepairOrphanedJobs(ctx context.Context, actor Actor, daysBack int) (*RepairResult, error) {
	daysBack = clampWindow(daysBack)

	orphans, err := s.jobs.FindOrphanedJobs(ctx, daysBack)
	if err != nil {
		return nil, fmt.Errorf("scan orphaned jobs: %w", err)
	}

	result := &RepairResult{Found: len(orphans)}
	for _, job := range orphans {
		if job.OrderID == nil {
			result.Failed++
			result.Details = append(result.Details,
				fmt.Sprintf("Job #%d: not linked to any order; manual repair required", job.ID))
			continue
		}

		order, err := s.orders.GetOrder(ctx, *job.OrderID)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details,
				fmt.Sprintf("Job #%d: failed to load order #%d: %v", job.ID, *job.OrderID, err))
			continue
		}
		if order == nil {
			result.Failed++
			result.Details = append(result.Details,
				fmt.Sprintf("Job #%d: order #%d not found; manual repair required", job.ID, *job.OrderID))
			continue
		}

		decision := PlanJobSync(job, *order)
		if decision.Action != JobUpdateStatus {
			result.Details = append(result.Details,
				fmt.Sprintf("Job #%d: already consistent with order #%d", job.ID, order.ID))
			continue
		}

		changed, err := s.jobs.UpdateStatus(ctx, job.ID, decision.Expected)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details,
				fmt.Sprintf("Job #%d: failed to update status: %v", job.ID, err))
			continue
		}
		if !changed {
			result.Details = append(result.Details,
				fmt.Sprintf("Job #%d: already consistent with order #%d", job.ID, order.ID))
			continue
		}

		result.Repaired++
		result.Details = append(result.Details,
			fmt.Sprintf("Job #%d: status synchronized with order #%d (%s -> %s)",
				job.ID, order.ID, decision.Current, decision.Expected))
	}

	s.auditRepair(ctx, actor, "orphaned_jobs_repair", result, daysBack)
	return result, nil
}

// RepairIncompleteFlows scans recent orders that are missing print jobs
// for printable items and creates the missing jobs.
func (s *Service) RepairIncompleteFlows(ctx context.Context, actor Actor, daysBack int) (*RepairResult, error) {
	daysBack = clampWindow(daysBack)

	incomplete, err := s.orders.FindIncompleteFlows(ctx, daysBack)
	if err != nil {
		return nil, fmt.Errorf("scan incomplete flows: %w", err)
	}

	result := &RepairResult{Found: len(incomplete)}
	for _, order := range incomplete {
		items, err := s.orders.GetOrderItems(ctx, order.ID)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details,
				fmt.Sprintf("Order #%d: failed to load items: %v", order.ID, err))
			continue
		}
		jobs, err := s.jobs.JobsByOrderID(ctx, order.ID)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details,
				fmt.Sprintf("Order #%d: failed to load print jobs: %v", order.ID, err))
			continue
		}

		plan := BuildOrderRepairPlan(order, items, jobs)
		if len(plan.Creates) == 0 {
			// A concurrent run covered this order between scan and plan.
			result.Details = append(result.Details,
				fmt.Sprintf("Order #%d: no new print jobs were needed", order.ID))
			continue
		}

		created := 0
		createErr := false
		for _, params := range plan.Creates {
			job, err := s.jobs.CreateJob(ctx, params)
			if err != nil {
				createErr = true
				result.Details = append(result.Details,
					fmt.Sprintf("Order #%d: failed to create print job: %v", order.ID, err))
				continue
			}
			if job != nil {
				created++
			}
		}

		switch {
		case createErr && created == 0:
			result.Failed++
		case created > 0:
			result.Repaired++
			result.Details = append(result.Details,
				fmt.Sprintf("Order #%d: created %d print job(s)", order.ID, created))
			s.audit(ctx, actor, logrepo.NewEntry{
				OrderID: &order.ID,
				Event:   "incomplete_flow_repair",
				Status:  logrepo.StatusSuccess,
				Details: map[string]any{
					"created_jobs": created,
					"order_status": string(order.Status),
				},
			})
		default:
			result.Details = append(result.Details,
				fmt.Sprintf("Order #%d: no new print jobs were needed", order.ID))
		}
	}

	s.auditRepair(ctx, actor, "incomplete_flows_repair", result, daysBack)
	return result, nil
}

// RunRepair executes both repair passes and publishes the combined result.
// Trigger names who asked for the run, e.g. "manual" or "scheduler".
func (s *Service) RunRepair(ctx context.Context, actor Actor, daysBack int, trigger string) (orphaned, incomplete *RepairResult, err error) {
	orphaned, err = s.RepairOrphanedJobs(ctx, actor, daysBack)
	if err != nil {
		return nil, nil, err
	}
	incomplete, err = s.RepairIncompleteFlows(ctx, actor, daysBack)
	if err != nil {
		return nil, nil, err
	}

	s.log.ReconcileRun(trigger,
		orphaned.Found+incomplete.Found,
		orphaned.Repaired+incomplete.Repaired,
		orphaned.Failed+incomplete.Failed)

	s.publish(ctx, events.NewRepairCompleted(trigger, orphaned.counts(), incomplete.counts()))
	return orphaned, incomplete, nil
}

// auditRepair records a batch summary. Batches that found nothing are
// logged as informational so scheduled runs stay visible in the trail.
func (s *Service) auditRepair(ctx context.Context, actor Actor, event string, result *RepairResult, daysBack int) {
	tag := logrepo.StatusInfo
	if result.Failed > 0 {
		tag = logrepo.StatusWarning
	} else if result.Repaired > 0 {
		tag = logrepo.StatusSuccess
	}
	s.audit(ctx, actor, logrepo.NewEntry{
		Event:  event,
		Status: tag,
		Details: map[string]any{
			"days_back": daysBack,
			"found":     result.Found,
			"repaired":  result.Repaired,
			"failed":    result.Failed,
		},
	})
}
