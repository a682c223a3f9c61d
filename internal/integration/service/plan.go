package service

import (
	"printstore_backend/internal/integration/domain"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobdomain "printstore_backend/internal/printjobs/domain"
	jobsrepo "printstore_backend/internal/printjobs/repository"
)

// The planning layer is pure: it inspects already-loaded orders, items and
// jobs and returns intended mutations. The service shell reads state, calls
// into here, and applies the result. Nothing in this file performs I/O.

// JobSyncAction describes the intended mutation for a single job.
type JobSyncAction int

const (
	// JobInSync means the job already matches the expected status.
	JobInSync JobSyncAction = iota
	// JobProtected means the job is in a terminal state that must not be overwritten.
	JobProtected
	// JobUpdateStatus means the job status should be set to Expected.
	JobUpdateStatus
)

// JobSyncDecision is the outcome of comparing one job against its order.
type JobSyncDecision struct {
	JobID    int64
	Current  jobdomain.Status
	Expected jobdomain.Status
	Action   JobSyncAction
}

// PlanJobSync computes the intended mutation for one job given its order.
// Calling it twice against the same state always yields the same decision;
// applying the decision and planning again yields JobInSync.
func PlanJobSync(job jobsrepo.PrintJob, order ordersrepo.Order) JobSyncDecision {
	decision := JobSyncDecision{
		JobID:    job.ID,
		Current:  job.Status,
		Expected: domain.MapOrderStatusToJobStatus(order.Status),
	}

	switch {
	case job.Status == decision.Expected:
		decision.Action = JobInSync
	case job.Status.IsTerminal():
		decision.Action = JobProtected
	default:
		decision.Action = JobUpdateStatus
	}
	return decision
}

// OrderRepairPlan lists the mutations needed to make an order's jobs
// consistent: jobs to create for uncovered non-stock items, and status
// syncs for the jobs that already exist.
type OrderRepairPlan struct {
	OrderID int64
	Creates []jobsrepo.CreateJobParams
	Syncs   []JobSyncDecision
}

// IsNoop reports whether the plan contains no effective mutations.
func (p OrderRepairPlan) IsNoop() bool {
	if len(p.Creates) > 0 {
		return false
	}
	for _, s := range p.Syncs {
		if s.Action == JobUpdateStatus {
			return false
		}
	}
	return true
}

// BuildOrderRepairPlan computes the full repair plan for one order.
// Coverage is keyed on order_item_id, so re-planning after an apply
// produces no further creates.
func BuildOrderRepairPlan(order ordersrepo.Order, items []ordersrepo.OrderItem, jobs []jobsrepo.PrintJob) OrderRepairPlan {
	plan := OrderRepairPlan{OrderID: order.ID}

	covered := make(map[int64]bool, len(jobs))
	for _, job := range jobs {
		if job.OrderItemID != nil {
			covered[*job.OrderItemID] = true
		}
		plan.Syncs = append(plan.Syncs, PlanJobSync(job, order))
	}

	expected := domain.MapOrderStatusToJobStatus(order.Status)
	for _, item := range items {
		if item.IsStockItem || covered[item.ID] {
			continue
		}

		orderID := order.ID
		itemID := item.ID
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		plan.Creates = append(plan.Creates, jobsrepo.CreateJobParams{
			OrderID:     &orderID,
			OrderItemID: &itemID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Status:      expected,
			Quantity:    quantity,
			Options:     item.Options,
			Notes:       "created automatically by the repair tool",
		})
	}

	return plan
}
