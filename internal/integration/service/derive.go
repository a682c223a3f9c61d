package service

import (
	"fmt"

	orderdomain "printstore_backend/internal/orders/domain"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobdomain "printstore_backend/internal/printjobs/domain"
	jobsrepo "printstore_backend/internal/printjobs/repository"
)

// OrderTransition classifies the outcome of aggregating job states onto an order.
type OrderTransition int

const (
	// TransitionNone means the order status should be left alone.
	TransitionNone OrderTransition = iota
	// TransitionApply means the order should move to Next.
	TransitionApply
	// TransitionBlockedFailed means at least one job failed and an
	// operator has to intervene before the order can move.
	TransitionBlockedFailed
	// TransitionBlockedCancelled means at least one job was cancelled
	// and the order is left for manual review.
	TransitionBlockedCancelled
)

// OrderStatusDecision is the result of deriving an order status from its jobs.
type OrderStatusDecision struct {
	Transition OrderTransition
	Next       orderdomain.Status
	// FirstPrinting is set when the order enters printing and has no
	// print_start_date yet.
	FirstPrinting bool
	Reason        string
	FailedJobIDs  []int64
}

// DeriveOrderStatus aggregates the states of an order's jobs into the status
// the order should carry. Failed and cancelled jobs block any automatic
// transition: a failure must never be papered over by the happy path.
func DeriveOrderStatus(order ordersrepo.Order, items []ordersrepo.OrderItem, jobs []jobsrepo.PrintJob) OrderStatusDecision {
	if order.Status.IsTerminal() {
		return OrderStatusDecision{Reason: fmt.Sprintf("order is %s; no automatic transitions", order.Status)}
	}

	printable := 0
	for _, item := range items {
		if !item.IsStockItem {
			printable++
		}
	}
	if printable == 0 {
		return OrderStatusDecision{Reason: "order has no printable items"}
	}
	if len(jobs) == 0 {
		return OrderStatusDecision{Reason: "order has no print jobs yet"}
	}

	var (
		failedIDs    []int64
		anyCancelled bool
		anyPrinting  bool
		anyQueued    bool
		allCompleted = true
	)
	for _, job := range jobs {
		switch job.Status {
		case jobdomain.StatusFailed:
			failedIDs = append(failedIDs, job.ID)
		case jobdomain.StatusCancelled:
			anyCancelled = true
		case jobdomain.StatusPrinting:
			anyPrinting = true
		case jobdomain.StatusPending, jobdomain.StatusPreparing:
			anyQueued = true
		}
		if job.Status != jobdomain.StatusCompleted {
			allCompleted = false
		}
	}

	if len(failedIDs) > 0 {
		return OrderStatusDecision{
			Transition:   TransitionBlockedFailed,
			Reason:       fmt.Sprintf("%d print job(s) failed; manual intervention required", len(failedIDs)),
			FailedJobIDs: failedIDs,
		}
	}
	if anyCancelled {
		return OrderStatusDecision{
			Transition: TransitionBlockedCancelled,
			Reason:     "one or more print jobs were cancelled; order left for manual review",
		}
	}

	var next orderdomain.Status
	switch {
	case allCompleted:
		next = orderdomain.StatusFinishing
	case anyPrinting:
		next = orderdomain.StatusPrinting
	case anyQueued:
		next = orderdomain.StatusValidating
	default:
		return OrderStatusDecision{Reason: "no decisive job states"}
	}

	if next == order.Status {
		return OrderStatusDecision{Reason: fmt.Sprintf("order already %s", next)}
	}

	return OrderStatusDecision{
		Transition:    TransitionApply,
		Next:          next,
		FirstPrinting: next == orderdomain.StatusPrinting && order.PrintStartDate == nil,
		Reason:        fmt.Sprintf("derived from %d print job(s)", len(jobs)),
	}
}
