// Package domain holds the pure reconciliation logic: the order-to-job
// status mapping and the repair plan types. Nothing in this package
// touches the database.
package domain

import (
	orderdomain "printstore_backend/internal/orders/domain"
	jobdomain "printstore_backend/internal/printjobs/domain"
)

// MapOrderStatusToJobStatus returns the print-job status a job is expected
// to hold given its order's status. The mapping is total: every input,
// including unknown statuses, yields exactly one defined job status, so
// reconciliation always has a well-defined target.
//
// Terminal job statuses are protected elsewhere; this function only answers
// "what should a live job look like".
func MapOrderStatusToJobStatus(orderStatus orderdomain.Status) jobdomain.Status {
	switch orderStatus {
	case orderdomain.StatusPending:
		return jobdomain.StatusPending
	case orderdomain.StatusProcessing:
		return jobdomain.StatusPreparing
	case orderdomain.StatusInProduction:
		return jobdomain.StatusPrinting
	case orderdomain.StatusCompleted, orderdomain.StatusDelivered:
		return jobdomain.StatusCompleted
	case orderdomain.StatusCancelled:
		return jobdomain.StatusCancelled
	default:
		return jobdomain.StatusPending
	}
}
