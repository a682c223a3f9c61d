// Package domain holds the print-job lifecycle types shared by the
// printjobs repository, service and the reconciliation engine.
package domain

// Status is the lifecycle status of a print job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusPrinting  Status = "printing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the job has reached a protected final state.
// Terminal jobs are never overwritten by reconciliation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// IsValid reports whether s is a known job status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusPrinting,
		StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// ActiveStatuses are the non-terminal statuses counted as "in progress"
// on the integration dashboard.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusPreparing, StatusPrinting}
}
