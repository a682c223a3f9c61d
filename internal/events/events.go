package events

import (
	"printstore_backend/platform/events"
)

// Topic names for the in-process bus.
const (
	TopicOrderStatusChanged         = "orders.status.changed"
	TopicPrintJobFinished           = "printjobs.job.finished"
	TopicManualInterventionRequired = "integration.manual_intervention.required"
	TopicRepairCompleted            = "integration.repair.completed"
)

// OrderStatusChanged is published whenever an order changes status through
// the orders service. The integration module reacts by pushing the new
// status down to the order's print jobs.
type OrderStatusChanged struct {
	events.BaseEvent
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

func (OrderStatusChanged) EventName() string { return TopicOrderStatusChanged }

func NewOrderStatusChanged(orderID int64, oldStatus, newStatus string) OrderStatusChanged {
	return OrderStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// PrintJobFinished is published when a job reaches a terminal state. The
// integration module reacts by re-deriving the order status.
type PrintJobFinished struct {
	events.BaseEvent
	JobID   int64  `json:"job_id"`
	OrderID *int64 `json:"order_id,omitempty"`
	Status  string `json:"status"`
}

func (PrintJobFinished) EventName() string { return TopicPrintJobFinished }

func NewPrintJobFinished(jobID int64, orderID *int64, status string) PrintJobFinished {
	return PrintJobFinished{
		BaseEvent: events.NewBaseEvent(),
		JobID:     jobID,
		OrderID:   orderID,
		Status:    status,
	}
}

// ManualInterventionRequired is published when failed print jobs block an
// order from progressing. The notification module mails the operator.
type ManualInterventionRequired struct {
	events.BaseEvent
	OrderID      int64   `json:"order_id"`
	FailedJobIDs []int64 `json:"failed_job_ids"`
	Reason       string  `json:"reason"`
}

func (ManualInterventionRequired) EventName() string { return TopicManualInterventionRequired }

func NewManualInterventionRequired(orderID int64, failedJobIDs []int64, reason string) ManualInterventionRequired {
	return ManualInterventionRequired{
		BaseEvent:    events.NewBaseEvent(),
		OrderID:      orderID,
		FailedJobIDs: failedJobIDs,
		Reason:       reason,
	}
}

// RepairCounts summarizes one repair pass.
type RepairCounts struct {
	Found    int `json:"found"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// RepairCompleted is published after a full repair run, whether triggered
// by an operator or by the scheduler.
type RepairCompleted struct {
	events.BaseEvent
	Trigger    string       `json:"trigger"`
	Orphaned   RepairCounts `json:"orphaned"`
	Incomplete RepairCounts `json:"incomplete"`
}

func (RepairCompleted) EventName() string { return TopicRepairCompleted }

func NewRepairCompleted(trigger string, orphaned, incomplete RepairCounts) RepairCompleted {
	return RepairCompleted{
		BaseEvent:  events.NewBaseEvent(),
		Trigger:    trigger,
		Orphaned:   orphaned,
		Incomplete: incomplete,
	}
}
