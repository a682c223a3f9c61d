// Package notification sends operator email in response to domain events.
// Domain modules publish events and never touch mail delivery directly.
package notification

import (
	"context"

	"printstore_backend/internal/email"
	"printstore_backend/internal/events"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
)

// Module subscribes to integration events and mails the operator.
type Module struct {
	sender     email.Sender
	operatorTo string
	log        *logger.Logger
}

// NewModule creates the notification module. With an empty operator
// address all notifications are dropped.
func NewModule(sender email.Sender, operatorTo string, log *logger.Logger) *Module {
	return &Module{sender: sender, operatorTo: operatorTo, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterHandlers subscribes to the events that page the operator.
func (m *Module) RegisterHandlers(bus platformevents.Bus) {
	bus.Subscribe(events.TopicManualInterventionRequired, m)
	bus.Subscribe(events.TopicRepairCompleted, m)
}

// Handle routes bus events to email delivery.
func (m *Module) Handle(ctx context.Context, event platformevents.Event) error {
	if m.operatorTo == "" {
		return nil
	}

	switch e := event.(type) {
	case events.ManualInterventionRequired:
		if err := m.sender.SendManualInterventionAlert(ctx, m.operatorTo, e.OrderID, e.FailedJobIDs, e.Reason); err != nil {
			m.log.Error("failed to send intervention alert", "order_id", e.OrderID, "error", err)
			return err
		}
	case events.RepairCompleted:
		// Only page the operator when something needs a human.
		failed := e.Orphaned.Failed + e.Incomplete.Failed
		if failed == 0 {
			return nil
		}
		found := e.Orphaned.Found + e.Incomplete.Found
		repaired := e.Orphaned.Repaired + e.Incomplete.Repaired
		if err := m.sender.SendRepairSummary(ctx, m.operatorTo, e.Trigger, found, repaired, failed); err != nil {
			m.log.Error("failed to send repair summary", "trigger", e.Trigger, "error", err)
			return err
		}
	}
	return nil
}
