package service

import (
	"context"
	"fmt"
	"time"

	"printstore_backend/internal/events"
	logrepo "printstore_backend/internal/integration/repository"
	"printstore_backend/platform/apperr"
)

// StatusUpdateResult describes the outcome of deriving an order's status
// from its print jobs.
type StatusUpdateResult struct {
	Updated   bool   `json:"updated"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status,omitempty"`
	Reason    string `json:"reason"`
}

// UpdateOrderStatusFromJobs aggregates the order's job states and applies
// the derived status. Triggered when a job reaches a terminal state, and
// available as a manual action.
//
// The order row is updated directly instead of going through the orders
// service: re-publishing a status change event here would feed the new
// status straight back into job synchronization.
func (s *Service) UpdateOrderStatusFromJobs(ctx context.Context, actor Actor, orderID int64) (*StatusUpdateResult, error) {
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

	decision := DeriveOrderStatus(*order, items, jobs)
	result := &StatusUpdateResult{
		OldStatus: string(order.Status),
		Reason:    decision.Reason,
	}

	switch decision.Transition {
	case TransitionApply:
		if decision.FirstPrinting {
			if err := s.orders.StampPrintStartDate(ctx, order.ID, time.Now()); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "failed to stamp print start date", err)
			}
		}
		changed, err := s.orders.UpdateStatus(ctx, order.ID, decision.Next)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to update order status", err)
		}
		if !changed {
			result.Reason = fmt.Sprintf("order already %s", decision.Next)
			return result, nil
		}
		result.Updated = true
		result.NewStatus = string(decision.Next)
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID: &order.ID,
			Event:   "order_status_derived",
			Status:  logrepo.StatusSuccess,
			Details: map[string]any{
				"old_status": string(order.Status),
				"new_status": string(decision.Next),
				"reason":     decision.Reason,
			},
		})

	case TransitionBlockedFailed:
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID: &order.ID,
			Event:   "order_status_blocked",
			Status:  logrepo.StatusWarning,
			Details: map[string]any{
				"order_status":   string(order.Status),
				"failed_job_ids": decision.FailedJobIDs,
				"reason":         decision.Reason,
			},
		})
		s.publish(ctx, events.NewManualInterventionRequired(order.ID, decision.FailedJobIDs, decision.Reason))

	case TransitionBlockedCancelled:
		s.audit(ctx, actor, logrepo.NewEntry{
			OrderID: &order.ID,
			Event:   "order_status_blocked",
			Status:  logrepo.StatusInfo,
			Details: map[string]any{
				"order_status": string(order.Status),
				"reason":       decision.Reason,
			},
		})
	}

	return result, nil
}
