// Package domain holds the order lifecycle types shared by the orders
// repository, service and the reconciliation engine.
package domain

// Status is the lifecycle status of a customer order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusPrinting   Status = "printing"
	StatusFinishing  Status = "finishing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"

	// Legacy statuses still emitted by upstream payment/checkout collaborators.
	StatusProcessing   Status = "processing"
	StatusInProduction Status = "in_production"
	StatusCompleted    Status = "completed"
)

// IsTerminal reports whether the order can no longer transition.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether s is a known order status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusValidating, StatusPrinting, StatusFinishing,
		StatusShipped, StatusDelivered, StatusCancelled,
		StatusProcessing, StatusInProduction, StatusCompleted:
		return true
	}
	return false
}
