// Package transport defines the request and response shapes for the
// orders HTTP API.
package transport

// CreateOrderRequest creates an order with its items.
type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// CreateOrderItem is one line of a new order.
type CreateOrderItem struct {
	ProductID   int64          `json:"product_id" validate:"required,gt=0"`
	ProductName string         `json:"product_name" validate:"required,max=255"`
	Quantity    int            `json:"quantity" validate:"omitempty,min=1,max=1000"`
	IsStockItem bool           `json:"is_stock_item"`
	Options     map[string]any `json:"options"`
}

// UpdateStatusRequest moves an order to a new status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

// ListOrdersRequest bounds the order listing.
type ListOrdersRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}
