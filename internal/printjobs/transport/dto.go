// Package transport defines the request and response shapes for the
// print queue HTTP API.
package transport

// ListJobsRequest filters the print queue listing.
type ListJobsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=pending preparing printing completed cancelled failed"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// UpdateStatusRequest reports a job status change from the print floor.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// QueueDepthResponse reports how many jobs still need printer time.
type QueueDepthResponse struct {
	Active int64 `json:"active"`
}
