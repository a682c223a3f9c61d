// Package transport defines the request and response shapes for the
// integration HTTP API.
package transport

import (
	"encoding/json"

	"printstore_backend/internal/integration/repository"
	"printstore_backend/internal/integration/service"
)

// ListLogsRequest filters the audit trail listing.
type ListLogsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=success warning error info"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

// RepairRequest controls a manual repair run.
type RepairRequest struct {
	DaysBack         int  `json:"days_back" validate:"omitempty,min=1,max=30"`
	RepairOrphaned   bool `json:"repair_orphaned"`
	RepairIncomplete bool `json:"repair_incomplete"`
	Async            bool `json:"async"`
}

// RepairResponse reports the outcome of a synchronous repair run.
type RepairResponse struct {
	Orphaned   *service.RepairResult `json:"orphaned,omitempty"`
	Incomplete *service.RepairResult `json:"incomplete,omitempty"`
}

// EnqueuedResponse reports an accepted asynchronous repair run.
type EnqueuedResponse struct {
	Enqueued bool   `json:"enqueued"`
	TaskType string `json:"task_type"`
}

// DashboardResponse bundles the dashboard headline numbers with the most
// recent audit entries.
type DashboardResponse struct {
	Stats  *service.DashboardStats `json:"stats"`
	Recent []LogEntryResponse      `json:"recent"`
}

// LogEntryResponse is the JSON shape of one audit record.
type LogEntryResponse struct {
	ID         int64          `json:"id"`
	OrderID    *int64         `json:"order_id,omitempty"`
	PrintJobID *int64         `json:"print_job_id,omitempty"`
	Event      string         `json:"event"`
	Status     string         `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
	ActorName  *string        `json:"actor_name,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

// DriftResponse lists detected but unrepaired drift.
type DriftResponse struct {
	Count int     `json:"count"`
	IDs   []int64 `json:"ids"`
}

// FromLogEntry converts a stored audit record to its JSON shape.
func FromLogEntry(e repository.LogEntry) LogEntryResponse {
	resp := LogEntryResponse{
		ID:         e.ID,
		OrderID:    e.OrderID,
		PrintJobID: e.PrintJobID,
		Event:      e.Event,
		Status:     e.Status,
		ActorName:  e.ActorName,
		CreatedAt:  e.CreatedAt.Format(timeFormat),
	}
	if len(e.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(e.Details, &details); err == nil {
			resp.Details = details
		}
	}
	return resp
}

// FromLogEntries converts a batch of audit records.
func FromLogEntries(entries []repository.LogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromLogEntry(e))
	}
	return out
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
