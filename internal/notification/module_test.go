package notification

import (
	"context"
	"testing"

	"printstore_backend/internal/events"
	"printstore_backend/platform/logger"
)

type recordingSender struct {
	alerts    int
	summaries int
}

func (s *recordingSender) SendManualInterventionAlert(context.Context, string, int64, []int64, string) error {
	s.alerts++
	return nil
}

func (s *recordingSender) SendRepairSummary(context.Context, string, string, int, int, int) error {
	s.summaries++
	return nil
}

func TestInterventionEventSendsAlert(t *testing.T) {
	sender := &recordingSender{}
	mod := NewModule(sender, "ops@example.com", logger.New("test"))

	event := events.NewManualInterventionRequired(12, []int64{3, 4}, "2 print job(s) failed")
	if err := mod.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.alerts != 1 {
		t.Fatalf("alerts = %d, want 1", sender.alerts)
	}
}

func TestCleanRepairRunStaysQuiet(t *testing.T) {
	sender := &recordingSender{}
	mod := NewModule(sender, "ops@example.com", logger.New("test"))

	event := events.NewRepairCompleted("scheduler",
		events.RepairCounts{Found: 2, Repaired: 2},
		events.RepairCounts{})
	if err := mod.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.summaries != 0 {
		t.Fatalf("summaries = %d, clean run must not mail", sender.summaries)
	}

	event = events.NewRepairCompleted("scheduler",
		events.RepairCounts{Found: 2, Repaired: 1, Failed: 1},
		events.RepairCounts{})
	if err := mod.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.summaries != 1 {
		t.Fatalf("summaries = %d, want 1", sender.summaries)
	}
}

func TestNoOperatorConfiguredDropsMail(t *testing.T) {
	sender := &recordingSender{}
	mod := NewModule(sender, "", logger.New("test"))

	event := events.NewManualInterventionRequired(12, []int64{3}, "failure")
	if err := mod.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.alerts != 0 {
		t.Fatalf("alerts = %d, want 0", sender.alerts)
	}
}
