package domain

import (
	"testing"

	orderdomain "printstore_backend/internal/orders/domain"
	jobdomain "printstore_backend/internal/printjobs/domain"
)

func TestMapOrderStatusToJobStatus(t *testing.T) {
	cases := []struct {
		order orderdomain.Status
		want  jobdomain.Status
	}{
		{orderdomain.StatusPending, jobdomain.StatusPending},
		{orderdomain.StatusProcessing, jobdomain.StatusPreparing},
		{orderdomain.StatusInProduction, jobdomain.StatusPrinting},
		{orderdomain.StatusCompleted, jobdomain.StatusCompleted},
		{orderdomain.StatusDelivered, jobdomain.StatusCompleted},
		{orderdomain.StatusCancelled, jobdomain.StatusCancelled},
	}

	for _, tc := range cases {
		if got := MapOrderStatusToJobStatus(tc.order); got != tc.want {
			t.Fatalf("map(%q): expected %q, got %q", tc.order, tc.want, got)
		}
	}
}

func TestMapOrderStatusToJobStatusIsTotal(t *testing.T) {
	// Unknown and garbage inputs must still produce a defined target.
	inputs := []orderdomain.Status{
		"", "validating", "finishing", "shipped", "problem", "nonsense", "PENDING",
	}

	for _, in := range inputs {
		got := MapOrderStatusToJobStatus(in)
		if got != jobdomain.StatusPending {
			t.Fatalf("map(%q): expected default %q, got %q", in, jobdomain.StatusPending, got)
		}
		if !got.IsValid() {
			t.Fatalf("map(%q): returned invalid status %q", in, got)
		}
	}
}
