// Package email delivers operator notifications over SMTP.
package email

import "context"

// Sender delivers operator notifications.
type Sender interface {
	SendManualInterventionAlert(ctx context.Context, toEmail string, orderID int64, failedJobIDs []int64, reason string) error
	SendRepairSummary(ctx context.Context, toEmail string, trigger string, found, repaired, failed int) error
}

// NoopSender discards all mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendManualInterventionAlert(context.Context, string, int64, []int64, string) error {
	return nil
}

func (NoopSender) SendRepairSummary(context.Context, string, string, int, int, int) error {
	return nil
}

var _ Sender = NoopSender{}
