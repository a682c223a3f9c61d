package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// SendManualInterventionAlert mails the operator about an order blocked
// by failed print jobs.
func (s *SMTPSender) SendManualInterventionAlert(ctx context.Context, toEmail string, orderID int64, failedJobIDs []int64, reason string) error {
	content, err := renderEmailTemplate("intervention_alert.html", interventionAlertData{
		OrderID:      orderID,
		FailedJobIDs: failedJobIDs,
		Reason:       reason,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Order #%d needs attention: failed print jobs", orderID)
	return s.send(ctx, toEmail, subject, content)
}

// SendRepairSummary mails the counters of one repair run.
func (s *SMTPSender) SendRepairSummary(ctx context.Context, toEmail string, trigger string, found, repaired, failed int) error {
	content, err := renderEmailTemplate("repair_summary.html", repairSummaryData{
		Trigger:  trigger,
		Found:    found,
		Repaired: repaired,
		Failed:   failed,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Reconciliation run finished: %d repaired, %d need attention", repaired, failed)
	return s.send(ctx, toEmail, subject, content)
}

var _ Sender = (*SMTPSender)(nil)
