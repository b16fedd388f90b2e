package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Notifier sends customer-facing billing notifications. Callers treat every
// method as best-effort; a delivery failure never fails webhook processing.
type Notifier interface {
	NotifyPaymentFailed(ctx context.Context, email, name, plan string) error
	NotifyTrialEnding(ctx context.Context, email, name string, endsAt time.Time) error
}

type mailNotifier struct {
	mail       IMailService
	billingURL string
}

func NewMailNotifier(mail IMailService, appBaseURL string) Notifier {
	return &mailNotifier{
		mail:       mail,
		billingURL: strings.TrimRight(appBaseURL, "/") + "/account/billing",
	}
}

func (n *mailNotifier) NotifyPaymentFailed(_ context.Context, email, name, plan string) error {
	if email == "" {
		return fmt.Errorf("no email on account")
	}
	body := fmt.Sprintf("Hi %s, the latest payment for your %s plan did not go through. "+
		"Please update your payment method to keep your subscription active.", name, plan)
	return n.mail.SendMailToNotifyUser(email, "Payment failed", body, "Update payment method", n.billingURL)
}

func (n *mailNotifier) NotifyTrialEnding(_ context.Context, email, name string, endsAt time.Time) error {
	if email == "" {
		return fmt.Errorf("no email on account")
	}
	when := "soon"
	if !endsAt.IsZero() {
		when = "on " + endsAt.Format("January 2")
	}
	body := fmt.Sprintf("Hi %s, your trial ends %s. Add a payment method to keep access to your plan.", name, when)
	return n.mail.SendMailToNotifyUser(email, "Your trial is ending", body, "Manage billing", n.billingURL)
}

// logNotifier is used when SMTP is not configured.
type logNotifier struct{}

func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (logNotifier) NotifyPaymentFailed(_ context.Context, email, _, plan string) error {
	log.Printf("notify: payment failed for %s (plan %s)", email, plan)
	return nil
}

func (logNotifier) NotifyTrialEnding(_ context.Context, email, _ string, endsAt time.Time) error {
	log.Printf("notify: trial ending for %s at %s", email, endsAt)
	return nil
}
