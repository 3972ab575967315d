package mailer

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type NotificationKind string

const (
	KindTrialEnding           NotificationKind = "trial_ending"
	KindTrialEnded            NotificationKind = "trial_ended"
	KindGraceEnding           NotificationKind = "grace_ending"
	KindGraceEnded            NotificationKind = "grace_ended"
	KindPaymentFailed         NotificationKind = "payment_failed"
	KindSubscriptionConfirmed NotificationKind = "subscription_confirmed"
	KindSubscriptionRenewed   NotificationKind = "subscription_renewed"
	KindSubscriptionCancelled NotificationKind = "subscription_cancelled"
)

// NotifyResult reports delivery. Notify never returns an error value or panics
// across its boundary, callers only inspect the result.
type NotifyResult struct {
	Success bool
	Error   string
}

type INotifier interface {
	Notify(ctx context.Context, to string, kind NotificationKind, data map[string]interface{}) NotifyResult
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) INotifier {
	return NewEmailServiceWithDialer(gomail.NewDialer(host, port, username, password), username, senderName)
}

func NewEmailServiceWithDialer(d Dialer, senderEmail, senderName string) INotifier {
	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) Notify(ctx context.Context, to string, kind NotificationKind, data map[string]interface{}) (result NotifyResult) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[MAILER ERROR] Panic while sending %s to %s: %v\n", kind, to, r)
			result = NotifyResult{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	if to == "" {
		return NotifyResult{Success: false, Error: "missing recipient"}
	}
	if err := ctx.Err(); err != nil {
		return NotifyResult{Success: false, Error: err.Error()}
	}

	subject, body, ok := render(kind, data)
	if !ok {
		return NotifyResult{Success: false, Error: fmt.Sprintf("unknown notification kind %q", kind)}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send %s to %s: %v\n", kind, to, err)
		return NotifyResult{Success: false, Error: err.Error()}
	}

	fmt.Printf("[MAILER] %s sent to %s\n", kind, to)
	return NotifyResult{Success: true}
}

func render(kind NotificationKind, data map[string]interface{}) (string, string, bool) {
	name := stringValue(data, "name")
	date := dateValue(data, "date")

	switch kind {
	case KindTrialEnding:
		days := data["days_left"]
		return fmt.Sprintf("Your trial ends in %v day(s)", days),
			wrap(name, fmt.Sprintf("Your free trial ends on <b>%s</b>. Subscribe now to keep full access.", date)), true
	case KindTrialEnded:
		return "Your trial has ended",
			wrap(name, fmt.Sprintf("Your trial has ended. You have read-only access until <b>%s</b>.", date)), true
	case KindGraceEnding:
		return "Your grace period ends tomorrow",
			wrap(name, fmt.Sprintf("Your grace period ends on <b>%s</b>. Renew to avoid losing access.", date)), true
	case KindGraceEnded:
		return "Your subscription has expired",
			wrap(name, "Your grace period is over and your subscription has expired. Renew to restore access."), true
	case KindPaymentFailed:
		return "Payment failed",
			wrap(name, fmt.Sprintf("We could not process your payment. Your account is read-only until <b>%s</b>.", date)), true
	case KindSubscriptionConfirmed:
		return "Subscription confirmed",
			wrap(name, fmt.Sprintf("Thanks! Your subscription (amount %v) is active until <b>%s</b>.", data["amount"], date)), true
	case KindSubscriptionRenewed:
		return "Subscription renewed",
			wrap(name, fmt.Sprintf("Your subscription was renewed and is now active until <b>%s</b>.", date)), true
	case KindSubscriptionCancelled:
		return "Subscription cancelled",
			wrap(name, fmt.Sprintf("Your subscription has been cancelled. Access ends on <b>%s</b>.", date)), true
	}
	return "", "", false
}

func wrap(name, content string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Hi %s,</h2>
			<p>%s</p>
		</div>
	`, name, content)
}

func stringValue(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return "there"
}

func dateValue(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case time.Time:
		return v.UTC().Format("02 Jan 2006")
	case *time.Time:
		if v != nil {
			return v.UTC().Format("02 Jan 2006")
		}
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC().Format("02 Jan 2006")
		}
		return v
	}
	return "-"
}
