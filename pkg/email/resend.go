package email

import (
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

// EmailService sends transactional billing mail. Sends are best-effort:
// callers log failures and move on, a lost receipt never blocks settlement.
type EmailService struct {
	client      *resend.Client
	from        string
	fromName    string
	frontendURL string
	logger      *zap.Logger
}

func NewEmailService(logger *zap.Logger) *EmailService {
	return &EmailService{
		client:      resend.NewClient(os.Getenv("RESEND_API_KEY")),
		from:        os.Getenv("EMAIL_FROM_ADDRESS"),
		fromName:    os.Getenv("EMAIL_FROM_NAME"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		logger:      logger,
	}
}

// SendPaymentReceipt mails a completed-payment receipt.
func (s *EmailService) SendPaymentReceipt(to, kind, amount, currency, orderID string) error {
	html := fmt.Sprintf(
		`<h2>Payment received</h2>
<p>We received your %s payment of %s %s.</p>
<p>Order reference: <strong>%s</strong></p>
<p><a href="%s/account/billing">View your billing history</a></p>`,
		kind, amount, currency, orderID, s.frontendURL,
	)

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: "Your payment receipt",
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Warn("failed to send payment receipt", zap.String("to", to), zap.Error(err))
		return err
	}
	s.logger.Info("payment receipt sent", zap.String("to", to), zap.String("email_id", resp.Id))
	return nil
}

// SendPastDueNotice mails a renewal-payment-failed warning. The
// subscription gets one more renewal attempt before it expires.
func (s *EmailService) SendPastDueNotice(to, plan string) error {
	html := fmt.Sprintf(
		`<h2>Renewal payment failed</h2>
<p>We could not collect the renewal payment for your <strong>%s</strong> plan.</p>
<p>We will retry once; please check your payment method to keep your subscription active.</p>
<p><a href="%s/account/billing">Update payment details</a></p>`,
		plan, s.frontendURL,
	)

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: "Action needed: renewal payment failed",
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Warn("failed to send past-due notice", zap.String("to", to), zap.Error(err))
		return err
	}
	s.logger.Info("past-due notice sent", zap.String("to", to), zap.String("email_id", resp.Id))
	return nil
}
