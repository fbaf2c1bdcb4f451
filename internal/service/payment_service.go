package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/pricing"
	"github.com/vidora/vidora-backend/pkg/clock"
	"github.com/vidora/vidora-backend/pkg/payment"
)

// NewPayment describes one payment to be created. Fees are computed by the
// service, not the caller.
type NewPayment struct {
	UserID           uint
	Kind             models.PaymentKind
	Amount           decimal.Decimal
	Currency         string
	Description      string
	SubscriptionID   *uint
	CreditPurchaseID *uint
}

// PaymentService runs the payment state machine:
//
//	pending -> processing -> completed | failed
//
// Gateway failures never advance the state; a payment that cannot reach the
// gateway stays pending and the whole attempt can be retried. Cancelled and
// refunded are administrative overrides. Completion is idempotent, including
// its downstream effect.
type PaymentService struct {
	payments PaymentStore
	users    UserStore
	gateway  payment.Gateway
	mailer   Mailer
	clock    clock.Clock
	logger   *zap.Logger
}

func NewPaymentService(
	payments PaymentStore,
	users UserStore,
	gateway payment.Gateway,
	mailer Mailer,
	clk clock.Clock,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		users:    users,
		gateway:  gateway,
		mailer:   mailer,
		clock:    clk,
		logger:   logger,
	}
}

// Create records a pending payment with its fee breakdown. The commission
// and tax rates in force right now are captured onto the row and never
// change afterwards.
func (s *PaymentService) Create(np NewPayment) (*models.Payment, error) {
	if !np.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", np.Amount)
	}

	fees := CalculateFees(np.Amount, pricing.CommissionRate, pricing.TaxRate)

	p := &models.Payment{
		UserID:           np.UserID,
		Kind:             np.Kind,
		Status:           models.PaymentPending,
		SubscriptionID:   np.SubscriptionID,
		CreditPurchaseID: np.CreditPurchaseID,
		Amount:           np.Amount,
		Currency:         np.Currency,
		Commission:       fees.Commission,
		CommissionRate:   fees.CommissionRate,
		GatewayAmount:    fees.GatewayAmount,
		Tax:              fees.Tax,
		TaxRate:          fees.TaxRate,
		NetAmount:        fees.NetAmount,
		OrderID:          uuid.NewString(),
		Notes:            np.Description,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.payments.Create(p); err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		zap.Uint("payment_id", p.ID),
		zap.String("order_id", p.OrderID),
		zap.String("kind", string(p.Kind)),
		zap.String("amount", p.Amount.StringFixed(2)))
	return p, nil
}

// Process registers the payment with the gateway and moves it to
// processing. Returns the checkout redirect URL, which is also persisted on
// the row so a repeated Process hands back the same URL without a second
// gateway intent. If the gateway call fails the payment stays pending and
// the error wraps ErrGateway; Process can be called again.
func (s *PaymentService) Process(ctx context.Context, paymentID uint) (*models.Payment, string, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, "", err
	}

	if p.Status == models.PaymentProcessing {
		s.logger.Info("payment already processing", zap.Uint("payment_id", p.ID))
		return p, p.CheckoutURL, nil
	}
	if p.Status != models.PaymentPending {
		return nil, "", fmt.Errorf("%w: cannot process payment in state %s", models.ErrInvalidTransition, p.Status)
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:      p.Amount,
		Currency:    p.Currency,
		OrderID:     p.OrderID,
		Description: p.Notes,
	})
	if err != nil {
		s.logger.Warn("gateway intent failed, payment stays pending",
			zap.Uint("payment_id", p.ID), zap.Error(err))
		return p, "", fmt.Errorf("%w: %v", models.ErrGateway, err)
	}

	now := s.clock.Now()
	p.Status = models.PaymentProcessing
	p.GatewayTransactionID = intent.TransactionID
	p.GatewayResponse = intent.RawResponse
	p.CheckoutURL = intent.RedirectURL
	p.ProcessedAt = &now
	if err := s.payments.Update(p); err != nil {
		return nil, "", err
	}

	s.logger.Info("payment processing",
		zap.Uint("payment_id", p.ID),
		zap.String("transaction_id", p.GatewayTransactionID))
	return p, intent.RedirectURL, nil
}

// Complete settles a payment after the gateway reports success. The
// gateway is re-queried here so a forged or stale callback cannot complete
// a payment the provider does not consider paid.
//
// Completing an already completed payment re-applies the downstream effect,
// which is itself idempotent, and reports success. A gateway error leaves
// the payment untouched. ErrPaymentPending means the provider has not
// settled yet; try again later.
func (s *PaymentService) Complete(ctx context.Context, paymentID uint, gatewayTxID string) (*models.Payment, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}

	if p.Status == models.PaymentCompleted {
		s.logger.Info("payment already completed, re-checking downstream effect",
			zap.Uint("payment_id", p.ID))
		settled, _, err := s.settle(p.ID, gatewayTxID)
		return settled, err
	}
	if p.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot complete payment in state %s", models.ErrInvalidTransition, p.Status)
	}

	ref := p.GatewayTransactionID
	if ref == "" {
		ref = gatewayTxID
	}
	if ref == "" {
		ref = p.OrderID
	}

	// The gateway is queried outside the settlement lock.
	status, err := s.gateway.QueryStatus(ctx, ref)
	if err != nil {
		s.logger.Warn("gateway status check failed, payment untouched",
			zap.Uint("payment_id", p.ID), zap.Error(err))
		return p, fmt.Errorf("%w: %v", models.ErrGateway, err)
	}

	switch status {
	case payment.StatusCompleted:
		settled, transitioned, err := s.settle(p.ID, gatewayTxID)
		if err != nil {
			return p, err
		}
		if transitioned {
			s.sendReceipt(settled)
		}
		return settled, nil

	case payment.StatusFailed:
		if _, err := s.Fail(p.ID, "gateway reported failure"); err != nil {
			return p, err
		}
		return p, fmt.Errorf("%w: gateway reported failure", models.ErrGateway)

	default:
		return p, models.ErrPaymentPending
	}
}

// settle marks the payment completed and applies its downstream effect in
// one transaction that holds the payment row lock. A webhook delivery
// racing a confirm call (or a renewal sweep) serializes here; the status is
// re-checked under the lock so the grant runs once. The bool reports
// whether this call performed the transition.
func (s *PaymentService) settle(paymentID uint, gatewayTxID string) (*models.Payment, bool, error) {
	var (
		settled      *models.Payment
		transitioned bool
	)
	err := s.payments.Settle(paymentID, func(tx SettlementStores, p *models.Payment) error {
		settled = p
		if p.Status.Terminal() && p.Status != models.PaymentCompleted {
			return fmt.Errorf("%w: cannot complete payment in state %s", models.ErrInvalidTransition, p.Status)
		}
		if p.Status != models.PaymentCompleted {
			if gatewayTxID != "" && p.GatewayTransactionID == "" {
				p.GatewayTransactionID = gatewayTxID
			}
			now := s.clock.Now()
			p.Status = models.PaymentCompleted
			p.CompletedAt = &now
			if err := tx.Payments.Update(p); err != nil {
				return err
			}
			transitioned = true
			s.logger.Info("payment completed",
				zap.Uint("payment_id", p.ID), zap.String("order_id", p.OrderID))
		}
		return s.applyDownstream(tx, p)
	})
	if err != nil {
		return settled, false, err
	}
	return settled, transitioned, nil
}

// Fail marks a payment failed. Failing an already failed payment is a
// no-op; failing a completed, cancelled or refunded one is an invalid
// transition.
func (s *PaymentService) Fail(paymentID uint, reason string) (*models.Payment, error) {
	var failed *models.Payment
	err := s.payments.Settle(paymentID, func(tx SettlementStores, p *models.Payment) error {
		failed = p
		if p.Status == models.PaymentFailed {
			s.logger.Info("payment already failed", zap.Uint("payment_id", p.ID))
			return nil
		}
		if p.Status.Terminal() {
			return fmt.Errorf("%w: cannot fail payment in state %s", models.ErrInvalidTransition, p.Status)
		}

		p.Status = models.PaymentFailed
		p.Notes = reason
		if err := tx.Payments.Update(p); err != nil {
			return err
		}
		s.logger.Warn("payment failed",
			zap.Uint("payment_id", p.ID), zap.String("reason", reason))

		// A failed top-up payment takes its purchase down with it.
		if p.Kind == models.PaymentTopup && p.CreditPurchaseID != nil {
			purchase, err := tx.Purchases.GetByID(*p.CreditPurchaseID)
			if err != nil {
				return err
			}
			if purchase.Status == models.PurchasePending {
				purchase.Status = models.PurchaseFailed
				return tx.Purchases.Update(purchase)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// Cancel is an administrative override and can be forced from any state.
func (s *PaymentService) Cancel(paymentID uint) (*models.Payment, error) {
	return s.override(paymentID, models.PaymentCancelled)
}

// Refund is an administrative override recording that a completed payment
// was refunded at the gateway. Credits already granted are not clawed back.
func (s *PaymentService) Refund(paymentID uint) (*models.Payment, error) {
	return s.override(paymentID, models.PaymentRefunded)
}

func (s *PaymentService) override(paymentID uint, target models.PaymentStatus) (*models.Payment, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == target {
		return p, nil
	}

	p.Status = target
	if err := s.payments.Update(p); err != nil {
		return nil, err
	}
	s.logger.Info("payment status overridden",
		zap.Uint("payment_id", p.ID), zap.String("status", string(target)))
	return p, nil
}

// HandleWebhook verifies and applies a gateway callback. Unknown orders and
// bad signatures are rejected; a pending callback status is acknowledged
// without any state change.
func (s *PaymentService) HandleWebhook(ctx context.Context, data, signature string) error {
	event, err := s.gateway.VerifyWebhook(data, signature)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return err
	}

	p, err := s.payments.GetByOrderID(event.OrderID)
	if err != nil {
		s.logger.Warn("webhook for unknown order", zap.String("order_id", event.OrderID))
		return err
	}

	switch event.Status {
	case payment.StatusCompleted:
		_, err := s.Complete(ctx, p.ID, event.TransactionID)
		return err
	case payment.StatusFailed:
		_, err := s.Fail(p.ID, "gateway callback: "+event.RawStatus)
		return err
	default:
		s.logger.Info("webhook with pending status ignored",
			zap.String("order_id", event.OrderID), zap.String("raw_status", event.RawStatus))
		return nil
	}
}

func (s *PaymentService) History(userID uint) ([]models.Payment, error) {
	return s.payments.GetUserPayments(userID)
}

// Get returns one of the user's payments. Other users' payments read as
// not found.
func (s *PaymentService) Get(userID, paymentID uint) (*models.Payment, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, models.ErrNotFound
	}
	return p, nil
}

// applyDownstream applies what a completed payment pays for, inside the
// settlement transaction. It must be idempotent: webhooks are redelivered
// and Complete re-runs it for already completed payments.
func (s *PaymentService) applyDownstream(tx SettlementStores, p *models.Payment) error {
	switch p.Kind {
	case models.PaymentSubscription:
		if p.SubscriptionID == nil {
			return nil
		}
		return s.applySubscriptionPayment(tx, p)
	case models.PaymentTopup:
		if p.CreditPurchaseID == nil {
			return nil
		}
		return s.applyTopupPayment(tx, p)
	}
	return nil
}

func (s *PaymentService) applySubscriptionPayment(tx SettlementStores, p *models.Payment) error {
	sub, err := tx.Subscriptions.GetByID(*p.SubscriptionID)
	if err != nil {
		return err
	}

	switch sub.Status {
	case models.SubscriptionPending:
		return applyActivation(tx.Subscriptions, tx.Users, sub, s.clock.Now())

	case models.SubscriptionActive, models.SubscriptionPastDue:
		// Redelivery guard: if the subscription was already granted a
		// period at or after this payment was created, this payment has
		// been applied. Runs under the payment row lock, so two deliveries
		// of the same payment cannot both pass the check.
		appliedAt := sub.LastRenewedAt
		if appliedAt == nil {
			appliedAt = sub.PeriodStart
		}
		if appliedAt != nil && !appliedAt.Before(p.CreatedAt) {
			s.logger.Info("subscription payment already applied",
				zap.Uint("payment_id", p.ID), zap.Uint("subscription_id", sub.ID))
			return nil
		}
		return applyRenewal(tx.Subscriptions, tx.Users, sub, s.clock.Now())

	default:
		s.logger.Warn("completed payment for terminal subscription, nothing applied",
			zap.Uint("payment_id", p.ID),
			zap.Uint("subscription_id", sub.ID),
			zap.String("subscription_status", string(sub.Status)))
		return nil
	}
}

func (s *PaymentService) applyTopupPayment(tx SettlementStores, p *models.Payment) error {
	purchase, err := tx.Purchases.GetByID(*p.CreditPurchaseID)
	if err != nil {
		return err
	}
	if purchase.Status != models.PurchasePending {
		s.logger.Info("top-up purchase already settled",
			zap.Uint("payment_id", p.ID),
			zap.Uint("purchase_id", purchase.ID),
			zap.String("purchase_status", string(purchase.Status)))
		return nil
	}

	if err := tx.Users.AddCredits(purchase.UserID, purchase.TotalCredits); err != nil {
		return err
	}

	now := s.clock.Now()
	purchase.Status = models.PurchaseCompleted
	purchase.CompletedAt = &now
	if err := tx.Purchases.Update(purchase); err != nil {
		return err
	}

	s.logger.Info("top-up credits granted",
		zap.Uint("user_id", purchase.UserID),
		zap.Uint("purchase_id", purchase.ID),
		zap.Int("credits", purchase.TotalCredits))
	return nil
}

func (s *PaymentService) sendReceipt(p *models.Payment) {
	if s.mailer == nil {
		return
	}
	user, err := s.users.GetByID(p.UserID)
	if err != nil {
		s.logger.Warn("receipt skipped, user lookup failed",
			zap.Uint("payment_id", p.ID), zap.Error(err))
		return
	}
	// Best-effort; the mailer logs its own failures.
	_ = s.mailer.SendPaymentReceipt(user.Email, string(p.Kind), p.Amount.StringFixed(2), p.Currency, p.OrderID)
}
