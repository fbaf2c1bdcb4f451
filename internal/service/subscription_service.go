package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/pricing"
	"github.com/vidora/vidora-backend/pkg/clock"
)

// SubscriptionService manages the one-per-account subscription lifecycle.
// Money flows through PaymentService; credit grants happen only when the
// linked payment completes.
type SubscriptionService struct {
	subscriptions SubscriptionStore
	users         UserStore
	payments      *PaymentService
	mailer        Mailer
	clock         clock.Clock
	logger        *zap.Logger
}

func NewSubscriptionService(
	subscriptions SubscriptionStore,
	users UserStore,
	payments *PaymentService,
	mailer Mailer,
	clk clock.Clock,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		users:         users,
		payments:      payments,
		mailer:        mailer,
		clock:         clk,
		logger:        logger,
	}
}

// Purchase creates a pending subscription and opens a checkout for the
// first payment. The subscription activates when that payment completes,
// never before. A live existing subscription blocks the purchase; a
// cancelled or expired one is reused for the new plan.
func (s *SubscriptionService) Purchase(ctx context.Context, userID uint, req models.PurchaseSubscriptionRequest) (*models.Subscription, *models.CheckoutResult, error) {
	plan, ok := pricing.Plans[req.Plan]
	if !ok {
		return nil, nil, models.ErrInvalidPlan
	}

	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	sub, err := s.subscriptions.GetByUserID(userID)
	switch {
	case err == nil:
		if !sub.Status.Terminal() {
			return nil, nil, models.ErrAlreadySubscribed
		}
		sub.Plan = req.Plan
		sub.Status = models.SubscriptionPending
		sub.AutoRenew = autoRenew
		sub.PeriodStart = nil
		sub.PeriodEnd = nil
		sub.CancelledAt = nil
		sub.LastRenewedAt = nil
		if err := s.subscriptions.Update(sub); err != nil {
			return nil, nil, err
		}
	case errors.Is(err, models.ErrNotFound):
		sub = &models.Subscription{
			UserID:    userID,
			Plan:      req.Plan,
			Status:    models.SubscriptionPending,
			AutoRenew: autoRenew,
		}
		if err := s.subscriptions.Create(sub); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	p, err := s.payments.Create(NewPayment{
		UserID:         userID,
		Kind:           models.PaymentSubscription,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		Description:    fmt.Sprintf("%s plan subscription", plan.Name),
		SubscriptionID: &sub.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	p, redirectURL, err := s.payments.Process(ctx, p.ID)
	if err != nil {
		// The payment stays pending and the purchase can be retried.
		return nil, nil, err
	}

	return sub, &models.CheckoutResult{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		RedirectURL: redirectURL,
	}, nil
}

// Info returns the user's subscription and its plan.
func (s *SubscriptionService) Info(userID uint) (*models.Subscription, *pricing.Plan, error) {
	sub, err := s.subscriptions.GetByUserID(userID)
	if err != nil {
		return nil, nil, err
	}
	plan, ok := pricing.Plans[sub.Plan]
	if !ok {
		return sub, nil, nil
	}
	return sub, &plan, nil
}

// Cancel tears the subscription down immediately: cancelled status, balance
// zeroed, open holds released without re-credit, pending top-ups cancelled.
// All in one transaction in the store.
func (s *SubscriptionService) Cancel(userID uint) (*models.Subscription, error) {
	sub, err := s.subscriptions.HardCancel(userID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription cancelled",
		zap.Uint("user_id", userID),
		zap.Uint("subscription_id", sub.ID),
		zap.String("plan", sub.Plan))
	return sub, nil
}

// RenewalReport summarizes one renewal sweep.
type RenewalReport struct {
	Examined        int
	Renewed         int
	AwaitingGateway int
	PastDue         int
	Expired         int
	Errors          int
}

// RenewDueSubscriptions sweeps all live subscriptions whose period has
// elapsed and attempts to renew each. Intended to be run on a schedule.
func (s *SubscriptionService) RenewDueSubscriptions(ctx context.Context) (RenewalReport, error) {
	var report RenewalReport

	due, err := s.subscriptions.DueForRenewal(s.clock.Now())
	if err != nil {
		return report, err
	}
	report.Examined = len(due)

	for i := range due {
		sub := &due[i]
		outcome, err := s.attemptRenewal(ctx, sub)
		if err != nil {
			report.Errors++
			s.logger.Error("renewal attempt errored",
				zap.Uint("subscription_id", sub.ID), zap.Error(err))
		}
		switch outcome {
		case renewalDone:
			report.Renewed++
		case renewalAwaitingGateway:
			report.AwaitingGateway++
		case renewalPastDue:
			report.PastDue++
		case renewalExpired:
			report.Expired++
		}
	}

	s.logger.Info("renewal sweep finished",
		zap.Int("examined", report.Examined),
		zap.Int("renewed", report.Renewed),
		zap.Int("awaiting_gateway", report.AwaitingGateway),
		zap.Int("past_due", report.PastDue),
		zap.Int("expired", report.Expired),
		zap.Int("errors", report.Errors))
	return report, nil
}

type renewalOutcome int

const (
	renewalNone renewalOutcome = iota
	renewalDone
	renewalAwaitingGateway
	renewalPastDue
	renewalExpired
)

// attemptRenewal charges one due subscription. With auto-renew off the
// subscription simply expires. A payment failure moves the subscription to
// past_due and it gets exactly one more attempt on the next sweep; failing
// that, it expires.
func (s *SubscriptionService) attemptRenewal(ctx context.Context, sub *models.Subscription) (renewalOutcome, error) {
	if !sub.AutoRenew {
		if err := s.expire(sub); err != nil {
			return renewalNone, err
		}
		return renewalExpired, nil
	}

	plan, ok := pricing.Plans[sub.Plan]
	if !ok {
		return renewalNone, fmt.Errorf("subscription %d has unknown plan %q", sub.ID, sub.Plan)
	}

	p, err := s.payments.Create(NewPayment{
		UserID:         sub.UserID,
		Kind:           models.PaymentSubscription,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		Description:    fmt.Sprintf("%s plan renewal", plan.Name),
		SubscriptionID: &sub.ID,
	})
	if err != nil {
		return renewalNone, err
	}

	if _, _, err := s.payments.Process(ctx, p.ID); err != nil {
		return s.renewalFailed(sub, err)
	}

	_, err = s.payments.Complete(ctx, p.ID, "")
	switch {
	case err == nil:
		s.logger.Info("subscription renewed",
			zap.Uint("subscription_id", sub.ID), zap.Uint("payment_id", p.ID))
		return renewalDone, nil
	case errors.Is(err, models.ErrPaymentPending):
		// The gateway has not settled yet; the webhook will finish the
		// renewal. The subscription is left as-is.
		s.logger.Info("renewal awaiting gateway settlement",
			zap.Uint("subscription_id", sub.ID), zap.Uint("payment_id", p.ID))
		return renewalAwaitingGateway, nil
	default:
		return s.renewalFailed(sub, err)
	}
}

func (s *SubscriptionService) renewalFailed(sub *models.Subscription, cause error) (renewalOutcome, error) {
	if sub.Status == models.SubscriptionPastDue {
		// Second consecutive failure.
		if err := s.expire(sub); err != nil {
			return renewalNone, err
		}
		s.logger.Warn("past-due subscription expired after failed retry",
			zap.Uint("subscription_id", sub.ID), zap.Error(cause))
		return renewalExpired, nil
	}

	sub.Status = models.SubscriptionPastDue
	if err := s.subscriptions.Update(sub); err != nil {
		return renewalNone, err
	}
	s.logger.Warn("subscription past due",
		zap.Uint("subscription_id", sub.ID), zap.Error(cause))
	s.sendPastDueNotice(sub)
	return renewalPastDue, nil
}

func (s *SubscriptionService) expire(sub *models.Subscription) error {
	sub.Status = models.SubscriptionExpired
	if err := s.subscriptions.Update(sub); err != nil {
		return err
	}
	s.logger.Info("subscription expired",
		zap.Uint("subscription_id", sub.ID), zap.String("plan", sub.Plan))
	return nil
}

func (s *SubscriptionService) sendPastDueNotice(sub *models.Subscription) {
	if s.mailer == nil {
		return
	}
	user, err := s.users.GetByID(sub.UserID)
	if err != nil {
		s.logger.Warn("past-due notice skipped, user lookup failed",
			zap.Uint("subscription_id", sub.ID), zap.Error(err))
		return
	}
	plan := sub.Plan
	if p, ok := pricing.Plans[sub.Plan]; ok {
		plan = p.Name
	}
	_ = s.mailer.SendPastDueNotice(user.Email, plan)
}

// applyActivation grants the first period: the balance is overwritten with
// the plan's monthly credits, not added to.
func applyActivation(subs SubscriptionStore, users UserStore, sub *models.Subscription, now time.Time) error {
	plan, ok := pricing.Plans[sub.Plan]
	if !ok {
		return models.ErrInvalidPlan
	}

	start := now
	end := now.AddDate(0, 0, plan.PeriodDays)
	sub.Status = models.SubscriptionActive
	sub.PeriodStart = &start
	sub.PeriodEnd = &end
	if err := subs.Update(sub); err != nil {
		return err
	}
	return users.SetCredits(sub.UserID, plan.Credits)
}

// applyRenewal grants the next period. Unused credits are forfeited: the
// balance is reset to the plan amount.
func applyRenewal(subs SubscriptionStore, users UserStore, sub *models.Subscription, now time.Time) error {
	plan, ok := pricing.Plans[sub.Plan]
	if !ok {
		return models.ErrInvalidPlan
	}

	start := now
	end := now.AddDate(0, 0, plan.PeriodDays)
	sub.Status = models.SubscriptionActive
	sub.PeriodStart = &start
	sub.PeriodEnd = &end
	sub.LastRenewedAt = &start
	if err := subs.Update(sub); err != nil {
		return err
	}
	return users.SetCredits(sub.UserID, plan.Credits)
}
