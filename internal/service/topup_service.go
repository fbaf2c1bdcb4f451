package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/pricing"
)

// TopupService sells one-off credit packages. Credits are granted only when
// the linked payment completes, and they add to the balance instead of
// resetting it.
type TopupService struct {
	purchases PurchaseStore
	payments  *PaymentService
	logger    *zap.Logger
}

func NewTopupService(purchases PurchaseStore, payments *PaymentService, logger *zap.Logger) *TopupService {
	return &TopupService{
		purchases: purchases,
		payments:  payments,
		logger:    logger,
	}
}

// Purchase creates a pending purchase and opens a checkout for it.
func (s *TopupService) Purchase(ctx context.Context, userID uint, req models.CreateTopupRequest) (*models.CreditPurchase, *models.CheckoutResult, error) {
	pkg, ok := pricing.TopupPackages[req.Package]
	if !ok {
		return nil, nil, models.ErrInvalidPackage
	}

	purchase := &models.CreditPurchase{
		UserID:           userID,
		Package:          req.Package,
		Status:           models.PurchasePending,
		CreditsPurchased: pkg.Credits,
		TotalCredits:     pkg.Credits,
		Price:            pkg.Price,
		Currency:         pkg.Currency,
	}
	if err := s.purchases.Create(purchase); err != nil {
		return nil, nil, err
	}

	p, err := s.payments.Create(NewPayment{
		UserID:           userID,
		Kind:             models.PaymentTopup,
		Amount:           pkg.Price,
		Currency:         pkg.Currency,
		Description:      fmt.Sprintf("%s credit package", pkg.Name),
		CreditPurchaseID: &purchase.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	p, redirectURL, err := s.payments.Process(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("top-up checkout opened",
		zap.Uint("user_id", userID),
		zap.Uint("purchase_id", purchase.ID),
		zap.String("package", req.Package))

	return purchase, &models.CheckoutResult{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		RedirectURL: redirectURL,
	}, nil
}

func (s *TopupService) History(userID uint) ([]models.CreditPurchase, error) {
	return s.purchases.GetUserPurchases(userID)
}
