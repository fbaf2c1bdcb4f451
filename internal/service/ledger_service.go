package service

import (
	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/pkg/clock"
)

// LedgerService is the only path through which credits are held and
// settled. Placing a hold deducts the credits from the balance immediately;
// confirming only records finality; releasing puts the credits back.
type LedgerService struct {
	store  LedgerStore
	clock  clock.Clock
	logger *zap.Logger
}

func NewLedgerService(store LedgerStore, clk clock.Clock, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// Balance returns the current balance and the sum of open holds.
func (s *LedgerService) Balance(userID uint) (int, int, error) {
	return s.store.AvailableBalance(userID)
}

// PlaceHold reserves credits for a generation. On insufficient balance it
// returns InsufficientCreditsError and changes nothing.
func (s *LedgerService) PlaceHold(userID uint, kind models.GenerationKind, generationID uint, amount int) (*models.CreditHold, error) {
	hold, err := s.store.PlaceHold(userID, kind, generationID, amount, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit hold placed",
		zap.Uint("user_id", userID),
		zap.Uint("hold_id", hold.ID),
		zap.Uint("generation_id", generationID),
		zap.Int("credits", amount))
	return hold, nil
}

// ConfirmHold finalizes a hold after a successful generation. The balance
// does not move. Confirming an already resolved hold is a no-op; the
// returned bool is false in that case.
func (s *LedgerService) ConfirmHold(id uint) (*models.CreditHold, bool, error) {
	hold, resolved, err := s.store.ConfirmHold(id, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if !resolved {
		s.logger.Info("hold already resolved, confirm skipped",
			zap.Uint("hold_id", id), zap.String("status", string(hold.Status)))
		return hold, false, nil
	}

	s.logger.Info("credit hold confirmed",
		zap.Uint("hold_id", id), zap.Int("credits", hold.CreditsHeld))
	return hold, true, nil
}

// ReleaseHold returns a hold's credits to the balance after a failed or
// abandoned generation. Releasing an already resolved hold is a no-op; the
// returned bool is false in that case.
func (s *LedgerService) ReleaseHold(id uint) (*models.CreditHold, bool, error) {
	hold, resolved, err := s.store.ReleaseHold(id, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if !resolved {
		s.logger.Info("hold already resolved, release skipped",
			zap.Uint("hold_id", id), zap.String("status", string(hold.Status)))
		return hold, false, nil
	}

	s.logger.Info("credit hold released",
		zap.Uint("hold_id", id), zap.Int("credits", hold.CreditsHeld))
	return hold, true, nil
}
