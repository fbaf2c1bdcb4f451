// Command renew runs one subscription renewal sweep and exits. Intended to
// be scheduled, e.g. daily from cron.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/config"
	"github.com/vidora/vidora-backend/internal/pricing"
	"github.com/vidora/vidora-backend/internal/repository"
	"github.com/vidora/vidora-backend/internal/service"
	"github.com/vidora/vidora-backend/pkg/clock"
	"github.com/vidora/vidora-backend/pkg/database"
	"github.com/vidora/vidora-backend/pkg/email"
	"github.com/vidora/vidora-backend/pkg/logger"
	"github.com/vidora/vidora-backend/pkg/payment"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.LoadConfig()

	if err := pricing.Validate(); err != nil {
		log.Fatal("Pricing validation failed: ", err)
	}

	zapLogger, err := logger.New(cfg.Development)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	var gateway payment.Gateway
	if cfg.Epoint.TestMode {
		gateway = payment.NewMockGateway(cfg.FrontendURL, cfg.Epoint.SecretKey)
		zapLogger.Warn("payment gateway running in test mode")
	} else {
		gateway = payment.NewEpointClient(cfg.Epoint.APIURL, cfg.Epoint.PublicKey, cfg.Epoint.SecretKey, cfg.FrontendURL)
	}

	emailService := email.NewEmailService(zapLogger)
	systemClock := clock.System()

	paymentService := service.NewPaymentService(
		paymentRepo,
		userRepo,
		gateway,
		emailService,
		systemClock,
		zapLogger,
	)
	subscriptionService := service.NewSubscriptionService(
		subscriptionRepo,
		userRepo,
		paymentService,
		emailService,
		systemClock,
		zapLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := subscriptionService.RenewDueSubscriptions(ctx)
	if err != nil {
		zapLogger.Fatal("renewal sweep failed", zap.Error(err))
	}

	zapLogger.Info("renewal sweep done",
		zap.Int("examined", report.Examined),
		zap.Int("renewed", report.Renewed),
		zap.Int("awaiting_gateway", report.AwaitingGateway),
		zap.Int("past_due", report.PastDue),
		zap.Int("expired", report.Expired),
		zap.Int("errors", report.Errors))
}
