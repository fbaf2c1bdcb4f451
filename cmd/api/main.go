package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/config"
	"github.com/vidora/vidora-backend/internal/handler"
	"github.com/vidora/vidora-backend/internal/middleware"
	"github.com/vidora/vidora-backend/internal/pricing"
	"github.com/vidora/vidora-backend/internal/repository"
	"github.com/vidora/vidora-backend/internal/service"
	"github.com/vidora/vidora-backend/pkg/clock"
	"github.com/vidora/vidora-backend/pkg/database"
	"github.com/vidora/vidora-backend/pkg/email"
	"github.com/vidora/vidora-backend/pkg/falai"
	"github.com/vidora/vidora-backend/pkg/logger"
	"github.com/vidora/vidora-backend/pkg/payment"
	"github.com/vidora/vidora-backend/pkg/storage"
	"github.com/vidora/vidora-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.LoadConfig()

	// The pricing catalogs are locked in code; refuse to serve if they
	// disagree with themselves.
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
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	generationRepo := repository.NewGenerationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	purchaseRepo := repository.NewCreditPurchaseRepository(db)

	// Gateway: the mock settles instantly and is selected for local and
	// test runs.
	var gateway payment.Gateway
	if cfg.Epoint.TestMode {
		gateway = payment.NewMockGateway(cfg.FrontendURL, cfg.Epoint.SecretKey)
		zapLogger.Warn("payment gateway running in test mode")
	} else {
		gateway = payment.NewEpointClient(cfg.Epoint.APIURL, cfg.Epoint.PublicKey, cfg.Epoint.SecretKey, cfg.FrontendURL)
	}

	var archiver storage.Archiver
	if cfg.R2.AccountID != "" {
		r2Storage, err := storage.NewR2Storage(cfg)
		if err != nil {
			log.Fatal("Failed to initialize R2 storage: ", err)
		}
		archiver = r2Storage
	} else {
		zapLogger.Warn("R2 not configured, generation artifacts will not be archived")
	}

	emailService := email.NewEmailService(zapLogger)
	runner := falai.NewClient(cfg.FalKey)
	systemClock := clock.System()

	// Services
	ledgerService := service.NewLedgerService(ledgerRepo, systemClock, zapLogger)
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
	topupService := service.NewTopupService(purchaseRepo, paymentService, zapLogger)
	generationService := service.NewGenerationService(
		generationRepo,
		ledgerService,
		runner,
		archiver,
		zapLogger,
	)

	validator := utils.NewValidator()

	// Handlers
	generationHandler := handler.NewGenerationHandler(generationService, validator)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, validator)
	topupHandler := handler.NewTopupHandler(topupService, validator)
	pricingHandler := handler.NewPricingHandler()
	userHandler := handler.NewUserHandler(userRepo, ledgerService)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api := app.Group("/api")

	// Public routes
	api.Post("/payments/webhook", paymentHandler.HandleWebhook)
	api.Get("/pricing/tools", pricingHandler.Tools)
	api.Get("/pricing/plans", pricingHandler.Plans)
	api.Get("/pricing/topups", pricingHandler.TopupPackages)

	// Protected routes
	api.Use(middleware.AuthMiddleware())
	{
		user := api.Group("/user")
		user.Get("/profile", userHandler.Profile)
		user.Get("/balance", userHandler.Balance)

		generations := api.Group("/generations")
		generations.Post("/", generationHandler.Create)
		generations.Get("/", generationHandler.History)
		generations.Get("/:id", generationHandler.Get)

		subscription := api.Group("/subscription")
		subscription.Get("/", subscriptionHandler.Info)
		subscription.Post("/", subscriptionHandler.Purchase)
		subscription.Delete("/", subscriptionHandler.Cancel)

		topups := api.Group("/topups")
		topups.Post("/", topupHandler.Purchase)
		topups.Get("/", topupHandler.History)

		payments := api.Group("/payments")
		payments.Get("/history", paymentHandler.History)
		payments.Post("/:id/confirm", paymentHandler.Confirm)
	}

	zapLogger.Info("server starting", zap.String("port", cfg.Port))
	log.Fatal(app.Listen(":" + cfg.Port))
}
