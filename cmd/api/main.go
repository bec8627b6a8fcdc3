package main

import (
	"fmt"
	"os"

	"budgethq/internal/config"
	"budgethq/internal/database"
	"budgethq/internal/logger"
	"budgethq/internal/services"
	"budgethq/internal/validator"

	_ "budgethq/internal/docs" // Import swagger docs
)

// @title           BudgetHQ API
// @version         1.0
// @description     BudgetHQ tracks accounts, buckets, payments, deposits and transfers inside a single open month, and closes months into snapshots.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	if err := services.NewRecurringService(db, services.NewAccountService(db)).SeedFrequencies(); err != nil {
		return fmt.Errorf("failed to seed frequencies: %w", err)
	}

	validator.Register()
	router := newEngine(db, cfg)

	log.Infow("Starting BudgetHQ server",
		"port", cfg.Server.Port,
		"driver", cfg.Database.Driver,
		"require_reconciliation", cfg.Ledger.RequireReconciliation)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
	return router.Run(":" + cfg.Server.Port)
}
