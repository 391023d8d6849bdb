package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"procurement-service/internal/cache"
	"procurement-service/internal/config"
	"procurement-service/internal/events"
	"procurement-service/internal/handlers"
	"procurement-service/internal/jobs"
	"procurement-service/internal/middleware"
	"procurement-service/internal/models"
	"procurement-service/internal/repository"
	"procurement-service/internal/seeders"
	"procurement-service/internal/services"
)

// @title Procurement Approvals API
// @version 1.0.0
// @description Approval matrix, workflow and vendor selection service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8099
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&models.ApprovalRole{},
		&models.UserApprover{},
		&models.UserRoleAssignment{},
		&models.ApprovalRule{},
		&models.RuleApprover{},
		&models.ApprovalWorkflow{},
		&models.WorkflowAction{},
		&models.ApprovalAuditLog{},
		&models.RoleRequest{},
		&models.ApprovalDelegation{},
		&models.RFQ{},
		&models.VendorQuote{},
		&models.PurchaseRequest{},
	); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Seed default roles and approval matrix
	if err := seeders.SeedDefaults(db); err != nil {
		logger.Warnf("Failed to seed defaults: %v", err)
	}

	// Initialize repositories
	ruleRepo := repository.NewRuleRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	roleRequestRepo := repository.NewRoleRequestRepository(db)
	procurementRepo := repository.NewProcurementRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)

	// Initialize event publisher (optional - service works without NATS)
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warnf("Failed to initialize event publisher: %v. Events will not be published.", err)
			publisher = nil
		} else {
			logger.Info("Event publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not configured, event publishing disabled")
	}

	// Initialize rule cache (optional - matcher falls back to the database)
	var ruleCache *cache.RuleCache
	if cfg.RedisAddr != "" {
		ruleCache, err = cache.NewRuleCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RuleCacheTTL)
		if err != nil {
			logger.Warnf("Failed to initialize rule cache: %v. Rules will be read from the database.", err)
		} else {
			logger.Info("Rule cache initialized")
		}
	} else {
		logger.Info("REDIS_ADDR not configured, rule caching disabled")
	}

	// Initialize services
	matcherService := services.NewMatcherService(ruleRepo, ruleCache, logger)
	ruleService := services.NewRuleService(ruleRepo, roleRepo, ruleCache, logger)
	roleService := services.NewRoleService(roleRepo, logger)
	workflowService := services.NewWorkflowService(workflowRepo, roleRepo, delegationRepo, matcherService, publisher, logger)
	roleRequestService := services.NewRoleRequestService(roleRequestRepo, logger)
	vendorService := services.NewVendorService(procurementRepo, publisher, logger)
	delegationService := services.NewDelegationService(delegationRepo, roleRepo, logger)

	// Initialize handlers
	ruleHandler := handlers.NewRuleHandler(ruleService, matcherService)
	roleHandler := handlers.NewRoleHandler(roleService)
	workflowHandler := handlers.NewWorkflowHandler(workflowService)
	roleRequestHandler := handlers.NewRoleRequestHandler(roleRequestService)
	procurementHandler := handlers.NewProcurementHandler(vendorService)
	delegationHandler := handlers.NewDelegationHandler(delegationService)

	// Start escalation job
	escalationJob := jobs.NewEscalationJob(
		workflowService,
		time.Duration(cfg.EscalationAfterHours)*time.Hour,
		time.Duration(cfg.EscalationCheckMinutes)*time.Minute,
		logger,
	)
	jobCtx, jobCancel := context.WithCancel(context.Background())
	go escalationJob.Start(jobCtx)
	logger.Info("Escalation job started")

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	api.Use(middleware.TenantMiddleware())

	// Approval matrix endpoints
	{
		api.POST("/rules", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), ruleHandler.CreateRule)
		api.GET("/rules", ruleHandler.ListRules)
		api.GET("/rules/:id", ruleHandler.GetRule)
		api.PUT("/rules/:id", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), ruleHandler.UpdateRule)
		api.POST("/rules/:id/deactivate", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), ruleHandler.DeactivateRule)
		api.POST("/rules/match", ruleHandler.MatchRule)
	}

	// Approval role endpoints
	{
		api.POST("/roles", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), roleHandler.CreateRole)
		api.GET("/roles", roleHandler.ListRoles)
		api.GET("/roles/:id", roleHandler.GetRole)
		api.PUT("/roles/:id", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), roleHandler.UpdateRole)
		api.DELETE("/roles/:id", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), roleHandler.DeleteRole)
		api.POST("/roles/:id/deactivate", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), roleHandler.DeactivateRole)

		api.POST("/approvers", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), roleHandler.AssignApprover)
		api.DELETE("/approvers/:id", middleware.RequireAnyRole(string(models.AppRoleProcurementAdmin)), roleHandler.RevokeApprover)
		api.GET("/approvers/users/:userId", roleHandler.ListUserApprovers)
	}

	// Workflow endpoints
	{
		api.POST("/workflows", workflowHandler.StartWorkflow)
		api.GET("/workflows", workflowHandler.ListWorkflows)
		api.GET("/workflows/my-requests", workflowHandler.ListMyWorkflows)
		api.GET("/workflows/:id", workflowHandler.GetWorkflow)
		api.POST("/workflows/:id/approve", workflowHandler.ApproveAction)
		api.POST("/workflows/:id/reject", workflowHandler.RejectAction)
		api.GET("/workflows/:id/history", workflowHandler.GetHistory)
	}

	// Role request endpoints
	{
		api.POST("/role-requests", roleRequestHandler.CreateRequest)
		api.GET("/role-requests", roleRequestHandler.ListRequests)
		api.GET("/role-requests/my-requests", roleRequestHandler.ListMyRequests)
		api.GET("/role-requests/:id", roleRequestHandler.GetRequest)
		api.POST("/role-requests/:id/manager-approve", roleRequestHandler.LineManagerApprove)
		api.POST("/role-requests/:id/manager-reject", roleRequestHandler.LineManagerReject)
		api.POST("/role-requests/:id/admin-approve", middleware.RequireAnyRole(string(models.AppRoleAdmin)), roleRequestHandler.AdminApprove)
		api.POST("/role-requests/:id/admin-reject", middleware.RequireAnyRole(string(models.AppRoleAdmin)), roleRequestHandler.AdminReject)
	}

	// Procurement endpoints
	{
		api.POST("/rfqs", procurementHandler.CreateRFQ)
		api.GET("/rfqs", procurementHandler.ListRFQs)
		api.GET("/rfqs/:id", procurementHandler.GetRFQ)
		api.POST("/rfqs/:id/quotes", procurementHandler.SubmitQuote)
		api.POST("/rfqs/:id/select-vendor", procurementHandler.SelectVendor)
		api.GET("/purchase-requests/:id", procurementHandler.GetPurchaseRequest)
		api.POST("/purchase-requests/:id/submit", procurementHandler.SubmitPurchaseRequest)
	}

	// Delegation endpoints
	{
		api.POST("/delegations", delegationHandler.CreateDelegation)
		api.GET("/delegations/created", delegationHandler.ListMyDelegations)
		api.GET("/delegations/received", delegationHandler.ListDelegationsToMe)
		api.GET("/delegations/:id", delegationHandler.GetDelegation)
		api.DELETE("/delegations/:id", delegationHandler.RevokeDelegation)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8099"
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Procurement service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	logger.Info("Shutting down server...")

	// Stop escalation job
	jobCancel()
	escalationJob.Stop()
	logger.Info("Escalation job stopped")

	// Release external connections
	if publisher != nil {
		publisher.Close()
	}
	if ruleCache != nil {
		ruleCache.Close()
	}

	logger.Info("Server shutdown complete")
}
