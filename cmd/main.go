package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"tenantcore/internal/caching"
	"tenantcore/internal/config"
	"tenantcore/internal/handlers"
	"tenantcore/internal/identity"
	"tenantcore/internal/jobs/background"
	"tenantcore/internal/middleware"
	"tenantcore/internal/repositories"
	"tenantcore/internal/services"
)

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Security configuration
	cfg := config.DefaultSecurityConfig()
	if cfgPath := os.Getenv("SECURITY_CONFIG"); cfgPath != "" {
		cfg, err = config.LoadSecurityConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load security config: %v", err)
		}
	}

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret: %s", jwtSecret)
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// MinIO configuration for the audit sink
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	shipper, err := services.NewMinioAuditShipper(minioEndpoint, minioAccessKey, minioSecretKey, cfg.Audit.Bucket, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize audit shipper: %v", err)
	}
	if err := shipper.EnsureBucketExists(context.Background()); err != nil {
		log.Printf("WARNING: Audit bucket check failed: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	tenantDataRepo := repositories.NewTenantDataRepo(pool)
	eventsRepo := repositories.NewSecurityEventsRepo(pool)

	// Cache service and identity store
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)
	identityStore := identity.NewStore()

	// Services
	eventSvc := services.NewSecurityEventService(eventsRepo, shipper)
	sessionSvc := services.NewSessionService(userRepo, cacheSvc, identityStore, eventSvc,
		jwtSecret, cfg.Session.TokenTTLSeconds, cfg.Session.RateLimitAttempts, cfg.Session.RateLimitWindowSeconds)
	resolverSvc := services.NewTenantResolverService(tenantRepo, tenantDataRepo, cacheSvc, cfg.Resolver.CacheTTLSeconds)
	validatorSvc := services.NewValidatorService(cacheSvc, identityStore)
	adminSvc := services.NewTenantAdminService(tenantRepo, resolverSvc, eventSvc, identityStore)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(sessionSvc)
	tenantHandlers := handlers.NewTenantHandlers(adminSvc)
	auditHandlers := handlers.NewAuditHandlers(eventSvc, validatorSvc, tenantRepo)
	dataHandlers := handlers.NewDataHandlers(resolverSvc, eventSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Middleware
	enforcer := middleware.NewSecurityEnforcer(eventSvc, cacheSvc, identityStore)
	sessionMW := middleware.SessionMiddleware(sessionSvc)

	// Echo server
	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())

	e.GET("/health", healthHandlers.HealthCheck)

	auth := e.Group("/auth")
	auth.POST("/login", authHandlers.Login)
	auth.POST("/master/login", authHandlers.MasterLogin)
	auth.POST("/logout", authHandlers.Logout)
	auth.GET("/session", authHandlers.CurrentSession)

	master := e.Group("/master", sessionMW, enforcer.ValidateStructure(), enforcer.VerifySessionIntegrity(), enforcer.RequireMasterArea())
	master.GET("/tenants", tenantHandlers.ListTenants)
	master.POST("/tenants", tenantHandlers.CreateTenant)
	master.GET("/tenants/:id", tenantHandlers.GetTenant)
	master.PUT("/tenants/:id", tenantHandlers.UpdateTenant)
	master.DELETE("/tenants/:id", tenantHandlers.DeleteTenant)
	master.POST("/tenants/:id/suspend", tenantHandlers.SuspendTenant)
	master.POST("/tenants/:id/activate", tenantHandlers.ActivateTenant)
	master.GET("/stats", tenantHandlers.SystemStats)
	master.GET("/audit/events", auditHandlers.ListEvents)
	master.GET("/audit/report", auditHandlers.Report)

	app := e.Group("/app", sessionMW, enforcer.ValidateStructure(), enforcer.VerifySessionIntegrity(), enforcer.RequireTenantArea(), enforcer.InterceptTenantParams())
	app.GET("/data", dataHandlers.GetAppData)

	// Background sweeps
	scheduler, err := background.NewJobScheduler(validatorSvc, eventSvc, tenantRepo, cacheSvc, identityStore,
		cfg.Audit.ShipBatchSize,
		time.Duration(cfg.Audit.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.Audit.ShipIntervalSeconds)*time.Second)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Fatal(e.Start(":" + port))
}
