package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trainhub/admin-portal/admin-portal-backend/internal/auth"
	"trainhub/admin-portal/admin-portal-backend/internal/certificates"
	"trainhub/admin-portal/admin-portal-backend/internal/config"
	"trainhub/admin-portal/admin-portal-backend/internal/programs"
	"trainhub/admin-portal/admin-portal-backend/internal/templates"
	"trainhub/admin-portal/admin-portal-backend/internal/users"
	"trainhub/admin-portal/admin-portal-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// The template module manages its own schema through GORM; it shares the
	// underlying connection pool with the sqlx repositories.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open GORM connection", zap.Error(err))
	}

	// Object storage for rendered certificates, QR images and template PDFs
	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Endpoint:        cfg.Storage.Endpoint,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Initialize Template Module
	templatesRepo, err := templates.NewRepository(gormDB)
	if err != nil {
		logger.Fatal("Failed to migrate template schema", zap.Error(err))
	}
	templatesService := templates.NewService(templatesRepo, store)
	templatesHandler := templates.NewHandler(templatesService)

	// Initialize Certificate Module
	usersRepo := users.NewRepository(db)
	programsRepo := programs.NewRepository(db)
	certsRepo := certificates.NewRepository(db)
	certsService := certificates.NewService(
		certsRepo,
		programsRepo,
		templatesService,
		certificates.NewStorageProvider(store),
		certificates.NewNumberGenerator("TRN"),
		logger,
		certificates.DefaultServiceConfig(cfg.Site.BaseURL),
		certificates.TrainerPromotionHook(usersRepo, logger),
	)
	certsHandler := certificates.NewHandler(certsService, logger)

	authMiddleware := auth.NewMiddleware(cfg.Security.JWTSecret)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public verification surface lives at the root so the QR payload
	// ({SITE_BASE_URL}/certificate/verify/{number}) resolves directly.
	certificates.RegisterPublicRoutes(router.Group(""), certsHandler)

	// Register Routes
	api := router.Group("/api/v1")
	{
		certificates.RegisterRoutes(api, certsHandler, authMiddleware)

		admin := api.Group("/admin", authMiddleware.Authenticate(), authMiddleware.RequireRole(users.RoleAdmin))
		{
			templatesHandler.RegisterRoutes(admin)
		}
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
