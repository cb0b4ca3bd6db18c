package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trainhub/admin-portal/admin-portal-backend/internal/certificates"
	"trainhub/admin-portal/admin-portal-backend/internal/config"
	"trainhub/admin-portal/admin-portal-backend/internal/programs"
	"trainhub/admin-portal/admin-portal-backend/internal/templates"
	"trainhub/admin-portal/admin-portal-backend/internal/users"
	"trainhub/admin-portal/admin-portal-backend/pkg/storage"
)

// RenderWorker retries certificate renders that failed during issuance and
// persists computed expiries. Issuance only guarantees the certificate row;
// this worker guarantees the PDF eventually exists.
type RenderWorker struct {
	db     *sqlx.DB
	certs  *certificates.Service
	repo   certificates.Repository
	logger *zap.Logger
	config RenderWorkerConfig
}

// RenderWorkerConfig configuration for the render worker
type RenderWorkerConfig struct {
	BatchSize     int
	MaxConcurrent int
	RenderTimeout time.Duration
}

// DefaultRenderWorkerConfig returns default configuration
func DefaultRenderWorkerConfig() RenderWorkerConfig {
	return RenderWorkerConfig{
		BatchSize:     20,
		MaxConcurrent: 4,
		RenderTimeout: 2 * time.Minute,
	}
}

// NewRenderWorker creates a new render worker
func NewRenderWorker(db *sqlx.DB, certs *certificates.Service, repo certificates.Repository, logger *zap.Logger, config RenderWorkerConfig) *RenderWorker {
	return &RenderWorker{
		db:     db,
		certs:  certs,
		repo:   repo,
		logger: logger,
		config: config,
	}
}

// sweepUnrendered re-renders certificates whose asset upload never completed.
func (w *RenderWorker) sweepUnrendered(ctx context.Context) {
	pending, err := w.repo.ListUnrendered(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list unrendered certificates", zap.Error(err))
		return
	}

	if len(pending) == 0 {
		return
	}

	w.logger.Info("Re-rendering certificates", zap.Int("count", len(pending)))

	// Process with concurrency limit
	sem := make(chan struct{}, w.config.MaxConcurrent)

	for _, cert := range pending {
		sem <- struct{}{}

		go func(number string) {
			defer func() { <-sem }()
			w.renderOne(ctx, number)
		}(cert.Number)
	}

	// Wait for completion
	for i := 0; i < w.config.MaxConcurrent; i++ {
		sem <- struct{}{}
	}
}

// renderOne renders a single certificate
func (w *RenderWorker) renderOne(ctx context.Context, number string) {
	renderCtx, cancel := context.WithTimeout(ctx, w.config.RenderTimeout)
	defer cancel()

	startTime := time.Now()
	if _, err := w.certs.Render(renderCtx, number); err != nil {
		w.logger.Error("Certificate render retry failed",
			zap.String("certificate_number", number),
			zap.Error(err))
		return
	}

	w.logger.Info("Certificate rendered",
		zap.String("certificate_number", number),
		zap.Duration("duration", time.Since(startTime)))
}

// sweepExpired persists computed expiries so listings and exports see the
// final status without re-deriving it. Verification derives the status at
// read time either way, so this sweep is about reporting consistency, not
// correctness.
func (w *RenderWorker) sweepExpired(ctx context.Context) {
	res, err := w.db.ExecContext(ctx, `
		UPDATE certificates SET status = 'expired'
		WHERE status = 'valid' AND expires_at IS NOT NULL AND expires_at < NOW()
	`)
	if err != nil {
		w.logger.Error("Failed to mark expired certificates", zap.Error(err))
		return
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		w.logger.Info("Marked certificates expired", zap.Int64("count", affected))
	}
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = godotenv.Load()

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

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open GORM connection", zap.Error(err))
	}

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

	templatesRepo, err := templates.NewRepository(gormDB)
	if err != nil {
		logger.Fatal("Failed to migrate template schema", zap.Error(err))
	}
	templatesService := templates.NewService(templatesRepo, store)

	usersRepo := users.NewRepository(db)
	certsRepo := certificates.NewRepository(db)
	certsService := certificates.NewService(
		certsRepo,
		programs.NewRepository(db),
		templatesService,
		certificates.NewStorageProvider(store),
		certificates.NewNumberGenerator("TRN"),
		logger,
		certificates.DefaultServiceConfig(cfg.Site.BaseURL),
		certificates.TrainerPromotionHook(usersRepo, logger),
	)

	worker := NewRenderWorker(db, certsService, certsRepo, logger, DefaultRenderWorkerConfig())

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", func() { worker.sweepUnrendered(ctx) }); err != nil {
		logger.Fatal("Failed to schedule render sweep", zap.Error(err))
	}
	if _, err := scheduler.AddFunc("15 2 * * *", func() { worker.sweepExpired(ctx) }); err != nil {
		logger.Fatal("Failed to schedule expiry sweep", zap.Error(err))
	}

	// Process any backlog immediately, then hand over to the schedule.
	worker.sweepUnrendered(ctx)
	scheduler.Start()

	logger.Info("Render worker started")

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received")
	cancel()
	<-scheduler.Stop().Done()

	logger.Info("Render worker stopped")
}
