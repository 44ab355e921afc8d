// Package main provides the main entry point for the academy ledger API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/academy-ledger/app/handlers"
	"github.com/amirphl/academy-ledger/app/middleware"
	"github.com/amirphl/academy-ledger/app/router"
	"github.com/amirphl/academy-ledger/app/scheduler"
	"github.com/amirphl/academy-ledger/app/services"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/amirphl/academy-ledger/config"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	logger    *logrus.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"environment": cfg.Deployment.Environment,
		"version":     cfg.Deployment.Version,
		"commit":      cfg.Deployment.CommitHash,
	}).Info("Starting academy ledger application...")

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully...")

	if err := app.router.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}

	for _, fn := range app.stopFuncs {
		fn()
	}

	logger.Info("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *logrus.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if !cfg.SlowQueryLog {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity; nil when caching is off
func initializeCache(cfg config.CacheConfig, logger *logrus.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithFields(logrus.Fields{"addr": cfg.RedisAddr, "db": cfg.RedisDB}).Info("Redis connection established")
	return rc, nil
}

func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *logrus.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.WithError(err).Warn("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeApplication(cfg *config.ProductionConfig, logger *logrus.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		stopFuncs = append(stopFuncs, func() { _ = sqlDB.Close() })
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	var revocationStore services.RevocationStore = services.NewMemoryRevocationStore()
	var sellerLocker services.SellerLocker
	var lockClient *redislock.Client
	if rc != nil {
		lockClient = redislock.New(rc)
		stopMonitor := startCacheHealthMonitor(context.Background(), rc, 30*time.Second, logger)
		stopFuncs = append(stopFuncs, stopMonitor, func() { _ = rc.Close() })

		revocationStore = services.NewRedisRevocationStore(rc, cfg.Cache.RedisPrefix)
		sellerLocker = services.NewRedisSellerLocker(lockClient, cfg.Cache.RedisPrefix, cfg.Finance.SellerLockTTL)
	} else {
		logger.Warn("Cache disabled: token revocation is process-local and seller locks rely on row locks only")
	}

	userRepo := repository.NewUserRepository(db)
	sellerRepo := repository.NewSellerProfileRepository(db)
	ruleRepo := repository.NewSellerLevelRuleRepository(db)
	historyRepo := repository.NewSellerLevelHistoryRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	templateRepo := repository.NewDistributionTemplateRepository(db)
	bucketRepo := repository.NewFundBucketRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	distRepo := repository.NewSaleDistributionRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	recipientRepo := repository.NewSalaryRecipientRepository(db)
	paymentRepo := repository.NewSalaryPaymentRepository(db)
	kpiRepo := repository.NewMonthlyKpiSnapshotRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	transactor := repository.NewTransactor(db)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		revocationStore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	logger.WithFields(logrus.Fields{"issuer": cfg.JWT.Issuer, "audience": cfg.JWT.Audience}).Info("Token service initialized")

	kpiFlow := businessflow.NewKpiFlow(saleRepo, kpiRepo, auditRepo, transactor, logger)

	saleFlow := businessflow.NewSaleFlow(
		courseRepo,
		templateRepo,
		discountRepo,
		sellerRepo,
		ruleRepo,
		historyRepo,
		saleRepo,
		distRepo,
		auditRepo,
		kpiFlow,
		transactor,
		sellerLocker,
		logger,
	)

	fundFlow := businessflow.NewFundFlow(
		bucketRepo,
		distRepo,
		expenseRepo,
		recipientRepo,
		paymentRepo,
		auditRepo,
		transactor,
	)

	catalogFlow := businessflow.NewCatalogFlow(
		courseRepo,
		discountRepo,
		templateRepo,
		bucketRepo,
		saleRepo,
		auditRepo,
		transactor,
		cfg.Finance.DefaultPlatformFeeRate,
	)

	sellerFlow := businessflow.NewSellerFlow(
		userRepo,
		sellerRepo,
		ruleRepo,
		historyRepo,
		saleRepo,
		auditRepo,
		transactor,
		cfg.Security.BcryptCost,
	)

	authFlow := businessflow.NewAuthFlow(userRepo, sellerRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), time.Minute)
	defer bootCancel()

	owner, err := ensureOwnerAccount(bootCtx, userRepo, cfg.Bootstrap, cfg.Security.BcryptCost, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Bootstrap.SeedDefaults {
		seeder := defaultSetup{
			buckets:     bucketRepo,
			rules:       ruleRepo,
			discounts:   discountRepo,
			templates:   templateRepo,
			fundFlow:    fundFlow,
			sellerFlow:  sellerFlow,
			catalogFlow: catalogFlow,
			logger:      logger,
		}
		if err := seeder.ensure(bootCtx, owner); err != nil {
			return nil, err
		}
	}

	if cfg.Scheduler.Enabled {
		kpiScheduler := scheduler.NewKpiScheduler(
			kpiFlow,
			transactor,
			lockClient,
			cfg.Scheduler.LockTTL,
			cfg.Scheduler.KpiRefreshInterval,
			logger,
		)
		stopFuncs = append(stopFuncs, kpiScheduler.Start(context.Background()))
	}

	appRouter := router.NewFiberRouter(cfg, logger, router.Handlers{
		Auth:    handlers.NewAuthHandler(authFlow, logger),
		Sale:    handlers.NewSaleHandler(saleFlow, logger),
		Kpi:     handlers.NewKpiHandler(kpiFlow, logger),
		Fund:    handlers.NewFundHandler(fundFlow, logger),
		Catalog: handlers.NewCatalogHandler(catalogFlow, logger),
		Seller:  handlers.NewSellerHandler(sellerFlow, logger),
	}, middleware.NewAuthMiddleware(tokenService))

	return &Application{
		router:    appRouter,
		config:    cfg,
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
