package container

import (
	"context"
	"fmt"
	"time"

	"bookchain-backend/internal/config"
	infraCache "bookchain-backend/internal/infrastructure/cache"
	"bookchain-backend/internal/infrastructure/database"
	"bookchain-backend/internal/infrastructure/ledger"
	"bookchain-backend/internal/infrastructure/storage"
	"bookchain-backend/pkg/cache"
	"bookchain-backend/pkg/jwt"
	"bookchain-backend/pkg/logger"

	blobHandler "bookchain-backend/internal/domains/blob/handler"
	blobRepo "bookchain-backend/internal/domains/blob/repository"
	blobService "bookchain-backend/internal/domains/blob/service"
	catalogHandler "bookchain-backend/internal/domains/catalog/handler"
	catalogRepo "bookchain-backend/internal/domains/catalog/repository"
	catalogService "bookchain-backend/internal/domains/catalog/service"
	purchaseHandler "bookchain-backend/internal/domains/purchase/handler"
	purchaseRepo "bookchain-backend/internal/domains/purchase/repository"
	purchaseService "bookchain-backend/internal/domains/purchase/service"
	royaltyHandler "bookchain-backend/internal/domains/royalty/handler"
	royaltyRepo "bookchain-backend/internal/domains/royalty/repository"
	royaltyService "bookchain-backend/internal/domains/royalty/service"
	syncHandler "bookchain-backend/internal/domains/sync/handler"
	syncRepo "bookchain-backend/internal/domains/sync/repository"
	syncService "bookchain-backend/internal/domains/sync/service"
	userHandler "bookchain-backend/internal/domains/user/handler"
	userRepo "bookchain-backend/internal/domains/user/repository"
	userService "bookchain-backend/internal/domains/user/service"
)

// Container is the root of the dependency graph. Both the API server and
// the worker build one; each uses the slice it needs.
type Container struct {
	// Infrastructure
	Config       *config.Config
	DB           *database.PostgresDB
	Cache        cache.Cache
	ObjectStore  storage.ObjectStore
	LedgerClient ledger.Client
	JWTManager   *jwt.Manager

	// Repositories
	UserRepo     userRepo.UserRepoInterface
	CatalogRepo  catalogRepo.CatalogRepoInterface
	PurchaseRepo purchaseRepo.PurchaseRepoInterface
	RoyaltyRepo  royaltyRepo.RoyaltyRepoInterface
	BlobRepo     blobRepo.BlobRepoInterface
	SyncRepo     syncRepo.SyncRepoInterface

	// Services
	UserService     userService.UserService
	BlobService     blobService.BlobService
	CatalogService  catalogService.CatalogService
	RoyaltyService  royaltyService.RoyaltyService
	PurchaseService purchaseService.PurchaseService
	SyncService     syncService.SyncService

	// Handlers
	UserHandler     *userHandler.UserHandler
	CatalogHandler  *catalogHandler.CatalogHandler
	PurchaseHandler *purchaseHandler.PurchaseHandler
	RoyaltyHandler  *royaltyHandler.RoyaltyHandler
	BlobHandler     *blobHandler.BlobHandler
	SyncHandler     *syncHandler.SyncHandler
}

// NewContainer builds the whole graph in dependency order: config,
// infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	logger.Init(cfg.App.Environment)

	// Database
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	c.DB = db

	// Redis
	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Cache = redisCache

	// Object store
	store, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object store: %w", err)
	}
	c.ObjectStore = store

	// Ledger node
	c.LedgerClient = ledger.NewClient(ledger.Config{
		RPCURL:       cfg.Ledger.RPCURL,
		MaxAttempts:  cfg.Ledger.MaxAttempts,
		InitialDelay: cfg.Ledger.InitialDelay,
		MaxDelay:     cfg.Ledger.MaxDelay,
	})

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	// Repositories
	c.UserRepo = userRepo.NewUserRepository(db.Pool)
	c.CatalogRepo = catalogRepo.NewCatalogRepository(db.Pool)
	c.PurchaseRepo = purchaseRepo.NewPurchaseRepository(db.Pool)
	c.RoyaltyRepo = royaltyRepo.NewRoyaltyRepository(db.Pool)
	c.BlobRepo = blobRepo.NewBlobRepository(db.Pool)
	c.SyncRepo = syncRepo.NewSyncRepository(db.Pool)

	if err := c.SyncRepo.EnsureCursors(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed sync cursors: %w", err)
	}

	txManager := purchaseRepo.NewPostgresTransactionManager(db.Pool)

	// Services
	c.UserService = userService.NewUserService(c.UserRepo, c.JWTManager)
	c.BlobService = blobService.NewBlobService(c.BlobRepo, c.ObjectStore)
	c.RoyaltyService = royaltyService.NewRoyaltyService(c.RoyaltyRepo, c.LedgerClient, cfg.Ledger.PayoutSigner)
	c.CatalogService = catalogService.NewCatalogService(
		c.CatalogRepo, c.PurchaseRepo, c.BlobService, c.LedgerClient, c.Cache,
	)
	c.PurchaseService = purchaseService.NewPurchaseService(
		c.PurchaseRepo, c.CatalogRepo, c.RoyaltyRepo, c.RoyaltyService, txManager, c.LedgerClient,
	)
	c.SyncService = syncService.NewSyncService(
		c.SyncRepo, c.LedgerClient, c.PurchaseService, c.RoyaltyService,
		c.CatalogService, c.CatalogRepo, c.UserService,
	)

	// Handlers
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.CatalogHandler = catalogHandler.NewCatalogHandler(c.CatalogService)
	c.PurchaseHandler = purchaseHandler.NewPurchaseHandler(c.PurchaseService)
	c.RoyaltyHandler = royaltyHandler.NewRoyaltyHandler(c.RoyaltyService)
	c.BlobHandler = blobHandler.NewBlobHandler(c.BlobService, c.CatalogService, c.PurchaseService)
	c.SyncHandler = syncHandler.NewSyncHandler(c.SyncService)

	logger.Info("Container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
	})

	return c, nil
}

// Cleanup closes every connection the container opened
func (c *Container) Cleanup() {
	if c.Cache != nil {
		if closer, ok := c.Cache.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close redis", err)
			}
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}
}
