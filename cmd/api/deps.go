package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"finboard/internal/domain/provider"
	"finboard/internal/domain/sync"
	"finboard/internal/infrastructure/crypto"
	"finboard/internal/infrastructure/firebase"
	"finboard/internal/infrastructure/plaid"
	"finboard/internal/infrastructure/postgres"
	httphandlers "finboard/internal/interfaces/http"
	"finboard/internal/shared/auth"
	"finboard/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB    *postgres.DB
	Redis *redis.Client

	// Handlers
	UserHandler        *httphandlers.UserHandler
	AccountHandler     *httphandlers.AccountHandler
	TransactionHandler *httphandlers.TransactionHandler
	InvestmentHandler  *httphandlers.InvestmentHandler
	SyncHandler        *httphandlers.SyncHandler
	HealthHandler      *httphandlers.HealthHandler

	// Auth
	Verifier auth.Verifier
	UserRepo *postgres.UserRepository

	// Sync engine (for scheduler)
	Orchestrator *sync.Orchestrator
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Connect to database and apply pending migrations
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize encryptor for stored provider credentials
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories (pool-backed)
	userRepo := postgres.NewUserRepository(db)
	providerRepo := postgres.NewProviderRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)
	connectionRepo := postgres.NewConnectionRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	investmentRepo := postgres.NewInvestmentRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)

	// Register the aggregation provider and build the sync engine around it
	plaidProvider, err := providerRepo.EnsureByName(ctx, "plaid", "Plaid aggregation API", "aggregator")
	if err != nil {
		db.Close()
		return nil, err
	}

	plaidClient := plaid.NewClient(plaid.Config{
		BaseURL:      cfg.Plaid.BaseURL,
		ClientID:     cfg.Plaid.ClientID,
		Secret:       cfg.Plaid.Secret,
		SyncPageSize: cfg.Plaid.SyncPageSize,
	})
	gateway := plaid.NewGateway(plaidClient)

	orchestrator := sync.NewOrchestrator(sync.OrchestratorConfig{
		ProviderID:  plaidProvider.ID,
		Source:      "plaid",
		Tokens:      provider.NewTokenStore(tokenRepo, encryptor),
		Gateway:     gateway,
		Linker:      gateway,
		Store:       postgres.NewStore(db),
		Partitions:  postgres.NewPartitionManager(db),
		Connections: connectionRepo,
	})

	// Initialize Firebase ID token verification
	verifier, err := firebase.NewVerifier(ctx, cfg.Firebase.CredentialsFile)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Redis client for rate limiting (optional)
	var redisClient *redis.Client
	if cfg.RateLimit.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: redis unreachable, rate limiting degraded: %v", err)
		}
		cancel()
	}

	return &Dependencies{
		DB:                 db,
		Redis:              redisClient,
		UserHandler:        httphandlers.NewUserHandler(userRepo, orchestrator),
		AccountHandler:     httphandlers.NewAccountHandler(accountRepo),
		TransactionHandler: httphandlers.NewTransactionHandler(transactionRepo, accountRepo),
		InvestmentHandler:  httphandlers.NewInvestmentHandler(investmentRepo),
		SyncHandler:        httphandlers.NewSyncHandler(orchestrator),
		HealthHandler:      httphandlers.NewHealthHandler(db),
		Verifier:           verifier,
		UserRepo:           userRepo,
		Orchestrator:       orchestrator,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
