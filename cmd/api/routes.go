package main

import (
	"log"
	"net/http"
	"time"

	"finboard/internal/shared/config"
	"finboard/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", deps.HealthHandler.HandleHealth)

	// Protected routes
	authMiddleware := middleware.Auth(deps.Verifier, deps.UserRepo)
	syncLimit := middleware.RateLimit(deps.Redis, "sync", cfg.RateLimit.SyncPerMinute, time.Minute)

	mux.Handle("/api/users/me", authMiddleware(http.HandlerFunc(deps.UserHandler.HandleMe)))
	mux.Handle("/api/auth/sync-user", authMiddleware(http.HandlerFunc(deps.UserHandler.HandleSyncUser)))
	mux.Handle("/api/accounts", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleListAccounts)))
	mux.Handle("/api/accounts/{id}", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleAccountByID)))
	mux.Handle("/api/transactions", authMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))
	mux.Handle("/api/investments", authMiddleware(http.HandlerFunc(deps.InvestmentHandler.HandleListInvestments)))

	// Sync and provider linking; sync is rate limited per user
	mux.Handle("/api/sync", authMiddleware(syncLimit(http.HandlerFunc(deps.SyncHandler.HandleSync))))
	mux.Handle("/api/plaid/exchange-token", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleLink)))
	mux.Handle("/api/plaid/item", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleUnlink)))

	// Apply global middleware
	var handler http.Handler = mux
	handler = middleware.Tracing(handler)
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}
	handler = middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(handler))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
