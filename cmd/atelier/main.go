package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/atelier-markets/atelier/internal/app"
	"github.com/atelier-markets/atelier/internal/audit"
	"github.com/atelier-markets/atelier/internal/auth"
	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/catalog"
	"github.com/atelier-markets/atelier/internal/grants"
	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/observability"
	"github.com/atelier-markets/atelier/internal/orders"
	"github.com/atelier-markets/atelier/internal/platform/cache"
	"github.com/atelier-markets/atelier/internal/platform/db"
	"github.com/atelier-markets/atelier/internal/shared"
	"github.com/atelier-markets/atelier/jobs"
)

// productCatalog narrows the catalog service to the fields checkout reads.
type productCatalog struct {
	catalog *catalog.Service
}

func (pc productCatalog) GetProduct(ctx context.Context, p identity.Principal, id uuid.UUID) (orders.Product, error) {
	product, err := pc.catalog.GetProduct(ctx, p, id)
	if err != nil {
		return orders.Product{}, err
	}
	return orders.Product{ID: product.ID, PriceCents: product.PriceCents, Active: product.Active}, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// The revocation registry must be reachable; without it every session
	// token would have to be distrusted.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	admins := identity.NewAdminSet(cfg.AdminUserIDs, cfg.AdminEmail)
	tokens := identity.NewTokenService(cfg.JWTSecret, redisClient, identity.TokenConfig{
		Issuer: cfg.TokenIssuer,
		TTL:    cfg.SessionTTL,
	}, logger)
	walletVerifier := identity.NewWalletVerifier(cfg.WalletSecret)
	principalResolver := identity.NewResolver(tokens, walletVerifier, admins, logger)

	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(dbpool)
	grantsRepo := grants.NewRepository(dbpool)
	ordersRepo := orders.NewRepository(dbpool)
	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo, logger)

	classifier := identity.NewClassifier(admins, grantsRepo)

	decisionResolver := authz.NewResolver(authz.ResolverConfig{
		Hierarchy:    catalogRepo,
		Grants:       grantsRepo,
		Orders:       ordersRepo,
		Logger:       logger,
		Metrics:      metrics,
		StoreTimeout: cfg.AuthzStoreTimeout,
	})
	pep := authz.NewPEP(decisionResolver, catalogRepo, catalogRepo, auditService, logger)
	authzMiddleware := authz.Middleware{PEP: pep, Logger: logger}

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService)

	catalogService := catalog.NewService(catalogRepo, pep)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	ordersService := orders.NewService(ordersRepo, productCatalog{catalog: catalogService}, pep, idempotencyStore)
	ordersHandler := orders.NewHandler(logger, ordersService)

	grantsService := grants.NewService(grantsRepo, admins)
	grantsHandler := grants.NewHandler(logger, grantsService)

	auditHandler := audit.NewHandler(auditService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Resolver:        principalResolver,
		Classifier:      classifier,
		AuthHandler:     authHandler,
		CatalogHandler:  catalogHandler,
		OrdersHandler:   ordersHandler,
		GrantsHandler:   grantsHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobHandler,
		AuthzMiddleware: authzMiddleware,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
