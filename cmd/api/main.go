package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/entitlement-service/internal/api/http"
	"github.com/spec-kit/entitlement-service/internal/api/http/handlers"
	"github.com/spec-kit/entitlement-service/internal/auth"
	"github.com/spec-kit/entitlement-service/internal/catalog"
	"github.com/spec-kit/entitlement-service/internal/config"
	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/entitlement"
	"github.com/spec-kit/entitlement-service/internal/events"
	"github.com/spec-kit/entitlement-service/internal/observability"
	"github.com/spec-kit/entitlement-service/internal/persistence"
	"github.com/spec-kit/entitlement-service/internal/repository"
	"github.com/spec-kit/entitlement-service/internal/service"
	"github.com/spec-kit/entitlement-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	offlineRepo := repository.NewOfflineSubscriptionRepository(pool)
	tokenStore := repository.NewRedisTokenStore(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()

	planRoles := entitlement.DefaultPlanRoleMap()
	if table := cfg.Entitlement.PlanRoles(); len(table) > 0 {
		planRoles = entitlement.NewPlanRoleMap(table)
	}

	reconciler := entitlement.NewRoleReconciler(entitlement.ReconcilerDependencies{
		Plans:       planRoles,
		RoleRepo:    roleRepo,
		AccountRepo: accountRepo,
		OfflineRepo: offlineRepo,
		Dispatcher:  dispatcher,
	}, logger)

	resolver := entitlement.NewFeatureResolver(
		planRoles,
		roleRepo,
		subscriptionRepo,
		catalog.Default(),
		cfg.Entitlement.ExtensionBaseURL,
		logger,
	)

	tokenTTL := cfg.Entitlement.ExchangeTokenTTL()
	offlineSource := repository.NewOfflineSubscriptionSource(offlineRepo)
	exchangers := map[domain.ExchangeTokenKind]*auth.ExchangeTokenService{
		domain.TokenKindDashboard: auth.NewExchangeTokenService(
			domain.TokenKindDashboard, tokenStore, subscriptionRepo, dispatcher, tokenTTL, logger),
		domain.TokenKindPurchaseLink: auth.NewExchangeTokenService(
			domain.TokenKindPurchaseLink, tokenStore, subscriptionRepo, dispatcher, tokenTTL, logger),
		domain.TokenKindOfflineSubscription: auth.NewExchangeTokenService(
			domain.TokenKindOfflineSubscription, tokenStore, offlineSource, dispatcher, tokenTTL, logger),
	}

	issuer := auth.NewSessionClaimsIssuer(cfg.Auth.SigningSecret, cfg.Auth.SessionTTL(), accountRepo, roleRepo)
	authMiddleware := auth.NewMiddleware(issuer, accountRepo)

	accountService := service.NewAccountService(*cfg, accountRepo, issuer)
	billingService := service.NewBillingService(service.BillingDependencies{
		AccountRepo:      accountRepo,
		SubscriptionRepo: subscriptionRepo,
		OfflineRepo:      offlineRepo,
		Reconciler:       reconciler,
		Dispatcher:       dispatcher,
	}, logger)
	fanoutService := service.NewFanoutService(dispatcher, logger, cfg.Fanout)
	worker.StartFanoutWorker(fanoutService)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts:       handlers.NewAccountsHandler(accountService),
		Features:       handlers.NewFeaturesHandler(resolver, exchangers),
		Tokens:         handlers.NewTokensHandler(exchangers),
		Billing:        handlers.NewBillingHandler(billingService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
