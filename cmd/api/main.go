package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/cbw-coffee/api/internal/di"
	"github.com/cbw-coffee/api/internal/handlers"
	"github.com/cbw-coffee/api/internal/platform/auth"
	"github.com/cbw-coffee/api/internal/platform/config"
	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/platform/idempotency"
	"github.com/cbw-coffee/api/internal/platform/jobs"
	"github.com/cbw-coffee/api/internal/platform/observability"
	"github.com/cbw-coffee/api/internal/platform/secrets"
	"github.com/cbw-coffee/api/internal/repositories"
	firestoreRepo "github.com/cbw-coffee/api/internal/repositories/firestore"
	"github.com/cbw-coffee/api/internal/services"
)

const (
	orderCreateLimit  = 10
	orderCreateWindow = time.Minute
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Auth.AdminJWTSecret"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger = logger.With(zap.String("environment", cfg.Environment), zap.String("version", cfg.Version))

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, pfirestore.WithTxAttempts(cfg.Orders.TxAttempts))
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	checks := []repositories.DependencyCheck{{
		Name:    "firestore",
		Timeout: 2 * time.Second,
		Check:   firestoreProvider.Ping,
	}}

	var publisher services.OrderEventPublisher
	if topicName := strings.TrimSpace(cfg.Events.OrderTopic); topicName != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.PubSubProjectID, pubsubClientOptions(cfg)...)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(topicName)
		eventPublisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		defer eventPublisher.Stop()
		publisher = eventPublisher
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s not found", topicName)
				}
				return nil
			},
		})
	} else {
		logger.Warn("order events disabled; CBW_EVENTS_ORDER_TOPIC is empty")
	}

	orderMetrics, err := observability.NewOrderMetrics(nil)
	if err != nil {
		logger.Warn("order metrics unavailable", zap.Error(err))
	}

	container, err := di.NewContainer(cfg, registry,
		di.WithEventPublisher(publisher),
		di.WithOrderMetrics(orderMetrics),
		di.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()
	svc := container.Services

	idempotencyStore := idempotency.NewFirestoreStore(firestoreProvider, "")
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)

	janitorCtx, janitorCancel := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	janitor, err := jobs.NewIdempotencyJanitor(idempotencyStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize, logger.Named("idempotency"))
	if err != nil {
		logger.Warn("idempotency janitor disabled", zap.Error(err))
		close(janitorDone)
	} else {
		go func() {
			defer close(janitorDone)
			janitor.Run(janitorCtx)
		}()
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	customerAuth := auth.NewCustomerAuthenticator(firebaseVerifier)
	adminAuth, err := auth.NewAdminAuthenticator(cfg.Auth.AdminJWTSecret,
		auth.WithAdminIssuer(cfg.Auth.AdminJWTIssuer),
		auth.WithAdminTokenTTL(cfg.Auth.AdminTokenTTL),
	)
	if err != nil {
		logger.Fatal("failed to initialise admin authenticator", zap.Error(err))
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     cfg.Version,
			CommitSHA:   strings.TrimSpace(os.Getenv("CBW_COMMIT_SHA")),
			Environment: cfg.Environment,
			StartedAt:   startedAt,
		}),
		handlers.WithHealthRepository(healthRepo),
	)

	catalogHandlers := handlers.NewCatalogHandlers(svc.Catalog)
	orderHandlers := handlers.NewOrderHandlers(customerAuth, svc.Orders,
		handlers.WithOrderIdempotency(idempotencyMiddleware),
		handlers.WithOrderCreateLimit(orderCreateLimit, orderCreateWindow, time.Now),
	)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(adminAuth, svc.Orders, svc.Audit)

	projectID := traceProjectID(cfg)
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(projectID),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithRequestTimeout(cfg.Server.WriteTimeout),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProductRoutes(catalogHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminOrderHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("cbw api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	janitorCancel()
	<-janitorDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func pubsubClientOptions(cfg config.Config) []option.ClientOption {
	if path := strings.TrimSpace(cfg.Firebase.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// newSecretFetcher runs before config.Load, so it reads its own settings through config.Lookup.
func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	lookup := func(keys ...string) string {
		for _, key := range keys {
			value, err := config.Lookup(key)
			if err == nil && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
		return ""
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if project := lookup("CBW_SECRETS_PROJECT_ID", "CBW_FIRESTORE_PROJECT_ID", "CBW_FIREBASE_PROJECT_ID"); project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if fallback := lookup("CBW_SECRETS_FALLBACK_FILE"); fallback != "" {
		opts = append(opts, secrets.WithFallbackFile(fallback))
	}
	if credentials := lookup("CBW_FIREBASE_CREDENTIALS_FILE"); credentials != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentials)))
	}
	return secrets.NewFetcher(ctx, opts...)
}
