// Command cbwctl is the operator CLI for the coffee order backend: catalog seeding, order exports,
// order number previews and back office token minting.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/cbw-coffee/api/internal/di"
	"github.com/cbw-coffee/api/internal/platform/config"
	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/platform/observability"
	"github.com/cbw-coffee/api/internal/platform/secrets"
	firestoreRepo "github.com/cbw-coffee/api/internal/repositories/firestore"
)

var (
	Version   = "dev"
	CommitSHA = "unknown"
)

const appName = "cbwctl"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	envFile  string
	logLevel string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operator tooling for the CBW order backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file merged under the process environment")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		seedCmd(flags),
		ordersCmd(flags),
		adminCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (commit: %s)\n", appName, Version, CommitSHA)
			},
		},
	)
	return cmd
}

// env holds what every data command needs. Firestore is opened only by commands that ask for it.
type env struct {
	logger   *zap.Logger
	cfg      config.Config
	fetcher  *secrets.Fetcher
	provider *pfirestore.Provider
	services *di.Container
}

func newEnv(ctx context.Context, flags *globalFlags, requiredSecrets ...string) (*env, error) {
	logger, err := observability.NewLogger(observability.WithLevel(flags.logLevel), observability.WithOutput("stderr"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named(appName)

	loaderOpts := []config.Option{config.WithEnvFile(flags.envFile)}
	lookup := func(keys ...string) string {
		for _, key := range keys {
			if value, err := config.Lookup(key, loaderOpts...); err == nil && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
		return ""
	}
	fetcherOpts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	if project := lookup("CBW_SECRETS_PROJECT_ID", "CBW_FIRESTORE_PROJECT_ID", "CBW_FIREBASE_PROJECT_ID"); project != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithProject(project))
	}
	if fallback := lookup("CBW_SECRETS_FALLBACK_FILE"); fallback != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithFallbackFile(fallback))
	}
	if credentials := lookup("CBW_FIREBASE_CREDENTIALS_FILE"); credentials != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithClientOptions(option.WithCredentialsFile(credentials)))
	}
	fetcher, err := secrets.NewFetcher(ctx, fetcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("init secrets: %w", err)
	}

	loaderOpts = append(loaderOpts,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecrets...),
	)
	cfg, err := config.Load(ctx, loaderOpts...)
	if err != nil {
		_ = fetcher.Close()
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("missing secrets: %s", strings.Join(missing.Names(), ", "))
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &env{logger: logger, cfg: cfg, fetcher: fetcher}, nil
}

// container opens Firestore and wires the services on first use.
func (e *env) container(ctx context.Context) (*di.Container, error) {
	if e.services != nil {
		return e.services, nil
	}
	provider := pfirestore.NewProvider(e.cfg.Firestore)
	if _, err := provider.Client(ctx); err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	e.provider = provider
	registry, err := firestoreRepo.NewRegistry(provider, pfirestore.WithTxAttempts(e.cfg.Orders.TxAttempts))
	if err != nil {
		return nil, err
	}
	container, err := di.NewContainer(e.cfg, registry, di.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	e.services = container
	return container, nil
}

func (e *env) Close() {
	if e.provider != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.provider.Close(closeCtx); err != nil {
			e.logger.Warn("firestore close error", zap.Error(err))
		}
		cancel()
	}
	if e.fetcher != nil {
		if err := e.fetcher.Close(); err != nil {
			e.logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}
