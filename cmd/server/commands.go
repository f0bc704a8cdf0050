package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mytheresa/product-api/app/config"
	"github.com/mytheresa/product-api/app/database"
	"github.com/mytheresa/product-api/app/logging"
	"github.com/mytheresa/product-api/app/notify"
	"github.com/mytheresa/product-api/app/products"
	"github.com/mytheresa/product-api/app/server"
	"github.com/mytheresa/product-api/models"
)

const (
	envFileFlag = "env-file"
	addrFlag    = "addr"
)

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	var envFiles []string

	root := &cobra.Command{
		Use:           "product-api",
		Short:         "CRUD API for product records with webhook notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv(envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, envFileFlag, nil, "dotenv file(s) to load before reading the environment (default .env)")

	root.AddCommand(newServeCommand(v))
	root.AddCommand(newMigrateCommand(v))
	return root
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the product HTTP API until SIGINT or SIGTERM.

Notifications are posted to SLACK_WEBHOOK (or WEBHOOK_URL). When neither
is set the API runs with notifications disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String(addrFlag, "", "listen address (overrides HTTP_ADDR)")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup(addrFlag))
	return cmd
}

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logger.Logging())
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return database.Migrate(cmd.Context(), cfg.Database.URL(), logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(cfg.Logger.Logging())
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}()

	notifier, closeNotifier, err := notify.New(notify.Config{
		URL:     cfg.Notifier.WebhookURL,
		Timeout: cfg.Notifier.Timeout,
		Workers: cfg.Notifier.Workers,
	}, logger)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	defer closeNotifier()

	handler := products.NewHandler(models.NewProductsRepository(db), notifier, logger)
	router := server.NewRouter(logger, handler)

	srv := server.New(server.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router, logger)

	return srv.Run(ctx)
}
