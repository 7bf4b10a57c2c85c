package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ritikyadav10888-oss/force-players-sub000/internal/gateway/razorpay"
	"github.com/ritikyadav10888-oss/force-players-sub000/internal/httpserver"
	"github.com/ritikyadav10888-oss/force-players-sub000/internal/logging"
	"github.com/ritikyadav10888-oss/force-players-sub000/internal/reconcile"
	"github.com/ritikyadav10888-oss/force-players-sub000/internal/store/gormstore"
	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

const (
	flagDatabaseURL       = "database-url"
	flagListenAddr        = "listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagAuthSigningKey    = "auth-signing-key"
	flagAuthIssuer        = "auth-issuer"
	flagRazorpayKeyID     = "razorpay-key-id"
	flagRazorpayKeySecret = "razorpay-key-secret"
	flagWebhookSecret     = "razorpay-webhook-secret"
	flagReconcileInterval = "reconcile-interval"

	configKeyDatabaseURL       = "database_url"
	configKeyListenAddr        = "listen_addr"
	configKeyAllowedOrigins    = "allowed_origins"
	configKeyAuthSigningKey    = "auth_signing_key"
	configKeyAuthIssuer        = "auth_issuer"
	configKeyRazorpayKeyID     = "razorpay_key_id"
	configKeyRazorpayKeySecret = "razorpay_key_secret"
	configKeyWebhookSecret     = "razorpay_webhook_secret"
	configKeyReconcileInterval = "reconcile_interval"

	defaultDatabaseURL       = "sqlite:///tmp/payments.db"
	defaultHTTPListenAddr    = ":8080"
	defaultReconcileInterval = time.Hour
)

type runtimeConfig struct {
	DatabaseURL       string
	ListenAddr        string
	AllowedOrigins    string
	AuthSigningKey    string
	AuthIssuer        string
	RazorpayKeyID     string
	RazorpayKeySecret string
	WebhookSecret     string
	ReconcileInterval time.Duration
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "paymentsd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "paymentsd",
		Short:         "Tournament registration payments API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultHTTPListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated CORS origins")
	cmd.Flags().String(flagAuthSigningKey, "", "HMAC key for session tokens")
	cmd.Flags().String(flagAuthIssuer, "", "expected session token issuer")
	cmd.Flags().String(flagRazorpayKeyID, "", "Razorpay API key id")
	cmd.Flags().String(flagRazorpayKeySecret, "", "Razorpay API key secret")
	cmd.Flags().String(flagWebhookSecret, "", "Razorpay webhook signing secret")
	cmd.Flags().Duration(flagReconcileInterval, defaultReconcileInterval, "held transfer reconciliation interval")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	// A missing .env file is fine; explicit env vars and flags still apply.
	_ = godotenv.Load()

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:       "DATABASE_URL",
		configKeyListenAddr:        "HTTP_LISTEN_ADDR",
		configKeyAllowedOrigins:    "ALLOWED_ORIGINS",
		configKeyAuthSigningKey:    "AUTH_SIGNING_KEY",
		configKeyAuthIssuer:        "AUTH_ISSUER",
		configKeyRazorpayKeyID:     "RAZORPAY_KEY_ID",
		configKeyRazorpayKeySecret: "RAZORPAY_KEY_SECRET",
		configKeyWebhookSecret:     "RAZORPAY_WEBHOOK_SECRET",
		configKeyReconcileInterval: "RECONCILE_INTERVAL",
	}
	for configKey, envName := range bindings {
		if err := viper.BindEnv(configKey, envName); err != nil {
			return err
		}
	}

	flagBindings := map[string]string{
		configKeyDatabaseURL:       flagDatabaseURL,
		configKeyListenAddr:        flagListenAddr,
		configKeyAllowedOrigins:    flagAllowedOrigins,
		configKeyAuthSigningKey:    flagAuthSigningKey,
		configKeyAuthIssuer:        flagAuthIssuer,
		configKeyRazorpayKeyID:     flagRazorpayKeyID,
		configKeyRazorpayKeySecret: flagRazorpayKeySecret,
		configKeyWebhookSecret:     flagWebhookSecret,
		configKeyReconcileInterval: flagReconcileInterval,
	}
	for configKey, flagName := range flagBindings {
		if err := viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultHTTPListenAddr
	}
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.AuthSigningKey = viper.GetString(configKeyAuthSigningKey)
	cfg.AuthIssuer = viper.GetString(configKeyAuthIssuer)
	cfg.RazorpayKeyID = viper.GetString(configKeyRazorpayKeyID)
	cfg.RazorpayKeySecret = viper.GetString(configKeyRazorpayKeySecret)
	cfg.WebhookSecret = viper.GetString(configKeyWebhookSecret)
	cfg.ReconcileInterval = viper.GetDuration(configKeyReconcileInterval)
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	if cfg.AuthSigningKey == "" {
		return fmt.Errorf("auth signing key is required")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return fmt.Errorf("razorpay api credentials are required")
	}
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("razorpay webhook secret is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	gatewayConfig := razorpay.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.WebhookSecret,
	}
	gatewayClient, err := razorpay.NewClient(gatewayConfig)
	if err != nil {
		return fmt.Errorf("gateway init: %w", err)
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := payments.NewService(
		gormstore.New(gormDB),
		gatewayClient,
		razorpay.NewVerifier(gatewayConfig),
		clock,
		payments.WithOperationLogger(logging.NewOperationLogger(logger)),
	)
	if err != nil {
		return fmt.Errorf("payments service init: %w", err)
	}

	sweeper, err := reconcile.NewSweeper(service, logger, cfg.ReconcileInterval)
	if err != nil {
		return fmt.Errorf("reconcile sweeper init: %w", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("reconcile sweeper start: %w", err)
	}
	defer func() { _ = sweeper.Stop() }()

	serverConfig := httpserver.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: httpserver.ParseAllowedOrigins(cfg.AllowedOrigins),
		AuthSigningKey: cfg.AuthSigningKey,
		AuthIssuer:     cfg.AuthIssuer,
	}
	if err := serverConfig.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	return httpserver.Run(ctx, serverConfig, service, logger)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	gormConfig := &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "payments.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	if err := gormstore.Migrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
