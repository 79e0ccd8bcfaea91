package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthparse/landing/auth"
	"github.com/healthparse/landing/config"
	"github.com/healthparse/landing/db"
	"github.com/healthparse/landing/external"
	"github.com/healthparse/landing/profile"
	"github.com/healthparse/landing/release"
	"github.com/healthparse/landing/server"
	"github.com/healthparse/landing/subscription"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var environment config.Environment
	var dotFile string
	var err error

	// Determine running environment and initialize structural logger
	env := os.Getenv("API_ENV")
	if "production" == env {
		dotFile = ".env.production"
		environment = config.EnvProduction
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		environment = config.EnvDevelopment
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))

	// Load configurations from dotFile. Hosted deployments inject the environment directly.
	if err := godotenv.Load(dotFile); err != nil {
		logger.Info("No dot file loaded, using process environment",
			zap.String("File", dotFile),
			zap.Error(err),
		)
	}

	cfg := config.FromEnv(environment)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration",
			zap.Error(err),
		)
	}

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: string(environment),
		Release:     Version,
		Debug:       environment == config.EnvDevelopment,
	}); err != nil {
		logger.Fatal("Cannot initialize sentry",
			zap.Error(err),
		)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	sentryCfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "api",
		},
	}
	core, err := zapsentry.NewCore(sentryCfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		logger.Fatal("Cannot attach sentry to logger",
			zap.Error(err),
		)
	}
	logger = zapsentry.AttachCoreToLogger(core, logger)

	defer logger.Sync()

	// Initialize backend connections
	db, err := db.New(db.Options{
		URI:    cfg.DatabaseURL,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot connect to Postgres",
			zap.Error(err),
		)
	}

	stripeGateway, err := external.NewStripeGateway(external.NewStripeClient(cfg.StripeSecretKey), logger)
	if err != nil {
		logger.Fatal("Cannot initialize StripeGateway",
			zap.Error(err),
		)
	}

	var releaseSource release.Source
	if cfg.HasGitHub() {
		releaseSource, err = external.NewGitHubReleases(external.GitHubOptions{
			Owner: cfg.GitHubOwner,
			Repo:  cfg.GitHubRepo,
			Token: cfg.GitHubToken,
		})
		if err != nil {
			logger.Fatal("Cannot initialize GitHub releases client",
				zap.Error(err),
			)
		}
	} else {
		logger.Warn("GitHub is not configured, downloads will fail")
	}

	// Initialize managers
	profileManager, err := profile.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize ProfileManager",
			zap.Error(err),
		)
	}

	subscriptionManager, err := subscription.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize SubscriptionManager",
			zap.Error(err),
		)
	}

	authVerifier, err := auth.New(auth.Options{
		Logger:        logger,
		JWTSigningKey: cfg.SupabaseJWTSecret,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Auth",
			zap.Error(err),
		)
	}

	identity, err := auth.NewIdentity(auth.IdentityOptions{
		URL:    cfg.SupabaseURL,
		APIKey: cfg.SupabaseKey,
	})
	if err != nil {
		logger.Fatal("Cannot initialize identity provider client",
			zap.Error(err),
		)
	}

	listeners := auth.NewListeners()
	defer listeners.Subscribe(profileManager.OnSession)()

	reconciler, err := subscription.NewReconciler(subscription.ReconcilerOptions{
		Payments: stripeGateway,
		Profiles: profileManager,
		Store:    subscriptionManager,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Reconciler",
			zap.Error(err),
		)
	}

	// Initialize routers
	authRouter, err := auth.NewService(auth.ServiceOptions{
		Auth:          authVerifier,
		Identity:      identity,
		Listeners:     listeners,
		Logger:        logger,
		Origin:        cfg.Origin,
		SecureCookies: environment == config.EnvProduction,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Auth Service Router",
			zap.Error(err),
		)
	}

	subscriptionRouter, err := subscription.NewService(subscription.ServiceOptions{
		Auth:          authVerifier,
		Payments:      stripeGateway,
		Profiles:      profileManager,
		Manager:       subscriptionManager,
		Reconciler:    reconciler,
		Logger:        logger,
		WebhookSecret: cfg.StripeWebhookSecret,
		Origin:        cfg.Origin,
		Redirect:      cfg.CheckoutRedirect,
		RequireAuth:   cfg.RequireAuthForCheckout,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Subscription Service Router",
			zap.Error(err),
		)
	}

	releaseRouter, err := release.NewService(release.Options{
		Source: releaseSource,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Release Service Router",
			zap.Error(err),
		)
	}

	srv, err := server.New(server.Options{
		Logger:  logger,
		Addr:    cfg.ListenAddr,
		Version: Version,
		Services: []server.Routes{
			authRouter,
			subscriptionRouter,
			releaseRouter,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaticDir:          cfg.StaticDir,
	})
	if err != nil {
		logger.Fatal("Cannot initialize HTTP server",
			zap.Error(err),
		)
	}

	// Stop gracefully on SIGINT/SIGTERM
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			logger.Error("HTTP server stopped",
				zap.Error(err),
			)
		}
	case s := <-sig:
		logger.Info("Received signal, shutting down",
			zap.String("Signal", s.String()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Cannot shutdown HTTP server gracefully",
				zap.Error(err),
			)
		}
	}
}
