// Package main is the entry point for the MyoMesh notifications API.
//
// In Lambda (API Gateway proxy integration) the chi router is served through
// chiadapter. With APP_ENV=local it runs as a plain HTTP server on the
// configured port with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"

	"myomesh/internal/api/handlers"
	"myomesh/internal/auth"
	"myomesh/internal/config"
	"myomesh/internal/core"
	"myomesh/internal/db"
	"myomesh/internal/external"
	notifcore "myomesh/internal/notifications/core"
	"myomesh/internal/notifications/email"
	"myomesh/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// apiDeps are the collaborators wired into the HTTP server.
type apiDeps struct {
	Admin         handlers.EmailAdminService
	Authenticator core.Authenticator
	HealthProbes  []core.HealthProbe
	Closers       []func()
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := cfg.NewLogger()
	logger.Info("myomesh API starting",
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	store := db.NewStore(pool)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		pool.Close()
		return fmt.Errorf("loading AWS config: %w", err)
	}

	registry, err := external.NewClientRegistry(cfg, logger, external.WithAWSConfig(awsCfg))
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating email provider registry: %w", err)
	}
	renderer, err := email.NewRenderer(email.RendererConfig{DefaultBusinessName: cfg.Email.DefaultBusinessName})
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating renderer: %w", err)
	}

	var metrics notifcore.NotificationMetrics = notifcore.NoopMetrics{}
	if cfg.Observability.EnableMetrics {
		metrics = notifcore.NewCloudWatchNotificationMetrics(
			cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	verifier, err := auth.NewTokenVerifier(cfg.Auth, types.RealClock{})
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating token verifier: %w", err)
	}

	admin := notifcore.NewEmailAdmin(
		store,
		store,
		notifcore.NewDecider(store, cfg.Email.DefaultBusinessName),
		renderer,
		registry.Dispatcher,
		metrics,
		logger.With("component", "email_admin"),
	)

	srv, err := newServer(cfg, logger, apiDeps{
		Admin:         admin,
		Authenticator: verifier,
		HealthProbes:  []core.HealthProbe{core.PingProbe{ProbeName: "database", Ping: pool.Ping}},
		Closers:       []func(){pool.Close},
	})
	if err != nil {
		pool.Close()
		return err
	}

	if isLambdaEnvironment() {
		adapter := chiadapter.New(srv.Router())
		logger.Info("starting Lambda handler")
		lambda.Start(adapter.ProxyWithContext)
		return nil
	}
	return runHTTPServer(srv, cfg, logger)
}

// newServer builds the chassis and mounts the email routes.
func newServer(cfg *config.Config, logger *slog.Logger, deps apiDeps) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = deps.Authenticator
	srv.HealthProbes = deps.HealthProbes
	srv.Closers = deps.Closers

	emailHandler := handlers.NewEmailHandler(deps.Admin, srv.Validator, logger.With("component", "email_handler"))
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, emailHandler.RegisterRoutes)

	if err := srv.MountRoutes(); err != nil {
		return nil, fmt.Errorf("mounting routes: %w", err)
	}
	return srv, nil
}

// isLambdaEnvironment reports whether the process runs inside the Lambda runtime.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runHTTPServer serves until SIGINT/SIGTERM, then drains for up to 10s.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
