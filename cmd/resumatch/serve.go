package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/auth"
	"github.com/kailas-cloud/resumatch/internal/config"
	"github.com/kailas-cloud/resumatch/internal/domain/access"
	"github.com/kailas-cloud/resumatch/internal/metrics"
	"github.com/kailas-cloud/resumatch/internal/transport/bedrock"
	chiTransport "github.com/kailas-cloud/resumatch/internal/transport/chi"
	assistuc "github.com/kailas-cloud/resumatch/internal/usecase/assist"
	healthuc "github.com/kailas-cloud/resumatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/resumatch/internal/usecase/match"
	usageuc "github.com/kailas-cloud/resumatch/internal/usecase/usage"
	"github.com/kailas-cloud/resumatch/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		return serve(cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting resumatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_backend", cfg.Embedding.Backend),
	)

	ctx := context.Background()

	// Register metrics explicitly (no init())
	metrics.Register()

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	assistant, err := newAssistant(ctx, cfg.Assist, logger)
	if err != nil {
		return err
	}

	handler, err := newRouter(cfg, c, assistant, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// newAssistant builds the rewrite and cover letter service, or returns a nil
// interface when no assist region is configured.
func newAssistant(ctx context.Context, cfg config.AssistConfig, logger *zap.Logger) (chiTransport.Assistant, error) {
	if !cfg.Enabled() {
		logger.Info("assist.region is empty; rewrite and cover letter routes are off")
		return nil, nil
	}
	gen, err := bedrock.NewGenerator(ctx, bedrock.GeneratorConfig{
		Region:      cfg.Region,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.RewriteTemperature,
		TopP:        cfg.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("create text generator: %w", err)
	}
	logger.Info("Assist routes enabled", zap.String("model", cfg.Model), zap.String("region", cfg.Region))
	return assistuc.New(gen, gen.WithTemperature(cfg.LetterTemperature), logger), nil
}

// newRouter wires the use cases behind the chi server. assistant may be nil.
func newRouter(
	cfg config.Config, c *components, assistant chiTransport.Assistant, logger *zap.Logger,
) (http.Handler, error) {
	policy, err := access.NewPolicy(cfg.Access.AnonymousLimit, cfg.Access.AuthenticatedLimit)
	if err != nil {
		return nil, err
	}

	// Nil interface, not typed nil pointer, when auth is off.
	var identifier chiTransport.Identifier
	if cfg.Auth.JWKSURL != "" {
		authn, err := auth.New(auth.Config{
			JWKSURL:    cfg.Auth.JWKSURL,
			KeyTTL:     time.Duration(cfg.Auth.JWKSTTLSec) * time.Second,
			MinRefresh: time.Duration(cfg.Auth.MinRefreshSec) * time.Second,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			CookieName: cfg.Auth.CookieName,
		}, logger)
		if err != nil {
			return nil, err
		}
		identifier = authn
	} else {
		logger.Warn("auth.jwks_url is empty; every caller is anonymous")
	}

	matchSvc := matchuc.New(c.embedder, c.companies, policy, logger)

	var budgetReader usageuc.BudgetReader
	if c.budget != nil {
		budgetReader = c.budget
	}
	usageSvc := usageuc.New(budgetReader, cfg.Embedding.Backend)

	var budgetPinger healthuc.Pinger
	if c.redis != nil {
		budgetPinger = c.redis
	}
	healthSvc := healthuc.New(c.store, embeddingHealthChecker{embedder: c.backend}, budgetPinger)

	server := chiTransport.NewServer(
		matchSvc, usageSvc, healthSvc,
		int64(cfg.HTTP.MaxUploadMB)<<20, logger,
	)
	if assistant != nil {
		server.WithAssistant(assistant)
	}

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiTransport.CORS(cfg.HTTP.CORSOrigins))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.OptionalAuthMiddleware(identifier))
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	return r, nil
}
