package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/config"
	"github.com/kailas-cloud/resumatch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/resumatch/internal/db/redis"
	"github.com/kailas-cloud/resumatch/internal/domain"
	budgetrepo "github.com/kailas-cloud/resumatch/internal/repository/budget"
	companyrepo "github.com/kailas-cloud/resumatch/internal/repository/company"
	"github.com/kailas-cloud/resumatch/internal/transport/bedrock"
	"github.com/kailas-cloud/resumatch/internal/transport/gemini"
	"github.com/kailas-cloud/resumatch/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/resumatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/resumatch/internal/usecase/embedding"
)

// components is the dependency graph shared by every command that touches
// the corpus. Optional parts stay nil when not configured.
type components struct {
	store     *postgres.Store
	companies *companyrepo.Repo
	redis     *dbRedis.Store
	budget    *embeddinguc.BudgetTracker
	backend   domain.Embedder
	embedder  domain.Embedder
}

// buildComponents opens the corpus, connects budget persistence and
// assembles the embedder chain.
func buildComponents(ctx context.Context, cfg config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	store, err := postgres.NewStore(postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		AcquireTimeout:  time.Duration(cfg.Database.AcquireTimeoutMs) * time.Millisecond,
		QueryTimeout:    time.Duration(cfg.Database.QueryTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	c.store = store

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		c.close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	if cfg.Database.AutoMigrate {
		version, err := postgres.Migrate(cfg.Database.DSN, cfg.Embedding.Dimensions, postgres.Up)
		if err != nil {
			c.close()
			return nil, err
		}
		logger.Info("Schema migrated", zap.Uint("version", version))
	}

	metric, err := domain.ParseDistanceMetric(cfg.Database.Distance)
	if err != nil {
		c.close()
		return nil, err
	}
	c.companies = companyrepo.New(store, metric)

	if err := c.buildBudget(ctx, cfg, logger); err != nil {
		c.close()
		return nil, err
	}

	if err := c.buildEmbedder(ctx, cfg, logger); err != nil {
		c.close()
		return nil, err
	}
	logger.Info("Embedder created",
		zap.String("backend", cfg.Embedding.Backend),
		zap.String("model", cfg.Embedding.Model()),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	return c, nil
}

// buildBudget creates the single BudgetTracker shared by the embedder chain
// and the usage service, backed by Redis when addresses are configured.
func (c *components) buildBudget(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	budgetCfg := cfg.Embedding.Budget
	if !budgetCfg.Enabled() {
		return nil
	}

	action, err := embeddinguc.ParseBudgetAction(budgetCfg.Action)
	if err != nil {
		return err
	}
	c.budget = embeddinguc.NewBudgetTracker(
		cfg.Embedding.Backend, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
	)

	if len(cfg.Redis.Addrs) == 0 {
		logger.Warn("Budget counters are in-memory only; they reset on restart")
		return nil
	}

	rs, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("create redis store: %w", err)
	}
	c.redis = rs

	// Loads current counters from Redis.
	c.budget.WithStore(ctx, budgetrepo.New(rs, 0, 0))
	return nil
}

func (c *components) buildEmbedder(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	backend, err := newBackend(ctx, cfg.Embedding, logger)
	if err != nil {
		return err
	}
	c.backend = backend

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budget embeddinguc.BudgetChecker
	if c.budget != nil {
		budget = c.budget
	}

	c.embedder, err = embeddinguc.NewChain(backend, embeddinguc.ChainConfig{
		Provider:   cfg.Embedding.Backend,
		Model:      cfg.Embedding.Model(),
		Dimensions: cfg.Embedding.Dimensions,
		Retry: embeddinguc.RetryPolicy{
			MaxAttempts: cfg.Embedding.Retry.MaxAttempts,
			BaseDelay:   cfg.Embedding.Retry.BaseDelay(),
			Multiplier:  cfg.Embedding.Retry.Multiplier,
		},
		Budget: budget,
	}, logger)
	return err
}

// newBackend selects the provider client. Each one reports throttling as
// domain.ErrThrottled so the retry layer above it owns the backoff.
func newBackend(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Backend {
	case config.BackendBedrock:
		return bedrock.NewEmbedder(ctx, bedrock.Config{
			Region:     cfg.Bedrock.Region,
			Model:      cfg.Bedrock.Model,
			Dimensions: cfg.Dimensions,
		})
	case config.BackendGemini:
		return gemini.NewEmbedder(ctx, gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			Dimensions: cfg.Dimensions,
		})
	case config.BackendLocal:
		return local.NewEmbedder(local.Config{
			BaseURL: cfg.Local.BaseURL,
			Model:   cfg.Local.Model,
			Token:   cfg.Local.Token,
		})
	case config.BackendOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Dimensions: cfg.Dimensions,
			Provider:   config.BackendOpenAI,
		}), nil
	default:
		logger.Error("Unknown embedding backend", zap.String("backend", cfg.Backend))
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}

func (c *components) close() {
	if c.redis != nil {
		c.redis.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

// embeddingHealthChecker checks the backend when it supports a health check.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
