package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/ai/gemini"
	"github.com/spigell/shift-swap/internal/ai/workersai"
	"github.com/spigell/shift-swap/internal/logger"
	"github.com/spigell/shift-swap/internal/matching"
	"github.com/spigell/shift-swap/internal/metrics"
	"github.com/spigell/shift-swap/internal/secrets"
	"github.com/spigell/shift-swap/internal/store"
	"github.com/spigell/shift-swap/internal/store/postgres"
)

// application holds what every command works with.
type application struct {
	config   *Config
	logger   *zap.Logger
	service  *matching.Service
	store    store.Store
	registry *prometheus.Registry
}

// newApplication builds the logger, store, reasoner and matching service.
// Logs go to output ("stdout" or "stderr").
func newApplication(ctx context.Context, output string) (*application, error) {
	log, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: output,
	})
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	log.Debug("starting with config",
		zap.String("store", config.Store.Driver),
		zap.String("ai_provider", config.AI.Provider),
		zap.String("listen", config.Server.Listen),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	st, err := newStore(ctx, config.Store, log)
	if err != nil {
		return nil, err
	}

	reasoner, err := newReasoner(ctx, config.AI, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc, err := matching.New(matching.Deps{
		Store:        st,
		Reasoner:     reasoner,
		Logger:       log,
		Metrics:      collector,
		MaxLogLength: config.AI.MaxLogLength,
		MaxDayDiff:   config.Matching.MaxDayDiff,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &application{
		config:   config,
		logger:   log,
		service:  svc,
		store:    st,
		registry: registry,
	}, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newStore(ctx context.Context, cfg StoreConfig, log *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		st, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return st, nil
	default:
		st, err := store.NewMemory(store.MemoryOptions{SnapshotPath: cfg.SnapshotFile, Logger: log})
		if err != nil {
			return nil, fmt.Errorf("opening memory store: %w", err)
		}
		if cfg.SnapshotFile == "" {
			log.Warn("memory store without snapshot file, posts are lost on exit")
		}
		return st, nil
	}
}

// newReasoner returns nil when no provider is configured. The matching
// service then falls back at every stage.
func newReasoner(ctx context.Context, cfg AIConfig, log *zap.Logger) (ai.Reasoner, error) {
	var (
		reasoner ai.Reasoner
		err      error
	)

	switch cfg.Provider {
	case "gemini":
		reasoner, err = newGemini(ctx, cfg, log)
	case "workersai":
		reasoner, err = newWorkersAI(cfg, log)
	default:
		gem := secrets.Source{File: cfg.Gemini.APIKeyFile, Value: cfg.Gemini.APIKey}
		cf := secrets.Source{File: cfg.WorkersAI.TokenFile, Value: cfg.WorkersAI.Token}
		if gem.Configured() || cf.Configured() {
			log.Warn("reasoning credentials are configured but ai.provider is none")
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		log.Info("limiting reasoning calls", zap.Float64("per_second", cfg.RateLimit), zap.Int("burst", cfg.Burst))
		reasoner = ai.WithRateLimit(reasoner, cfg.RateLimit, cfg.Burst)
	}
	return reasoner, nil
}

func newGemini(ctx context.Context, cfg AIConfig, log *zap.Logger) (ai.Reasoner, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
	if err != nil {
		return nil, err
	}
	generator.SetMaxLogLength(cfg.MaxLogLength)
	return generator, nil
}

func newWorkersAI(cfg AIConfig, log *zap.Logger) (ai.Reasoner, error) {
	token, err := secrets.Load(secrets.Source{
		Name:  "workers ai token",
		File:  cfg.WorkersAI.TokenFile,
		Env:   "CLOUDFLARE_API_TOKEN",
		Value: cfg.WorkersAI.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.workersai.token-file or CLOUDFLARE_API_TOKEN)", err)
	}
	if cfg.WorkersAI.AccountID == "" {
		return nil, errors.New("ai.workersai.account-id is required")
	}

	client, err := workersai.New(cfg.WorkersAI.AccountID, token, cfg.WorkersAI.Model, cfg.WorkersAI.Timeout, log)
	if err != nil {
		return nil, err
	}
	client.SetMaxLogLength(cfg.MaxLogLength)
	return client, nil
}
