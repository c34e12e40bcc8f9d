package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/donation-matcher/internal/ai"
	"github.com/spigell/donation-matcher/internal/ai/gemini"
	"github.com/spigell/donation-matcher/internal/ai/mistral"
	"github.com/spigell/donation-matcher/internal/cache"
	"github.com/spigell/donation-matcher/internal/events"
	"github.com/spigell/donation-matcher/internal/logger"
	"github.com/spigell/donation-matcher/internal/match"
	"github.com/spigell/donation-matcher/internal/secrets"
)

// matcherDeps holds the pipeline and the connections it owns.
type matcherDeps struct {
	service *match.Service
	closers []func()
}

func (d *matcherDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildService wires the reasoning engine and the optional cache and event
// publisher into a match.Service.
func buildService(ctx context.Context, config *Config, log *zap.Logger) (*matcherDeps, error) {
	deps := &matcherDeps{}

	reasoner, err := newReasoner(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building reasoning engine: %w", err)
	}

	prompt, err := newPromptBuilder(config.Match)
	if err != nil {
		return nil, err
	}

	serviceDeps := match.Deps{
		Reasoner: reasoner,
		Prompt:   prompt,
		Logger:   logger.WithCommonFields(log, config.AI.Provider, reasoner.Model()),
	}

	if config.Cache.Enabled {
		store, closeStore, err := newResultCache(ctx, config.Cache)
		if err != nil {
			deps.Close()
			return nil, err
		}
		serviceDeps.Cache = store
		deps.closers = append(deps.closers, closeStore)
		log.Info("result cache enabled", zap.String("redis_addr", config.Cache.RedisAddr), zap.Duration("ttl", config.Cache.TTL))
	}

	if url := strings.TrimSpace(config.Events.NatsURL); url != "" {
		conn, err := nats.Connect(url, nats.Name(app))
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
		}
		serviceDeps.Publisher = events.NewPublisher(conn, config.Events.Subject)
		deps.closers = append(deps.closers, func() { _ = conn.Drain() })
		log.Info("publishing match decisions", zap.String("subject", config.Events.Subject))
	}

	deps.service = match.NewService(match.Config{
		Timeout:         config.AI.Timeout,
		VerifyRecipient: config.Match.VerifyRecipient,
		MaxLogLength:    config.AI.MaxLogLength,
	}, serviceDeps)

	return deps, nil
}

func newReasoner(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Reasoner, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", ai.ProviderMistral:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "mistral api key",
			File:  cfg.Mistral.APIKeyFile,
			Value: cfg.Mistral.APIKey,
			Env:   "MISTRAL_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		client, err := mistral.New(apiKey, cfg.Mistral.Model, logger.WithCommonFields(log, ai.ProviderMistral, cfg.Mistral.Model))
		if err != nil {
			return nil, err
		}
		if cfg.Mistral.BaseURL != "" {
			client.BaseURL = strings.TrimRight(cfg.Mistral.BaseURL, "/")
		}
		return client, nil

	case ai.ProviderGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  cfg.Gemini.APIKeyFile,
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, logger.WithCommonFields(log, ai.ProviderGemini, cfg.Gemini.Model))
		if err != nil {
			return nil, err
		}
		return generator, nil

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newPromptBuilder(cfg *MatchConfig) (*match.PromptBuilder, error) {
	if cfg.PromptFile == "" {
		return match.NewPromptBuilder(""), nil
	}

	template, err := os.ReadFile(cfg.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}

	return match.NewPromptBuilder(string(template)), nil
}

func newResultCache(ctx context.Context, cfg *CacheConfig) (*cache.RedisStore, func(), error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis %s: %w", cfg.RedisAddr, err)
	}

	return cache.NewRedisStore(client, cfg.Prefix, cfg.TTL), func() { _ = client.Close() }, nil
}
