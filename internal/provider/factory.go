package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"searchagent/internal/config"
	"searchagent/internal/domain"
)

// ProviderConstructor is a function that creates a provider from a config entry.
type ProviderConstructor func(pc config.ProviderConfig, logger *slog.Logger) (domain.Provider, error)

// Factory creates and caches LLM providers from config.
type Factory struct {
	cfg          *config.Config
	logger       *slog.Logger
	constructors map[string]ProviderConstructor
	cache        map[string]domain.Provider
	mu           sync.RWMutex
}

// NewFactory creates a provider factory with the built-in constructors registered.
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]ProviderConstructor),
		cache:        make(map[string]domain.Provider),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a provider constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor ProviderConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["ollama"] = func(pc config.ProviderConfig, logger *slog.Logger) (domain.Provider, error) {
		return NewOllama(OllamaConfig{
			APIBase:      pc.APIBase,
			DefaultModel: pc.DefaultModel,
			Timeout:      seconds(pc.TimeoutSeconds),
			MaxRetries:   pc.MaxRetries,
			Logger:       logger,
		}), nil
	}
	f.constructors["openai"] = newOpenAIFromConfig
}

func newOpenAIFromConfig(pc config.ProviderConfig, logger *slog.Logger) (domain.Provider, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("apiKey is required (set OPENAI_API_KEY or providers.openai.apiKey)")
	}
	return NewOpenAI(OpenAIConfig{
		APIKey:          pc.APIKey,
		APIBase:         pc.APIBase,
		Model:           pc.DefaultModel,
		Timeout:         seconds(pc.TimeoutSeconds),
		MaxRetries:      pc.MaxRetries,
		RateLimitPerMin: pc.RateLimitPerMin,
		Logger:          logger,
	}), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Get returns the provider with the given name, or the default if name is empty.
// Created providers are cached so the same instance is reused across calls.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.General.DefaultProvider
	}

	// Fast path: read lock.
	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	// Slow path: write lock with double-check.
	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}

	ctor, found := f.constructors[name]
	if !found {
		if pc.APIBase == "" {
			return nil, fmt.Errorf("provider %s: no constructor registered and no API base configured", name)
		}
		// Unknown providers are treated as OpenAI-compatible.
		ctor = newOpenAIFromConfig
	}

	p, err := ctor(pc, f.logger)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	f.cache[name] = p
	return p, nil
}

// DefaultProvider returns the configured default provider.
func (f *Factory) DefaultProvider() (domain.Provider, error) {
	return f.Get("")
}

// Chain returns the default provider, wrapped in a FailoverProvider when a
// failover chain is configured. Chain members that cannot be built are
// skipped with a warning.
func (f *Factory) Chain() (domain.Provider, error) {
	primary, err := f.DefaultProvider()
	if err != nil {
		return nil, err
	}
	if len(f.cfg.General.FailoverChain) == 0 {
		return primary, nil
	}

	providers := []domain.Provider{primary}
	for _, name := range f.cfg.General.FailoverChain {
		if name == f.cfg.General.DefaultProvider {
			continue
		}
		p, err := f.Get(name)
		if err != nil {
			f.logger.Warn("skipping failover provider", "provider", name, "err", err)
			continue
		}
		providers = append(providers, p)
	}
	if len(providers) == 1 {
		return primary, nil
	}
	return NewFailoverProvider(providers, f.logger), nil
}

// HealthyProvider returns the first provider that passes a health check, or nil.
func (f *Factory) HealthyProvider(ctx context.Context) domain.Provider {
	for name := range f.cfg.Providers {
		p, err := f.Get(name)
		if err != nil || p == nil {
			continue
		}
		if p.Healthy(ctx) == nil {
			return p
		}
	}
	return nil
}
