package main

import (
	"github.com/go-redis/redis/v8"

	"chatnerd/internal/config"
	"chatnerd/internal/logging"
	"chatnerd/internal/quota"
	"chatnerd/internal/reader"
	"chatnerd/internal/sandbox"
	"chatnerd/internal/tier"
	"chatnerd/internal/tools"
)

// core bundles the wired orchestration components for one CLI invocation.
type core struct {
	registry *tools.Registry
	quota    *quota.Manager
	sandbox  *sandbox.Manager
	reader   *reader.Reader
	tiers    tier.Lookup
}

// buildCore wires the core from config. The CLI resolves every user to
// the tier given on the command line; the chat application substitutes
// its session-backed lookup here.
func buildCore(cfg config.Config, callerTier tier.Tier) (*core, error) {
	registry, err := tools.NewRegistry(tools.BuiltinCatalogue()...)
	if err != nil {
		return nil, err
	}

	tiers := tier.Static(callerTier)

	var store quota.Store
	if cfg.Redis.Addr != "" {
		store = quota.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		logging.Boot("usage store: redis at %s", cfg.Redis.Addr)
	} else {
		store = quota.NewMemoryStore()
		logging.Boot("usage store: in-memory (single process)")
	}

	qm := quota.New(store, tiers, quota.Config{
		DailyLimit: cfg.Quota.DailyLimit,
		MinTier:    cfg.MinTier(),
	})

	var client sandbox.Client
	if cfg.Sandbox.ProviderURL != "" {
		client = sandbox.NewHTTPClient(cfg.Sandbox.ProviderURL, cfg.Sandbox.APIKey)
		logging.Boot("sandbox provider: %s", cfg.Sandbox.ProviderURL)
	} else {
		client = sandbox.Disabled()
		logging.Boot("sandbox provider: disabled")
	}

	sm := sandbox.New(client, qm, sandbox.Config{
		ExecTimeout:     cfg.Sandbox.ExecTimeout,
		TeardownTimeout: cfg.Sandbox.TeardownTimeout,
	})

	rd := reader.New(
		reader.NewHTTPFetcher(reader.WithMaxBodyBytes(cfg.Reader.MaxBodyBytes)),
		reader.WithDefaultTimeout(cfg.Reader.Timeout),
	)

	return &core{
		registry: registry,
		quota:    qm,
		sandbox:  sm,
		reader:   rd,
		tiers:    tiers,
	}, nil
}
