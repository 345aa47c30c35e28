package provider

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrConfigurationMissing signals a requested provider key has no matching
// config entry (or no registered factory). Fatal for the requesting job;
// not retryable without an operator fix.
var ErrConfigurationMissing = errors.New("provider configuration missing")

// Config maps a provider identity key to its configuration bag
// (credentials, region, endpoint). Immutable for a registry's lifetime.
type Config map[string]map[string]string

/* Registry is a lazily-instantiated, memoized set of backend clients keyed
 * by identity. Scoped to one engine's lifetime: a stage job builds a fresh
 * engine, so memoization only helps within a single job's execution, where
 * one job may need the same provider for several sub-steps.
 *
 * Not safe for concurrent use; each job owns its own registry.
 */
type Registry struct {
	factories map[string]Factory
	configs   Config
	instances map[string]StageProvider
	logger    zerolog.Logger
}

// NewRegistry creates a registry from registered factories and static config
func NewRegistry(factories map[string]Factory, configs Config, logger zerolog.Logger) *Registry {
	return &Registry{
		factories: factories,
		configs:   configs,
		instances: make(map[string]StageProvider),
		logger:    logger,
	}
}

// Get returns the provider for key, constructing it on first use.
// Subsequent calls for the same key return the identical instance;
// distinct keys never share an instance.
func (r *Registry) Get(key string) (StageProvider, error) {
	if p, ok := r.instances[key]; ok {
		return p, nil
	}

	cfg, ok := r.configs[key]
	if !ok {
		return nil, fmt.Errorf("%w: no config entry for key %q", ErrConfigurationMissing, key)
	}

	factory, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: no factory registered for key %q", ErrConfigurationMissing, key)
	}

	p, err := factory(cfg, r.logger.With().Str("provider", key).Logger())
	if err != nil {
		return nil, fmt.Errorf("constructing provider %q: %w", key, err)
	}

	r.instances[key] = p
	return p, nil
}
