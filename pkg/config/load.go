package config

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	goyaml "github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the namespace every environment variable this package reads
// must carry, e.g. WEAVEFLOW_SERVER_PORT for Config.Server.Port.
const EnvPrefix = "WEAVEFLOW_"

// Options controls where Load looks for optional overrides. A zero-value
// Options is legal: Load then runs on defaults and the real process
// environment only.
type Options struct {
	// EnvFile is a .env path loaded into the process environment before the
	// env provider reads it, for local development. Missing is not an error.
	EnvFile string
	// YAMLFile optionally overlays a YAML document over the merged
	// defaults+env configuration. Missing is not an error.
	YAMLFile string
}

// Load builds the process configuration: Default(), overridden by any
// environment variables under EnvPrefix, then overlaid with YAMLFile if
// present, then validated. The result is never mutated again by this
// package (spec.md §9).
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load env file %q: %w", opts.EnvFile, err)
		}
	}

	k := koanf.New(".")
	defaults := Default()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	envProvider := env.Provider(EnvPrefix, ".", func(key string) string {
		trimmed := strings.TrimPrefix(key, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(trimmed), "_", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal merged configuration: %w", err)
	}

	if opts.YAMLFile != "" {
		if err := overlayYAML(cfg, opts.YAMLFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// overlayYAML decodes path onto cfg in place, leaving fields the document
// doesn't mention untouched. A missing file is not an error, since the YAML
// override is optional by design.
func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: failed to read yaml override %q: %w", path, err)
	}
	if err := goyaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to parse yaml override %q: %w", path, err)
	}
	return nil
}

// MergeDefaults fills any zero-valued field of cfg from Default(), for
// callers that build a partial Config by hand (e.g. tests) instead of going
// through Load.
func MergeDefaults(cfg *Config) error {
	return mergo.Merge(cfg, Default())
}
