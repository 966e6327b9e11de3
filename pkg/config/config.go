// Package config loads the engine process's global configuration once at
// startup (spec.md §9: "Global configuration ... is process-scoped and read
// once at startup"). Nothing in this package supports hot-reload; callers
// that need a value after boot hold onto the *Config they got from Load.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/weaveflow/weaveflow/engine/core"
)

// Server controls the HTTP surface (internal/httpapi) serving the ad-hoc
// trigger and webform endpoints from spec.md §6.
type Server struct {
	Host string `koanf:"host" yaml:"host" validate:"required"`
	Port int    `koanf:"port" yaml:"port" validate:"required,min=1,max=65535"`
}

// Registry controls Module Manifest discovery (engine/module.Registry).
type Registry struct {
	ModulesDir string `koanf:"modules_dir" yaml:"modules_dir" validate:"required"`
}

// Delegate controls the Remote Delegator's scratch space and default clone
// behavior (engine/delegate, spec.md §4.F).
type Delegate struct {
	ReposBasePath string `koanf:"repos_base_path" yaml:"repos_base_path" validate:"required"`
}

// Retry is the fallback retry policy an action step without its own `retry`
// block inherits (spec.md §4.D item 4).
type Retry struct {
	MaxAttempts     int    `koanf:"max_attempts"     yaml:"max_attempts"     validate:"required,min=1"`
	BackoffSeconds  int    `koanf:"backoff_seconds"  yaml:"backoff_seconds"  validate:"min=0"`
	BackoffStrategy string `koanf:"backoff_strategy" yaml:"backoff_strategy" validate:"oneof=linear exponential"`
}

// Approval controls the Approval Manager's ticket store and sweep interval
// (engine/approval, spec.md §5). Durations are kept as human-readable
// strings ("24h", "1 day") rather than time.Duration, since neither the
// koanf structs/env providers nor goccy/go-yaml convert a plain string into
// time.Duration on their own; DefaultTimeoutDuration/SweepIntervalDuration
// do that conversion with core.ParseHumanDuration.
type Approval struct {
	Store          string `koanf:"store"           yaml:"store"           validate:"oneof=memory file"`
	FilePath       string `koanf:"file_path"       yaml:"file_path"`
	DefaultTimeout string `koanf:"default_timeout" yaml:"default_timeout" validate:"required"`
	SweepInterval  string `koanf:"sweep_interval"  yaml:"sweep_interval"  validate:"required"`
}

// DefaultTimeoutDuration parses DefaultTimeout.
func (a Approval) DefaultTimeoutDuration() (time.Duration, error) {
	d, err := core.ParseHumanDuration(a.DefaultTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: approval.default_timeout %q: %w", a.DefaultTimeout, err)
	}
	return d, nil
}

// SweepIntervalDuration parses SweepInterval.
func (a Approval) SweepIntervalDuration() (time.Duration, error) {
	d, err := core.ParseHumanDuration(a.SweepInterval)
	if err != nil {
		return 0, fmt.Errorf("config: approval.sweep_interval %q: %w", a.SweepInterval, err)
	}
	return d, nil
}

// Workflow controls where the process looks for workflow documents to load
// and register at startup — scheduled-trigger documents need a cron entry
// registered before the process can fire them on its own, since nothing
// else would ever load them off disk.
type Workflow struct {
	DocumentsDir string `koanf:"documents_dir" yaml:"documents_dir"`
	// EnvAllowlist names the process environment variables a workflow run's
	// Context exposes under its `env` root (spec.md §3). Unlisted variables
	// stay invisible to `${env.*}` templates.
	EnvAllowlist []string `koanf:"env_allowlist" yaml:"env_allowlist"`
}

// Logging controls pkg/logger's root logger construction.
type Logging struct {
	Level string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `koanf:"json"  yaml:"json"`
}

// Metrics controls whether engine/obs exports Prometheus metrics and, if so,
// where the process serves them.
type Metrics struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path"    yaml:"path"`
}

// Config is the engine process's full configuration tree.
type Config struct {
	Server   Server   `koanf:"server"   yaml:"server"`
	Registry Registry `koanf:"registry" yaml:"registry"`
	Delegate Delegate `koanf:"delegate" yaml:"delegate"`
	Retry    Retry    `koanf:"retry"    yaml:"retry"`
	Workflow Workflow `koanf:"workflow" yaml:"workflow"`
	Approval Approval `koanf:"approval" yaml:"approval"`
	Logging  Logging  `koanf:"logging"  yaml:"logging"`
	Metrics  Metrics  `koanf:"metrics"  yaml:"metrics"`
}

// Default returns the hardcoded baseline every other source (.env,
// environment variables) is merged over.
func Default() *Config {
	return &Config{
		Server: Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Registry: Registry{
			ModulesDir: "./modules",
		},
		Delegate: Delegate{
			ReposBasePath: "./.scratch/repos",
		},
		Retry: Retry{
			MaxAttempts:     1,
			BackoffSeconds:  0,
			BackoffStrategy: "linear",
		},
		Workflow: Workflow{
			DocumentsDir: "./workflows",
			EnvAllowlist: []string{},
		},
		Approval: Approval{
			Store:          "memory",
			FilePath:       "./.scratch/approvals.json",
			DefaultTimeout: "24h",
			SweepInterval:  "1m",
		},
		Logging: Logging{
			Level: "info",
			JSON:  false,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation over the fully merged configuration.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
