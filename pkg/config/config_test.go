package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaveflow/weaveflow/pkg/config"
)

func Test_Load_Defaults(t *testing.T) {
	t.Run("Should load the hardcoded defaults when no overrides exist", func(t *testing.T) {
		cfg, err := config.Load(config.Options{})
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Approval.Store)
	})
}

func Test_Load_EnvOverride(t *testing.T) {
	t.Run("Should prefer an environment variable over the default", func(t *testing.T) {
		t.Setenv("WEAVEFLOW_SERVER_PORT", "9100")
		t.Setenv("WEAVEFLOW_REGISTRY_MODULES_DIR", "/opt/weaveflow/modules")

		cfg, err := config.Load(config.Options{})
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "/opt/weaveflow/modules", cfg.Registry.ModulesDir)
	})
}

func Test_Load_YAMLOverlay(t *testing.T) {
	t.Run("Should overlay a YAML file over the merged defaults and env", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "weaveflow.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9200\napproval:\n  store: file\n"), 0o600))

		cfg, err := config.Load(config.Options{YAMLFile: path})
		require.NoError(t, err)
		assert.Equal(t, 9200, cfg.Server.Port)
		assert.Equal(t, "file", cfg.Approval.Store)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host, "fields absent from the overlay keep their merged value")
	})

	t.Run("Should not error when the YAML file does not exist", func(t *testing.T) {
		cfg, err := config.Load(config.Options{YAMLFile: filepath.Join(t.TempDir(), "missing.yaml")})
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func Test_Load_ValidationFailure(t *testing.T) {
	t.Run("Should reject an out-of-range port", func(t *testing.T) {
		t.Setenv("WEAVEFLOW_SERVER_PORT", "0")
		_, err := config.Load(config.Options{})
		assert.Error(t, err)
	})
}

func Test_Approval_DurationParsing(t *testing.T) {
	t.Run("Should parse the default timeout and sweep interval strings", func(t *testing.T) {
		a := config.Default().Approval
		timeout, err := a.DefaultTimeoutDuration()
		require.NoError(t, err)
		assert.Positive(t, timeout)

		sweep, err := a.SweepIntervalDuration()
		require.NoError(t, err)
		assert.Positive(t, sweep)
	})

	t.Run("Should error on an unparseable duration string", func(t *testing.T) {
		a := config.Approval{DefaultTimeout: "not-a-duration"}
		_, err := a.DefaultTimeoutDuration()
		assert.Error(t, err)
	})
}
