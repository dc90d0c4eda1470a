package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 9763, cfg.Metrics.Port)
	assert.Equal(t, 32, cfg.Session.MaxLoginRounds)
	assert.Equal(t, "static", cfg.Credential.Source)
}

func TestApplyDefaults_DoesNotOverrideSetFields(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Logging: LoggingConfig{Level: "DEBUG"},
		Metrics: MetricsConfig{Port: 1234},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, 1234, cfg.Metrics.Port)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Session.LocalUser = "target-local"
	cfg.Credential.Users = []StaticUser{{Username: "alice", SharedSecret: "s3cret"}}
	cfg.Admin.PasswordHash = "$2a$10$examplehasheddata"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "target-local", loaded.Session.LocalUser)
	require.Len(t, loaded.Credential.Users, 1)
	assert.Equal(t, "alice", loaded.Credential.Users[0].Username)
	assert.Equal(t, "s3cret", loaded.Credential.Users[0].SharedSecret)
	assert.Equal(t, "$2a$10$examplehasheddata", loaded.Admin.PasswordHash)
}

func TestDefaultConfigPath_UsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := DefaultConfigPath()
	assert.Equal(t, filepath.Join(dir, "iscsid", "config.yaml"), path)
}
