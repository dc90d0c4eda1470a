// Package config loads the negotiation engine's static configuration:
// logging, metrics, the built-in parameter catalog's overrides, and where
// CHAP credentials come from. Grounded on the teacher's pkg/config
// (viper + mapstructure + yaml.v3, with ISCSID_* environment variables
// overriding values present in the file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the negotiation engine's static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (ISCSID_*), for keys present in the file
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// No CLI flags are bound to configuration keys; cmd/iscsid only selects
// the file with --config. When no file is found, Load returns the
// defaults without consulting the environment.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Credential CredentialConfig `mapstructure:"credential" yaml:"credential"`
	Admin      AdminConfig      `mapstructure:"admin" yaml:"admin"`
}

// AdminConfig protects the iscsid CLI/config surface itself, distinct from
// the CHAP credentials negotiated on the wire (CredentialConfig): this
// password belongs to local administration, not the login-phase protocol.
// Only its hash is stored; no iscsid command prompts for it or verifies it.
type AdminConfig struct {
	// PasswordHash is a bcrypt hash produced by "iscsid credential
	// set-admin-password" (pkg/secretstore.Hash), never a plaintext
	// password.
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus collector. When Enabled is false,
// no metrics are collected (zero overhead). No metrics HTTP server is
// started, and Port is not read by any command.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// SessionConfig bounds what one login session will accept.
type SessionConfig struct {
	// LocalUser is the username this engine presents when it must answer a
	// peer's CHAP challenge (mutual authentication).
	LocalUser string `mapstructure:"local_user" yaml:"local_user"`

	// MaxLoginRounds bounds how many Parse calls a single login exchange
	// may take before the caller should abort as a protocol violation.
	MaxLoginRounds int `mapstructure:"max_login_rounds" yaml:"max_login_rounds"`
}

// CredentialConfig selects the CHAP credential source.
type CredentialConfig struct {
	// Source names the CHAP credential source ("static" by default). The
	// CLI builds its credential store from Users alone and does not read
	// Source; no file-backed source is implemented.
	Source string `mapstructure:"source" yaml:"source"`

	// Users is the static CHAP credential table.
	Users []StaticUser `mapstructure:"users" yaml:"users"`

	// FilePath names a YAML credential file. Nothing in this tree loads it.
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
}

// StaticUser is one CHAP credential entry.
type StaticUser struct {
	Username     string `mapstructure:"username" yaml:"username"`
	SharedSecret string `mapstructure:"shared_secret" yaml:"shared_secret"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ISCSID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// An explicit path that does not exist surfaces as a plain
		// not-exist error rather than ConfigFileNotFoundError.
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "iscsid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "iscsid")
}

// DefaultConfigPath returns the config file Load uses when configPath is
// empty.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9763
	}
	if cfg.Session.MaxLoginRounds == 0 {
		cfg.Session.MaxLoginRounds = 32
	}
	if cfg.Credential.Source == "" {
		cfg.Credential.Source = "static"
	}
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
