package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion   = 1
	CurrentLevelingVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common   CommonConfig
	Leveling LevelingConfig
}

// CommonConfig contains configuration shared by every command.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Forward error logs to OpenTelemetry spans.
	EnableTracing bool `koanf:"enable_tracing"`
	// Uptrace project DSN spans are exported to. Empty keeps spans in process.
	UptraceDSN string `koanf:"uptrace_dsn"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// LevelingConfig contains the leveling engine configuration.
type LevelingConfig struct {
	// Version of the leveling config.
	Version     int              `koanf:"version"`
	Defaults    Defaults         `koanf:"defaults"`
	Leaderboard Leaderboard      `koanf:"leaderboard"`
	Cache       Cache            `koanf:"cache"`
	Export      Export           `koanf:"export"`
	Directory   []GuildDirectory `koanf:"directory"`
}

// Defaults are the settings given to a guild the first time it is configured.
type Defaults struct {
	// Threshold of the first level-up.
	Base int `koanf:"base"`
	// Curve steepness as a percentage.
	Modifier int `koanf:"modifier"`
	// XP granted per admitted activity event.
	Amount int64 `koanf:"amount"`
	// Cooldown between earning events in seconds.
	CooldownSeconds int `koanf:"cooldown_seconds"`
	// Whether the module starts enabled.
	ModuleEnabled bool `koanf:"module_enabled"`
}

// Cooldown returns the default cooldown as a duration.
func (d Defaults) Cooldown() time.Duration {
	return time.Duration(d.CooldownSeconds) * time.Second
}

// Leaderboard contains leaderboard paging configuration.
type Leaderboard struct {
	// Rows per page.
	PageSize int `koanf:"page_size"`
	// Rows shown above the requesting member.
	WindowBefore int `koanf:"window_before"`
}

// Cache contains cache lifetimes in seconds.
type Cache struct {
	// Lifetime of a guild's standings snapshot in Redis.
	StandingsTTL int `koanf:"standings_ttl"`
	// Lifetime of in-process guild settings.
	SettingsTTL int `koanf:"settings_ttl"`
}

// GuildDirectory lists the channels and roles that exist in one guild, so
// typed ignore mentions can be checked against them.
type GuildDirectory struct {
	GuildID  uint64   `koanf:"guild_id"`
	Channels []uint64 `koanf:"channels"`
	Roles    []uint64 `koanf:"roles"`
}

// Export contains ledger export configuration.
type Export struct {
	// Directory export files are written to.
	OutputDir string `koanf:"output_dir"`
	// Entries written per SQLite transaction.
	BatchSize int `koanf:"batch_size"`
	// Guilds exported concurrently.
	Concurrency int `koanf:"concurrency"`
	// Salt for pseudonymizing member ids. Empty exports raw ids.
	Salt string `koanf:"salt"`
	// Pseudonym hash algorithm, sha256 or argon2id.
	HashType string `koanf:"hash_type"`
	// Hash iterations.
	Iterations uint32 `koanf:"iterations"`
	// Argon2id memory in MB.
	Memory uint32 `koanf:"memory"`
}

// LoadConfig loads the configuration from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom([]string{
		".levels",
		homeDir + "/.levels/config",
		"/etc/levels/config",
		"/app/config",
		"config",
		".",
	})
}

// LoadConfigFrom loads the configuration files from the first search path containing each.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	var (
		config         Config
		usedConfigPath string
	)

	// Unmarshal keeps this unless the file sets it, so an explicit 0 survives
	config.Leveling.Leaderboard.WindowBefore = 5

	configFiles := []struct {
		name   string
		target any
	}{
		{"common", &config.Common},
		{"leveling", &config.Leveling},
	}

	for _, configFile := range configFiles {
		k := koanf.New(".")
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configFile.name)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configFile.name)
		}

		if err := k.Unmarshal("", configFile.target); err != nil {
			return nil, "", fmt.Errorf("error unmarshaling %s config: %w", configFile.name, err)
		}
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("leveling", config.Leveling.Version, CurrentLevelingVersion); err != nil {
		return nil, "", err
	}

	config.Leveling.applyFallbacks()

	return &config, usedConfigPath, nil
}

// applyFallbacks fills values a config file may leave out.
func (c *LevelingConfig) applyFallbacks() {
	if c.Leaderboard.PageSize <= 0 {
		c.Leaderboard.PageSize = 15
	}

	if c.Leaderboard.WindowBefore < 0 {
		c.Leaderboard.WindowBefore = 5
	}

	if c.Export.BatchSize <= 0 {
		c.Export.BatchSize = 1000
	}

	if c.Export.Concurrency <= 0 {
		c.Export.Concurrency = 4
	}

	if c.Export.OutputDir == "" {
		c.Export.OutputDir = "exports"
	}

	if c.Export.HashType == "" {
		c.Export.HashType = "sha256"
	}

	if c.Export.Iterations == 0 {
		c.Export.Iterations = 1
	}

	if c.Export.Memory == 0 {
		c.Export.Memory = 64
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/levels/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
