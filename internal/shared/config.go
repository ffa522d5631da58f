package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// TokenKeyEnv names the environment variable holding the hex-encoded
// 256-bit key for the refresh-token cipher. The key is deliberately not
// part of the config file.
const TokenKeyEnv = "STONETIFY_TOKEN_KEY"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	History     HistoryConfig     `toml:"history"`
	Player      PlayerConfig      `toml:"player"`
	Tokens      TokensConfig      `toml:"tokens"`
}

// CredentialsConfig contains provider credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// HistoryConfig points at the external playback-history correlation API.
type HistoryConfig struct {
	BaseURL string `toml:"base_url"`
}

// PlayerConfig contains playback session tunables.
type PlayerConfig struct {
	PollIntervalMS   int     `toml:"poll_interval_ms"`
	TickIntervalMS   int     `toml:"tick_interval_ms"`
	SnapThresholdMS  int64   `toml:"snap_threshold_ms"`
	NudgeThresholdMS int64   `toml:"nudge_threshold_ms"`
	NudgeProportion  float64 `toml:"nudge_proportion"`
	SnapshotPath     string  `toml:"snapshot_path"`
}

// TokensConfig contains refresh-token rotation settings.
type TokensConfig struct {
	RotationCeiling int     `toml:"rotation_ceiling"`
	RateLimit       float64 `toml:"api_rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// TokenKey reads the refresh-token cipher key from the environment.
func TokenKey() (string, error) {
	key := os.Getenv(TokenKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredentials, TokenKeyEnv)
	}
	return key, nil
}
