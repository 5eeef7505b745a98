// Package config handles the configuration directory, file paths, and settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "syncdo"

	// TokenFile is the stored bearer token filename.
	TokenFile = "token"

	// SettingsName is the settings file name (without extension) inside Dir.
	SettingsName = "config"

	// LogFile receives diagnostics while the terminal UI owns stderr.
	LogFile = "syncdo.log"

	// EnvPrefix is prepended to environment overrides (SYNCDO_API_URL, ...).
	EnvPrefix = "SYNCDO"
)

// Session persistence backends.
const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the SyncDo API base URL, without trailing slash.
	APIURL string

	// SessionBackend selects where the token is persisted: "file" or "redis".
	SessionBackend string

	// RedisURL and RedisKey locate the token when SessionBackend is "redis".
	RedisURL string
	RedisKey string

	// FederatedLoginPath is appended to APIURL to start browser sign-in.
	FederatedLoginPath string

	// RequestTimeout bounds each API call.
	RequestTimeout time.Duration
}

// New creates a Config with defaults for the given (or default) directory.
// If configDir is empty, uses XDG_CONFIG_HOME/syncdo or $HOME/.config/syncdo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:                dir,
		APIURL:             "http://localhost:8000",
		SessionBackend:     SessionBackendFile,
		RedisURL:           "redis://localhost:6379/0",
		RedisKey:           "syncdo:token",
		FederatedLoginPath: "/auth/google/login",
		RequestTimeout:     10 * time.Second,
	}, nil
}

// Load creates a Config and overlays config.yaml from the config directory
// and SYNCDO_* environment variables. A missing settings file is not an error.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.AddConfigPath(cfg.Dir)
	v.SetConfigName(SettingsName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_url", cfg.APIURL)
	v.SetDefault("session_backend", cfg.SessionBackend)
	v.SetDefault("redis_url", cfg.RedisURL)
	v.SetDefault("redis_key", cfg.RedisKey)
	v.SetDefault("federated_login_path", cfg.FederatedLoginPath)
	v.SetDefault("request_timeout", cfg.RequestTimeout)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read %s: %w", cfg.SettingsPath(), err)
		}
	}

	cfg.APIURL = strings.TrimRight(v.GetString("api_url"), "/")
	cfg.SessionBackend = strings.ToLower(v.GetString("session_backend"))
	cfg.RedisURL = v.GetString("redis_url")
	cfg.RedisKey = v.GetString("redis_key")
	cfg.FederatedLoginPath = v.GetString("federated_login_path")
	cfg.RequestTimeout = v.GetDuration("request_timeout")

	if cfg.APIURL == "" {
		return nil, errors.New("api_url must not be empty")
	}
	switch cfg.SessionBackend {
	case SessionBackendFile, SessionBackendRedis:
	default:
		return nil, fmt.Errorf("unknown session_backend: %s", cfg.SessionBackend)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid request_timeout: %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// TokenPath returns the path to the stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SettingsPath returns the path of the optional settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsName+".yaml")
}

// LogPath returns the diagnostics log path used by the terminal UI.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, LogFile)
}

// FederatedLoginURL builds the browser sign-in URL that redirects back to redirect.
func (c *Config) FederatedLoginURL(redirect string) string {
	return c.APIURL + c.FederatedLoginPath + "?redirect_uri=" + url.QueryEscape(redirect)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
