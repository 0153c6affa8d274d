package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DBSYNC_BATCH_COUNT.
const EnvPrefix = "DBSYNC"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Keys recognised by the loader. Flags, env vars and the config file all use them.
const (
	KeySyncIntervalMS   = "sync-interval-ms"
	KeyBatchCount       = "batch-count"
	KeyRequestURL       = "request-url"
	KeySendEnabled      = "send-enabled"
	KeySendTimeout      = "send-timeout"
	KeyGenerateEnabled  = "generate-enabled"
	KeyGenerateMaxExtra = "generate-max-extra"
	KeyServerPort       = "server-port"
	KeyDatabaseDriver   = "database-driver"
	KeyDatabaseURL      = "database-url"
	KeyAutoMigrate      = "auto-migrate"
	KeyRedisURL         = "redis-url"
	KeyLockTTL          = "lock-ttl"
	KeyPeerSecret       = "peer-secret"
	KeyPeerTokenExpiry  = "peer-token-expiry"
	KeyMetricsEnabled   = "metrics-enabled"
	KeyLogLevel         = "log-level"
)

type Config struct {
	SyncInterval     time.Duration
	BatchCount       int
	RequestURL       string
	SendEnabled      bool
	SendTimeout      time.Duration
	GenerateEnabled  bool
	GenerateMaxExtra int
	ServerPort       string
	DatabaseDriver   string
	DatabaseURL      string
	AutoMigrate      bool
	RedisURL         string
	LockTTL          time.Duration
	PeerSecret       string
	PeerTokenExpiry  time.Duration
	MetricsEnabled   bool
	LogLevel         string
}

// NewViper returns a viper instance with defaults and env binding applied.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySyncIntervalMS, 5000)
	v.SetDefault(KeyBatchCount, 2)
	v.SetDefault(KeyRequestURL, "")
	v.SetDefault(KeySendEnabled, false)
	v.SetDefault(KeySendTimeout, "30s")
	v.SetDefault(KeyGenerateEnabled, false)
	v.SetDefault(KeyGenerateMaxExtra, 2)
	v.SetDefault(KeyServerPort, "8080")
	v.SetDefault(KeyDatabaseDriver, DriverPostgres)
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyAutoMigrate, true)
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyLockTTL, "60s")
	v.SetDefault(KeyPeerSecret, "")
	v.SetDefault(KeyPeerTokenExpiry, "5m")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyLogLevel, "info")
}

// LoadConfig reads the optional YAML file at path (empty means none), overlays
// environment variables and validates the result.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	sendTimeout, err := parseDuration(v, KeySendTimeout)
	if err != nil {
		return nil, err
	}
	lockTTL, err := parseDuration(v, KeyLockTTL)
	if err != nil {
		return nil, err
	}
	tokenExpiry, err := parseDuration(v, KeyPeerTokenExpiry)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SyncInterval:     time.Duration(v.GetInt64(KeySyncIntervalMS)) * time.Millisecond,
		BatchCount:       v.GetInt(KeyBatchCount),
		RequestURL:       v.GetString(KeyRequestURL),
		SendEnabled:      v.GetBool(KeySendEnabled),
		SendTimeout:      sendTimeout,
		GenerateEnabled:  v.GetBool(KeyGenerateEnabled),
		GenerateMaxExtra: v.GetInt(KeyGenerateMaxExtra),
		ServerPort:       v.GetString(KeyServerPort),
		DatabaseDriver:   strings.ToLower(v.GetString(KeyDatabaseDriver)),
		DatabaseURL:      v.GetString(KeyDatabaseURL),
		AutoMigrate:      v.GetBool(KeyAutoMigrate),
		RedisURL:         v.GetString(KeyRedisURL),
		LockTTL:          lockTTL,
		PeerSecret:       v.GetString(KeyPeerSecret),
		PeerTokenExpiry:  tokenExpiry,
		MetricsEnabled:   v.GetBool(KeyMetricsEnabled),
		LogLevel:         v.GetString(KeyLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the sync worker depends on
func (c *Config) Validate() error {
	if c.SyncInterval <= 0 {
		return errors.New("sync-interval-ms must be greater than zero")
	}
	if c.BatchCount <= 0 {
		return errors.New("batch-count must be greater than zero")
	}
	if c.GenerateMaxExtra < 0 {
		return errors.New("generate-max-extra must not be negative")
	}
	if c.DatabaseURL == "" {
		return errors.New("database-url is required")
	}
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverSQLite {
		return fmt.Errorf("unsupported database-driver %q", c.DatabaseDriver)
	}
	if c.SendEnabled {
		if c.RequestURL == "" {
			return errors.New("request-url is required when send-enabled is true")
		}
		u, err := url.Parse(c.RequestURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("request-url %q must be an absolute URL", c.RequestURL)
		}
		if c.SendTimeout <= 0 {
			return errors.New("send-timeout must be greater than zero")
		}
	}
	if c.RedisURL != "" {
		if c.LockTTL <= 0 {
			return errors.New("lock-ttl must be greater than zero")
		}
		// Cycles run under a deadline of lock-ttl, so a delivery must fit inside it.
		if c.SendEnabled && c.LockTTL <= c.SendTimeout {
			return fmt.Errorf("lock-ttl (%s) must be greater than send-timeout (%s)", c.LockTTL, c.SendTimeout)
		}
	}
	if c.PeerSecret != "" && c.PeerTokenExpiry <= 0 {
		return errors.New("peer-token-expiry must be greater than zero")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a log-level value onto a slog level. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log-level %q: want debug, info, warn or error", level)
	}
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return d, nil
}
