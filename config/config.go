// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	validEnvs            = []string{"development", "production"}
	validLogLevels       = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers       = []string{"sqlite", "postgres"}
	validSessionStores   = []string{"redis", "memory"}
	validStorageTypes    = []string{"s3", "r2"}
	validResubmitPolicy  = []string{"create", "upsert", "reject"}
	validLookupPolicies  = []string{"public", "authenticated", "owner"}
	defaultCORSOrigins   = []string{"http://localhost:3000", "https://mediband.vercel.app", "https://mediband.netlify.app"}
	defaultAllowedTypes  = []string{"image/png", "image/jpeg", "image/webp", "application/pdf"}
	minSessionSecretSize = 32
)

// Config is built once by Load and never mutated afterwards.
type Config struct {
	App      AppConfig
	Host     HostConfig
	DB       DBConfig
	Session  SessionConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Medform  MedformConfig
	Security SecurityConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
}

type HostConfig struct {
	Port        int
	CORSOrigins []string

	// Proxies whose X-Forwarded-For is believed, IPs or CIDRs. Empty means
	// the client IP is always the peer address.
	TrustedProxies []string
}

type DBConfig struct {
	Driver string
	DSN    string
}

type SessionConfig struct {
	Secret        string
	TTL           time.Duration
	TouchInterval time.Duration
	CookieName    string
	Store         string
	RedisURL      string
}

type StorageConfig struct {
	Type            string
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	AccountID       string
	PublicBaseURL   string
}

type UploadConfig struct {
	MaxSize      int64 // bytes
	MaxFiles     int
	AllowedTypes []string
	TempDir      string
	TempMaxAge   time.Duration
}

type MedformConfig struct {
	ResubmitPolicy string
	LookupPolicy   string
}

type SecurityConfig struct {
	RateLimit        int // requests per minute per IP on the auth routes
	TurnstileEnabled bool
	TurnstileSecret  string
}

func (c *Config) Production() bool {
	return c.App.Env == "production"
}

// Load reads config.toml (or the file passed with --config), the
// environment and the defaults, then validates the result. args are the
// command line arguments without the program name.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("mediband", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	bindEnvs(v)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	c := fromViper(v)
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 5000)
	v.SetDefault("host.cors_origins", defaultCORSOrigins)
	v.SetDefault("host.trusted_proxies", []string{})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.touch_interval", "1h")
	v.SetDefault("session.cookie_name", "mediband.sid")
	v.SetDefault("session.store", "memory")

	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("upload.max_size", 10)
	v.SetDefault("upload.max_files", 10)
	v.SetDefault("upload.allowed_types", defaultAllowedTypes)
	v.SetDefault("upload.temp_dir", "")
	v.SetDefault("upload.temp_max_age", "1h")

	v.SetDefault("medform.resubmit_policy", "create")
	v.SetDefault("medform.lookup_policy", "public")

	v.SetDefault("security.rate_limit", 20)

	v.SetDefault("turnstile.enabled", false)
}

func bindEnvs(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV", "NODE_ENV")
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	v.BindEnv("host.port", "HOST_PORT", "PORT")
	v.BindEnv("host.cors_origins", "HOST_CORS_ORIGINS")
	v.BindEnv("host.trusted_proxies", "HOST_TRUSTED_PROXIES")

	v.BindEnv("db.driver", "DB_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN", "DATABASE_URL")

	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("session.ttl", "SESSION_TTL")
	v.BindEnv("session.touch_interval", "SESSION_TOUCH_INTERVAL")
	v.BindEnv("session.cookie_name", "SESSION_COOKIE_NAME")
	v.BindEnv("session.store", "SESSION_STORE")
	v.BindEnv("redis.url", "REDIS_URL")

	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.region", "STORAGE_REGION")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	v.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")
	v.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")

	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	v.BindEnv("upload.max_files", "UPLOAD_MAX_FILES")
	v.BindEnv("upload.allowed_types", "UPLOAD_ALLOWED_TYPES")
	v.BindEnv("upload.temp_dir", "UPLOAD_TEMP_DIR")
	v.BindEnv("upload.temp_max_age", "UPLOAD_TEMP_MAX_AGE")

	v.BindEnv("medform.resubmit_policy", "MEDFORM_RESUBMIT_POLICY")
	v.BindEnv("medform.lookup_policy", "MEDFORM_LOOKUP_POLICY")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")

	v.BindEnv("turnstile.enabled", "TURNSTILE_ENABLED")
	v.BindEnv("turnstile.secret", "TURNSTILE_SECRET")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			LogLevel: v.GetString("app.log_level"),
		},
		Host: HostConfig{
			Port:           v.GetInt("host.port"),
			CORSOrigins:    stringList(v, "host.cors_origins"),
			TrustedProxies: stringList(v, "host.trusted_proxies"),
		},
		DB: DBConfig{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
		},
		Session: SessionConfig{
			Secret:        v.GetString("session.secret"),
			TTL:           v.GetDuration("session.ttl"),
			TouchInterval: v.GetDuration("session.touch_interval"),
			CookieName:    v.GetString("session.cookie_name"),
			Store:         v.GetString("session.store"),
			RedisURL:      v.GetString("redis.url"),
		},
		Storage: StorageConfig{
			Type:            v.GetString("storage.type"),
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			AccountID:       v.GetString("storage.account_id"),
			PublicBaseURL:   strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
		},
		Upload: UploadConfig{
			MaxSize:      v.GetInt64("upload.max_size") << 20,
			MaxFiles:     v.GetInt("upload.max_files"),
			AllowedTypes: stringList(v, "upload.allowed_types"),
			TempDir:      v.GetString("upload.temp_dir"),
			TempMaxAge:   v.GetDuration("upload.temp_max_age"),
		},
		Medform: MedformConfig{
			ResubmitPolicy: v.GetString("medform.resubmit_policy"),
			LookupPolicy:   v.GetString("medform.lookup_policy"),
		},
		Security: SecurityConfig{
			RateLimit:        v.GetInt("security.rate_limit"),
			TurnstileEnabled: v.GetBool("turnstile.enabled"),
			TurnstileSecret:  v.GetString("turnstile.secret"),
		},
	}
}

// stringList accepts both a real list (config file) and a comma separated
// string (environment).
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, s := range v.GetStringSlice(key) {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

func (c *Config) validate() error {
	if !slices.Contains(validEnvs, c.App.Env) {
		return fmt.Errorf("invalid app.env %q", c.App.Env)
	}

	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 || c.Host.Port > 65535 {
		return errors.New("invalid port provided")
	}

	for _, p := range c.Host.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("invalid host.trusted_proxies entry %q", p)
			}
		}
	}

	if !slices.Contains(validDBDrivers, c.DB.Driver) {
		return fmt.Errorf("invalid db.driver %q", c.DB.Driver)
	}

	if c.DB.DSN == "" {
		return errors.New("db.dsn can't be empty")
	}

	if len(c.Session.Secret) < minSessionSecretSize {
		return fmt.Errorf("session.secret must be at least %d characters long", minSessionSecretSize)
	}

	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be bigger than 0")
	}

	if c.Session.TouchInterval < 0 {
		return errors.New("session.touch_interval can't be negative")
	}

	if c.Session.CookieName == "" {
		return errors.New("session.cookie_name can't be empty")
	}

	if !slices.Contains(validSessionStores, c.Session.Store) {
		return fmt.Errorf("invalid session.store %q", c.Session.Store)
	}

	if c.Session.Store == "redis" && c.Session.RedisURL == "" {
		return errors.New("redis.url is required when session.store is redis")
	}

	switch c.Storage.Type {
	case "s3":
		if c.Storage.Region == "" {
			return errors.New("storage.region can't be empty")
		}
	case "r2":
		if c.Storage.AccountID == "" {
			return errors.New("storage.account_id can't be empty")
		}
	default:
		return errors.New("invalid storage type provided")
	}

	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket can't be empty")
	}
	if c.Storage.AccessKeyID == "" {
		return errors.New("storage.access_key_id can't be empty")
	}
	if c.Storage.SecretAccessKey == "" {
		return errors.New("storage.secret_access_key can't be empty")
	}
	if c.Storage.PublicBaseURL == "" {
		return errors.New("storage.public_base_url can't be empty")
	}

	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if c.Upload.MaxFiles <= 0 {
		return errors.New("upload.max_files must be bigger than 0")
	}

	if c.Upload.TempMaxAge <= 0 {
		return errors.New("upload.temp_max_age must be bigger than 0")
	}

	if !slices.Contains(validResubmitPolicy, c.Medform.ResubmitPolicy) {
		return fmt.Errorf("invalid medform.resubmit_policy %q", c.Medform.ResubmitPolicy)
	}

	if !slices.Contains(validLookupPolicies, c.Medform.LookupPolicy) {
		return fmt.Errorf("invalid medform.lookup_policy %q", c.Medform.LookupPolicy)
	}

	if c.Security.RateLimit <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if c.Security.TurnstileEnabled && c.Security.TurnstileSecret == "" {
		return errors.New("turnstile secret token is missing")
	}

	return nil
}
