// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// RateLimit bounds how many events one connection may send.
type RateLimit struct {
	Burst    int           `yaml:"burst"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Port            string        `yaml:"port"`
	DatabaseURL     string        `yaml:"database_url"`
	Store           string        `yaml:"store"`
	DBMaxConns      int32         `yaml:"db_max_conns"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	Password        string        `yaml:"password"`
	PasswordHash    string        `yaml:"password_hash"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Default() Config {
	return Config{
		Port:           "3001",
		AllowedOrigins: []string{"*"},
		MaxMessageSize: 1 << 20,
		RateLimit: RateLimit{
			Burst:    20,
			Interval: time.Second,
		},
		LogLevel:        "info",
		LogFormat:       "console",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file, the environment and finally the command-line flags in args. Later
// layers win.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("lumi-board", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "YAML configuration file (env LUMI_CONFIG)")
	envFile := flags.String("env-file", ".env", "dotenv file loaded into the environment")
	port := flags.StringP("port", "p", "", "listen port")
	storeKind := flags.String("store", "", "note store: postgres or memory")
	databaseURL := flags.String("database-url", "", "PostgreSQL connection string")
	logLevel := flags.String("log-level", "", "log level")
	logFormat := flags.String("log-format", "", "log output: console or json")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", *envFile, err)
	}

	cfg := Default()

	path := *configPath
	if path == "" {
		path = os.Getenv("LUMI_CONFIG")
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if flags.Changed("port") {
		cfg.Port = *port
	}
	if flags.Changed("store") {
		cfg.Store = *storeKind
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = *databaseURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = *logFormat
	}

	if cfg.Store == "" {
		cfg.Store = StoreMemory
		if cfg.DatabaseURL != "" {
			cfg.Store = StorePostgres
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.Port, "LUMI_PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Store, "LUMI_STORE")
	setString(&c.Password, "LUMI_PASSWORD")
	setString(&c.PasswordHash, "LUMI_PASSWORD_HASH")
	setString(&c.LogLevel, "LUMI_LOG_LEVEL")
	setString(&c.LogFormat, "LUMI_LOG_FORMAT")

	if v := os.Getenv("LUMI_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = parseOrigins(v)
	}
	if v := os.Getenv("LUMI_MAX_MESSAGE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		errs = append(errs, envError("LUMI_MAX_MESSAGE_SIZE", err))
		c.MaxMessageSize = n
	}
	if v := os.Getenv("LUMI_DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		errs = append(errs, envError("LUMI_DB_MAX_CONNS", err))
		c.DBMaxConns = int32(n)
	}
	if v := os.Getenv("LUMI_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envError("LUMI_RATE_LIMIT_BURST", err))
		c.RateLimit.Burst = n
	}
	if v := os.Getenv("LUMI_RATE_LIMIT_INTERVAL"); v != "" {
		d, err := parseSeconds(v)
		errs = append(errs, envError("LUMI_RATE_LIMIT_INTERVAL", err))
		c.RateLimit.Interval = d
	}
	if v := os.Getenv("LUMI_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := parseSeconds(v)
		errs = append(errs, envError("LUMI_SHUTDOWN_TIMEOUT", err))
		c.ShutdownTimeout = d
	}

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("port %q is not a valid TCP port", c.Port))
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres store requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.DBMaxConns < 0 {
		errs = append(errs, errors.New("db max conns must not be negative"))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("max message size must be positive"))
	}
	if c.RateLimit.Burst <= 0 || c.RateLimit.Interval <= 0 {
		errs = append(errs, errors.New("rate limit burst and interval must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envError(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

// parseSeconds accepts a whole number of seconds or a Go duration string.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func parseOrigins(v string) []string {
	var origins []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
