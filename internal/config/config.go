package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the storefront configuration. Values come from an optional
// YAML file and are then overridden by environment variables.
type Config struct {
	Module   string         `yaml:"module"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Cart     CartConfig     `yaml:"cart"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Leads    LeadsConfig    `yaml:"leads"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type ServerConfig struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures Postgres. Without a URL or host the services
// run in memory mode.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxIdle     time.Duration `yaml:"conn_max_idle"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type CartConfig struct {
	IdleTTL     time.Duration `yaml:"idle_ttl"`
	SweepSpec   string        `yaml:"sweep_spec"`
	MergePolicy string        `yaml:"merge_policy"` // keep-first, replace
	CookieName  string        `yaml:"cookie_name"`
}

type CatalogConfig struct {
	Source string `yaml:"source"` // seed, file, postgres
	File   string `yaml:"file"`
	Watch  bool   `yaml:"watch"`
}

type LeadsConfig struct {
	NodeID   int64      `yaml:"node_id"`
	Workers  int        `yaml:"workers"`
	NotifyTo string     `yaml:"notify_to"`
	SMTP     SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (s SMTPConfig) Enabled() bool { return s.Host != "" }

type LoggerConfig struct {
	Mode       string `yaml:"mode"` // development, production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

func DefaultConfig() *Config {
	return &Config{
		Module: "HoReCa-Storefront",
		Server: ServerConfig{
			Port:              "8080",
			ReadHeaderTimeout: 2 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			Name:            "horeca_storefront",
			SSLMode:         "disable",
			MaxOpenConns:    60,
			MaxIdleConns:    20,
			ConnMaxIdle:     5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cache: CacheConfig{TTL: 45 * time.Second},
		Cart: CartConfig{
			IdleTTL:     2 * time.Hour,
			SweepSpec:   "@every 1m",
			MergePolicy: "keep-first",
			CookieName:  "cart_session",
		},
		Catalog: CatalogConfig{Source: "seed"},
		Leads: LeadsConfig{
			NodeID:  1,
			Workers: 4,
			SMTP:    SMTPConfig{Port: 587},
		},
		Logger: LoggerConfig{Mode: "development", Filename: "storefront.log"},
	}
}

// Load reads path (if non-empty) over the defaults and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Module = env("MODULE_NAME", c.Module)
	c.Server.Port = env("PORT", c.Server.Port)

	c.Database.URL = env("DATABASE_URL", c.Database.URL)
	c.Database.Host = env("DB_HOST", c.Database.Host)
	c.Database.Port = env("DB_PORT", c.Database.Port)
	c.Database.User = env("DB_USER", c.Database.User)
	c.Database.Password = env("DB_PASSWORD", c.Database.Password)
	c.Database.Name = env("DB_NAME", c.Database.Name)
	c.Database.SSLMode = env("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = intEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = intEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxIdle = durationEnv("DB_CONN_MAX_IDLE", c.Database.ConnMaxIdle)
	c.Database.ConnMaxLifetime = durationEnv("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Cache.TTL = durationEnv("CACHE_TTL", c.Cache.TTL)

	c.Cart.IdleTTL = durationEnv("CART_IDLE_TTL", c.Cart.IdleTTL)
	c.Cart.SweepSpec = env("CART_SWEEP_SPEC", c.Cart.SweepSpec)
	c.Cart.MergePolicy = env("CART_MERGE_POLICY", c.Cart.MergePolicy)

	c.Catalog.Source = env("CATALOG_SOURCE", c.Catalog.Source)
	c.Catalog.File = env("CATALOG_FILE", c.Catalog.File)
	c.Catalog.Watch = boolEnv("CATALOG_WATCH", c.Catalog.Watch)

	c.Leads.NotifyTo = env("LEADS_NOTIFY_TO", c.Leads.NotifyTo)
	c.Leads.Workers = intEnv("LEADS_WORKERS", c.Leads.Workers)
	c.Leads.SMTP.Host = env("SMTP_HOST", c.Leads.SMTP.Host)
	c.Leads.SMTP.Port = intEnv("SMTP_PORT", c.Leads.SMTP.Port)
	c.Leads.SMTP.Username = env("SMTP_USERNAME", c.Leads.SMTP.Username)
	c.Leads.SMTP.Password = env("SMTP_PASSWORD", c.Leads.SMTP.Password)
	c.Leads.SMTP.From = env("SMTP_FROM", c.Leads.SMTP.From)

	c.Logger.Mode = env("LOG_MODE", c.Logger.Mode)
	c.Logger.FileEnable = boolEnv("LOG_FILE_ENABLE", c.Logger.FileEnable)
	c.Logger.Filename = env("LOG_FILENAME", c.Logger.Filename)
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case "seed", "postgres":
	case "file":
		if c.Catalog.File == "" {
			return errors.New("catalog.file is required when catalog.source is file")
		}
	default:
		return errors.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}
	if c.Cart.IdleTTL <= 0 {
		return errors.New("cart.idle_ttl must be positive")
	}
	if c.Leads.Workers < 1 {
		return errors.New("leads.workers must be at least 1")
	}
	if c.Leads.SMTP.Enabled() && c.Leads.NotifyTo == "" {
		return errors.New("leads.notify_to is required when smtp is configured")
	}
	return nil
}

// HasDatabase reports whether Postgres settings are present.
func (d DatabaseConfig) HasDatabase() bool {
	return d.URL != "" || d.Host != ""
}

// DSN returns the explicit URL or builds one from the host settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func boolEnv(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
