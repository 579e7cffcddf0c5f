// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named
// by --config or BOOKING_CONFIG, then environment variables (a .env file
// in the working directory is loaded into the environment first). The
// environment always wins so container deployments need no file.
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
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/resource-booking/internal/database"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// Config is the full service configuration.
type Config struct {
	Environment   Environment     `yaml:"environment"`
	HTTP          HTTPConfig      `yaml:"http"`
	Store         string          `yaml:"store"`
	Database      database.Config `yaml:"database"`
	Redis         RedisConfig     `yaml:"redis"`
	Presence      PresenceConfig  `yaml:"presence"`
	Booking       BookingConfig   `yaml:"booking"`
	Auth          AuthConfig      `yaml:"auth"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	PublicBaseURL string          `yaml:"public_base_url"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// RedisConfig configures the Redis connection. An empty Addr disables
// Redis; presence then stays in memory and events go to the log.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	Channel  string `yaml:"channel"`
}

// PresenceConfig configures the presence engine.
type PresenceConfig struct {
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
}

// BookingConfig configures the booking engine.
type BookingConfig struct {
	// WindowStart and WindowEnd bound the default bookable slots of a
	// day for resources without a schedule.
	WindowStart int `yaml:"window_start"`
	WindowEnd   int `yaml:"window_end"`
	// PresenceGuard rejects bookings whose slots another session holds.
	PresenceGuard bool          `yaml:"presence_guard"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// Window returns the default bookable window.
func (b BookingConfig) Window() slot.Window {
	return slot.Window{Start: b.WindowStart, End: b.WindowEnd}
}

// AuthConfig configures JWT verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// RateLimitConfig configures per-client rate limiting of mutating
// endpoints. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Store:    BackendPostgres,
		Database: database.Defaults(),
		Redis: RedisConfig{
			Prefix:  "booking",
			Channel: "booking-events",
		},
		Presence: PresenceConfig{
			Backend: BackendMemory,
			Timeout: 10 * time.Second,
		},
		Booking: BookingConfig{
			WindowStart: slot.DefaultWindow.Start,
			WindowEnd:   slot.DefaultWindow.End,
			TokenTTL:    30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		PublicBaseURL: "http://localhost:8080",
	}
}

// Load builds the configuration. path may be empty, in which case
// BOOKING_CONFIG is consulted; when both are empty no file is read.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("BOOKING_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. The DB_* names are the ones
// the deployment manifests already use.
func (c *Config) applyEnv() error {
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.DBName, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	if v := os.Getenv("BOOKING_ENV"); v != "" {
		c.Environment = Environment(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.HTTP.CORSOrigins = strings.Split(v, ",")
	}
	setString(&c.Store, "STORE_BACKEND")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Presence.Backend, "PRESENCE_BACKEND")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.PublicBaseURL, "PUBLIC_BASE_URL")

	if v := os.Getenv("PRESENCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PRESENCE_TIMEOUT: %w", err)
		}
		c.Presence.Timeout = d
	}
	if v := os.Getenv("PRESENCE_GUARD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PRESENCE_GUARD: %w", err)
		}
		c.Booking.PresenceGuard = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store)
	}
	switch c.Presence.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("presence: redis backend needs redis.addr")
		}
	default:
		return fmt.Errorf("presence: unknown backend %q", c.Presence.Backend)
	}
	if c.Presence.Timeout <= 0 {
		return errors.New("presence: timeout must be positive")
	}
	if err := c.Booking.Window().Validate(); err != nil {
		return fmt.Errorf("booking window: %w", err)
	}
	if c.Booking.TokenTTL <= 0 {
		return errors.New("booking: token_ttl must be positive")
	}
	if c.Environment == Production && c.Auth.JWTSecret == "" {
		return errors.New("auth: jwt_secret is required in production")
	}
	return nil
}
