package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Realtime drivers
const (
	RealtimeLocal    = "local"
	RealtimeAMQP     = "amqp"
	RealtimePostgres = "postgres"
)

// Config holds all service configuration
type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Store    StoreConfig    `toml:"store" yaml:"store"`
	Realtime RealtimeConfig `toml:"realtime" yaml:"realtime"`
	Media    MediaConfig    `toml:"media" yaml:"media"`
	Auction  AuctionConfig  `toml:"auction" yaml:"auction"`
}

type ServerConfig struct {
	Port         int      `toml:"port" yaml:"port"`
	ReadTimeout  Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout" yaml:"write_timeout"` // 0 keeps SSE streams open
	IdleTimeout  Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	// IdentityHeader is set by the upstream auth gateway
	IdentityHeader string `toml:"identity_header" yaml:"identity_header"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type StoreConfig struct {
	Driver         string   `toml:"driver" yaml:"driver"`
	DSN            string   `toml:"dsn" yaml:"dsn"`
	PoolSize       int      `toml:"pool_size" yaml:"pool_size"`
	ConnectRetries int      `toml:"connect_retries" yaml:"connect_retries"`
	RetryInterval  Duration `toml:"retry_interval" yaml:"retry_interval"`
}

type RealtimeConfig struct {
	Driver           string `toml:"driver" yaml:"driver"`
	AMQPURL          string `toml:"amqp_url" yaml:"amqp_url"`
	Exchange         string `toml:"exchange" yaml:"exchange"`
	SubscriberBuffer int    `toml:"subscriber_buffer" yaml:"subscriber_buffer"`
	DedupeWindow     int    `toml:"dedupe_window" yaml:"dedupe_window"`
}

type MediaConfig struct {
	Endpoint      string   `toml:"endpoint" yaml:"endpoint"`
	Region        string   `toml:"region" yaml:"region"`
	Bucket        string   `toml:"bucket" yaml:"bucket"`
	AccessKey     string   `toml:"access_key" yaml:"access_key"`
	SecretKey     string   `toml:"secret_key" yaml:"secret_key"`
	PublicBaseURL string   `toml:"public_base_url" yaml:"public_base_url"`
	URLTTL        Duration `toml:"url_ttl" yaml:"url_ttl"`
	CacheSize     int      `toml:"cache_size" yaml:"cache_size"`
}

type AuctionConfig struct {
	TopBids           int             `toml:"top_bids" yaml:"top_bids"`
	MinDuration       Duration        `toml:"min_duration" yaml:"min_duration"`
	MaxDuration       Duration        `toml:"max_duration" yaml:"max_duration"`
	MinPrice          decimal.Decimal `toml:"min_price" yaml:"min_price"`
	CountdownInterval Duration        `toml:"countdown_interval" yaml:"countdown_interval"`
}

// Duration is a time.Duration written as "90s" or "1h30m" in config files
type Duration time.Duration

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    Duration(10 * time.Second),
			IdleTimeout:    Duration(time.Minute),
			IdentityHeader: "X-User-ID",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{
			Driver:         StoreMemory,
			PoolSize:       10,
			ConnectRetries: 3,
			RetryInterval:  Duration(time.Second),
		},
		Realtime: RealtimeConfig{
			Driver:           RealtimeLocal,
			Exchange:         "auction_events",
			SubscriberBuffer: 16,
			DedupeWindow:     4096,
		},
		Media: MediaConfig{
			Region:    "us-east-1",
			URLTTL:    Duration(15 * time.Minute),
			CacheSize: 1024,
		},
		Auction: AuctionConfig{
			TopBids:           5,
			MinDuration:       Duration(time.Hour),
			MaxDuration:       Duration(30 * 24 * time.Hour),
			MinPrice:          decimal.NewFromInt(1),
			CountdownInterval: Duration(time.Second),
		},
	}
}

// Load reads configuration from path, decoding TOML or YAML by file extension,
// then applies environment overrides. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(raw, &cfg)
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &cfg)
		default:
			return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
		}
		if err != nil {
			return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Realtime.AMQPURL = v
	}
	if v := os.Getenv("MEDIA_ACCESS_KEY"); v != "" {
		c.Media.AccessKey = v
	}
	if v := os.Getenv("MEDIA_SECRET_KEY"); v != "" {
		c.Media.SecretKey = v
	}
	return nil
}

// Validate rejects unknown drivers and inconsistent settings
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.IdentityHeader == "" {
		errs = append(errs, errors.New("server.identity_header is required"))
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Realtime.Driver {
	case RealtimeLocal:
	case RealtimeAMQP:
		if c.Realtime.AMQPURL == "" {
			errs = append(errs, errors.New("realtime.amqp_url is required for the amqp driver"))
		}
		if c.Realtime.Exchange == "" {
			errs = append(errs, errors.New("realtime.exchange is required for the amqp driver"))
		}
	case RealtimePostgres:
		if c.Store.Driver != StorePostgres {
			errs = append(errs, errors.New("realtime.driver postgres requires store.driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown realtime.driver %q", c.Realtime.Driver))
	}

	if c.Media.Bucket != "" && (c.Media.AccessKey == "" || c.Media.SecretKey == "") {
		errs = append(errs, errors.New("media credentials are required when media.bucket is set"))
	}

	if c.Auction.TopBids <= 0 {
		errs = append(errs, errors.New("auction.top_bids must be positive"))
	}
	if c.Auction.MinDuration <= 0 || c.Auction.MaxDuration < c.Auction.MinDuration {
		errs = append(errs, errors.New("auction durations must satisfy 0 < min_duration <= max_duration"))
	}
	if !c.Auction.MinPrice.IsPositive() {
		errs = append(errs, errors.New("auction.min_price must be positive"))
	}

	return errors.Join(errs...)
}
