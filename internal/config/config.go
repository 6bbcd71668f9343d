// Package config loads server settings from an optional YAML file and SAKHATYPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "SAKHATYPE_"

// Store modes.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the server.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	GRPC        GRPCConfig        `yaml:"grpc"`
	Store       string            `yaml:"store"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Limiter     LimiterConfig     `yaml:"limiter"`
	Redis       RedisConfig       `yaml:"redis"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Log         LogConfig         `yaml:"log"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// GRPCConfig configures the health endpoint. An empty Addr disables it.
type GRPCConfig struct {
	Addr          string        `yaml:"addr"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	TLSCert       string        `yaml:"tls_cert"`
	TLSKey        string        `yaml:"tls_key"`
	Reflection    bool          `yaml:"reflection"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
	// Migrate applies pending migrations before serving.
	Migrate bool `yaml:"migrate"`
}

type AuthConfig struct {
	JWTKey    string        `yaml:"jwt_key"`
	AccessTTL time.Duration `yaml:"access_ttl"`
}

type LimiterConfig struct {
	Window   time.Duration `yaml:"window"`
	MaxFails int           `yaml:"max_fails"`
	BlockFor time.Duration `yaml:"block_for"`
}

// RedisConfig configures the leaderboard cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LeaderboardConfig struct {
	DefaultLimit int   `yaml:"default_limit"`
	HistoryLimit int   `yaml:"history_limit"`
	WordsLimit   int   `yaml:"words_limit"`
	TimeModes    []int `yaml:"time_modes"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:           ":8001",
			RequestTimeout: 30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		GRPC: GRPCConfig{
			Addr:          ":8002",
			ProbeInterval: 10 * time.Second,
		},
		Store:    StorePostgres,
		Database: DatabaseConfig{Migrate: true},
		Auth:     AuthConfig{AccessTTL: 30 * time.Minute},
		Limiter: LimiterConfig{
			Window:   15 * time.Minute,
			MaxFails: 5,
			BlockFor: 15 * time.Minute,
		},
		Redis: RedisConfig{TTL: 15 * time.Second},
		Leaderboard: LeaderboardConfig{
			DefaultLimit: 100,
			HistoryLimit: 50,
			WordsLimit:   100,
			TimeModes:    []int{15, 30, 60, 120},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if not empty) over the defaults, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var errList []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errList = append(errList, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errList = append(errList, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errList = append(errList, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	dur("HTTP_REQUEST_TIMEOUT", &c.HTTP.RequestTimeout)
	if v, ok := lookup("HTTP_ALLOWED_ORIGINS"); ok {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	str("GRPC_ADDR", &c.GRPC.Addr)
	dur("GRPC_PROBE_INTERVAL", &c.GRPC.ProbeInterval)
	str("GRPC_TLS_CERT", &c.GRPC.TLSCert)
	str("GRPC_TLS_KEY", &c.GRPC.TLSKey)
	flag("GRPC_REFLECTION", &c.GRPC.Reflection)
	str("STORE", &c.Store)
	str("DATABASE_DSN", &c.Database.DSN)
	flag("DATABASE_MIGRATE", &c.Database.Migrate)
	str("AUTH_JWT_KEY", &c.Auth.JWTKey)
	dur("AUTH_ACCESS_TTL", &c.Auth.AccessTTL)
	dur("LIMITER_WINDOW", &c.Limiter.Window)
	num("LIMITER_MAX_FAILS", &c.Limiter.MaxFails)
	dur("LIMITER_BLOCK_FOR", &c.Limiter.BlockFor)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	dur("REDIS_TTL", &c.Redis.TTL)
	num("LEADERBOARD_DEFAULT_LIMIT", &c.Leaderboard.DefaultLimit)
	num("LEADERBOARD_HISTORY_LIMIT", &c.Leaderboard.HistoryLimit)
	num("LEADERBOARD_WORDS_LIMIT", &c.Leaderboard.WordsLimit)
	if v, ok := lookup("LEADERBOARD_TIME_MODES"); ok {
		modes := []int{}
		for _, s := range splitList(v) {
			n, err := strconv.Atoi(s)
			if err != nil {
				errList = append(errList, fmt.Errorf("%sLEADERBOARD_TIME_MODES: %w", envPrefix, err))
				break
			}
			modes = append(modes, n)
		}
		c.Leaderboard.TimeModes = modes
	}
	str("LOG_LEVEL", &c.Log.Level)
	flag("LOG_DEVELOPMENT", &c.Log.Development)

	return errors.Join(errList...)
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	var errList []error
	if c.Auth.JWTKey == "" {
		errList = append(errList, errors.New("auth.jwt_key is required"))
	}
	if c.Auth.AccessTTL <= 0 {
		errList = append(errList, errors.New("auth.access_ttl must be positive"))
	}
	switch c.Store {
	case StorePostgres:
		if c.Database.DSN == "" {
			errList = append(errList, errors.New("database.dsn is required for postgres store"))
		}
	case StoreMemory:
	default:
		errList = append(errList, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.HTTP.Addr == "" {
		errList = append(errList, errors.New("http.addr is required"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errList = append(errList, errors.New("http.request_timeout must be positive"))
	}
	if c.GRPC.Addr != "" && c.GRPC.ProbeInterval <= 0 {
		errList = append(errList, errors.New("grpc.probe_interval must be positive"))
	}
	if (c.GRPC.TLSCert == "") != (c.GRPC.TLSKey == "") {
		errList = append(errList, errors.New("grpc.tls_cert and grpc.tls_key go together"))
	}
	if c.Limiter.MaxFails <= 0 || c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0 {
		errList = append(errList, errors.New("limiter settings must be positive"))
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		errList = append(errList, errors.New("redis.ttl must be positive"))
	}
	lb := c.Leaderboard
	if lb.DefaultLimit <= 0 || lb.HistoryLimit <= 0 || lb.WordsLimit <= 0 {
		errList = append(errList, errors.New("leaderboard limits must be positive"))
	}
	if len(lb.TimeModes) == 0 {
		errList = append(errList, errors.New("leaderboard.time_modes must not be empty"))
	}
	for _, m := range lb.TimeModes {
		if m <= 0 {
			errList = append(errList, fmt.Errorf("invalid time mode %d", m))
		}
	}
	return errors.Join(errList...)
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(envPrefix + key)
}

func splitList(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
