// Package config loads the stratifier's YAML configuration tree, grounded
// on Viddhanaa-pool/apps/stratum/internal/config/config.go's
// load-then-apply-defaults-then-validate shape, reworked around this
// component's own sections (mode, generator/ckdb/connector IPC endpoints,
// difficulty bounds) instead of that teacher's node-RPC/TLS/metrics ones.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how the Template Manager and Coinbase Builder behave
// (spec.md §1, §4.1, §4.2).
type Mode string

const (
	ModeServer Mode = "server" // full node feeding getbase/getnotify/getdiff
	ModeProxy  Mode = "proxy"  // upstream pool feeding notify/subscribe
	ModeSolo   Mode = "solo"   // server mode with per-user coinbases
)

// Config is the complete stratifier configuration tree.
type Config struct {
	Pool      PoolConfig      `yaml:"pool"`
	Generator EndpointConfig  `yaml:"generator"`
	Connector EndpointConfig  `yaml:"connector"`
	Ckdb      CkdbConfig      `yaml:"ckdb"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// PoolConfig holds the mode and mining-domain settings spec.md §4.1/§4.4/
// §4.2 name directly.
type PoolConfig struct {
	Mode             Mode          `yaml:"mode"`
	LogDir           string        `yaml:"log_dir"`
	UpdateInterval   time.Duration `yaml:"update_interval"`
	BlockPoll        time.Duration `yaml:"block_poll"`
	PoolMinDiff      float64       `yaml:"pool_min_diff"`
	MaxDiff          float64       `yaml:"max_diff"` // ckp.maxdiff; 0 = unconfigured
	PoolAddress      string        `yaml:"pool_address"`     // ckp.btcaddress; generation output
	DonationAddress  string        `yaml:"donation_address"`
	CoinbaseSignature string       `yaml:"coinbase_signature"`
	Enonce1ConstHex  string        `yaml:"enonce1_const_hex"` // per-instance extranonce1 prefix; empty in a single-instance deployment
}

// EndpointConfig names a Unix-domain socket path for one of the
// stratifier's IPC collaborators (spec.md §6: generator and connector
// command sockets).
type EndpointConfig struct {
	SocketPath string        `yaml:"socket_path"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// CkdbConfig controls the database sink's append-only file stream and
// optional Redis mirror (spec.md §6, §1).
type CkdbConfig struct {
	Name        string `yaml:"name"` // rotating-file basename (spec.md §6)
	MirrorRedis bool   `yaml:"mirror_redis"`
}

// DatabaseConfig is the Postgres connection the registry's database-mode
// auth backend dials (spec.md §4.3).
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig backs the ckdb mirror (spec.md's AMBIENT/DOMAIN stack).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LoggingConfig controls the zap logger construction.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig controls the Prometheus exporter's HTTP listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads path, expands environment variables, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Pool.Mode == "" {
		cfg.Pool.Mode = ModeServer
	}
	if cfg.Pool.LogDir == "" {
		cfg.Pool.LogDir = "/var/log/ckpool/"
	}
	if cfg.Pool.UpdateInterval == 0 {
		cfg.Pool.UpdateInterval = 30 * time.Second
	}
	if cfg.Pool.BlockPoll == 0 {
		cfg.Pool.BlockPoll = 500 * time.Millisecond
	}
	if cfg.Pool.PoolMinDiff == 0 {
		cfg.Pool.PoolMinDiff = 1
	}
	if cfg.Generator.DialTimeout == 0 {
		cfg.Generator.DialTimeout = 5 * time.Second
	}
	if cfg.Connector.DialTimeout == 0 {
		cfg.Connector.DialTimeout = 5 * time.Second
	}
	if cfg.Ckdb.Name == "" {
		cfg.Ckdb.Name = "ckdb"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "ckpool:"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}

func validate(cfg *Config) error {
	switch cfg.Pool.Mode {
	case ModeServer, ModeProxy, ModeSolo:
	default:
		return fmt.Errorf("pool.mode %q must be one of server, proxy, solo", cfg.Pool.Mode)
	}
	if cfg.Pool.PoolMinDiff <= 0 {
		return fmt.Errorf("pool.pool_min_diff must be positive")
	}
	if cfg.Pool.PoolAddress == "" {
		return fmt.Errorf("pool.pool_address is required")
	}
	if cfg.Generator.SocketPath == "" {
		return fmt.Errorf("generator.socket_path is required")
	}
	if cfg.Connector.SocketPath == "" {
		return fmt.Errorf("connector.socket_path is required")
	}
	return nil
}
