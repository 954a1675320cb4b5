// Package config loads certledger settings: defaults, then an optional YAML
// file (SOPS-encrypted files are decrypted first), then CERTLEDGER_*
// environment variables. Command-line flags are applied by the caller last.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/getsops/sops/v3/decrypt"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. CERTLEDGER_SERVER_ADDR.
const EnvPrefix = "certledger"

const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendEVM      = "evm"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendKafka    = "kafka"
)

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"    envconfig:"server"`
	Log       LogConfig       `yaml:"log"       envconfig:"log"`
	Ledger    LedgerConfig    `yaml:"ledger"    envconfig:"ledger"`
	Content   ContentConfig   `yaml:"content"   envconfig:"content"`
	Index     IndexConfig     `yaml:"index"     envconfig:"index"`
	Redis     RedisConfig     `yaml:"redis"     envconfig:"redis"`
	Reconcile ReconcileConfig `yaml:"reconcile" envconfig:"reconcile"`
	Audit     AuditConfig     `yaml:"audit"     envconfig:"audit"`
	Issuance  IssuanceConfig  `yaml:"issuance"  envconfig:"issuance"`
	Legacy    LegacyConfig    `yaml:"legacy"    envconfig:"legacy"`
	Tracing   TracingConfig   `yaml:"tracing"   envconfig:"tracing"`
	Auth      AuthConfig      `yaml:"auth"      envconfig:"auth"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"            envconfig:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"     envconfig:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"    envconfig:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"  envconfig:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"  envconfig:"level"`
	Format string `yaml:"format" envconfig:"format"`
}

// LedgerConfig selects the authoritative ledger backend.
type LedgerConfig struct {
	Backend        string        `yaml:"backend"        envconfig:"backend"`
	DataDir        string        `yaml:"dataDir"        envconfig:"data_dir"`
	RPCURL         string        `yaml:"rpcUrl"         envconfig:"rpc_url"`
	Contract       string        `yaml:"contract"       envconfig:"contract"`
	PrivateKey     string        `yaml:"privateKey"     envconfig:"private_key"`
	ConfirmTimeout time.Duration `yaml:"confirmTimeout" envconfig:"confirm_timeout"`
}

// ContentConfig selects the content-addressed store.
type ContentConfig struct {
	Backend         string        `yaml:"backend"         envconfig:"backend"`
	DataDir         string        `yaml:"dataDir"         envconfig:"data_dir"`
	Gateway         string        `yaml:"gateway"         envconfig:"gateway"`
	Bucket          string        `yaml:"bucket"          envconfig:"bucket"`
	ObjectPrefix    string        `yaml:"objectPrefix"    envconfig:"object_prefix"`
	CredentialsFile string        `yaml:"credentialsFile" envconfig:"credentials_file"`
	CacheTTL        time.Duration `yaml:"cacheTtl"        envconfig:"cache_ttl"`
}

// IndexConfig selects the relational index.
type IndexConfig struct {
	Backend  string `yaml:"backend"  envconfig:"backend"`
	DSN      string `yaml:"dsn"      envconfig:"dsn"`
	DataDir  string `yaml:"dataDir"  envconfig:"data_dir"`
	MaxConns int32  `yaml:"maxConns" envconfig:"max_conns"`
}

// RedisConfig enables the content cache when URL is set.
type RedisConfig struct {
	URL          string        `yaml:"url"          envconfig:"url"`
	PoolSize     int           `yaml:"poolSize"     envconfig:"pool_size"`
	MinIdleConns int           `yaml:"minIdleConns" envconfig:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dialTimeout"  envconfig:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  envconfig:"read_timeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"write_timeout"`
}

// ReconcileConfig selects the queue carrying failed index writes.
type ReconcileConfig struct {
	Backend       string   `yaml:"backend"       envconfig:"backend"`
	QueueSize     int      `yaml:"queueSize"     envconfig:"queue_size"`
	Brokers       []string `yaml:"brokers"       envconfig:"brokers"`
	Topic         string   `yaml:"topic"         envconfig:"topic"`
	ConsumerGroup string   `yaml:"consumerGroup" envconfig:"consumer_group"`
	Partitions    int32    `yaml:"partitions"    envconfig:"partitions"`
	Replication   int16    `yaml:"replication"   envconfig:"replication"`
}

// AuditConfig tunes the verification log recorder.
type AuditConfig struct {
	QueueSize        int           `yaml:"queueSize"        envconfig:"queue_size"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"     envconfig:"write_timeout"`
	FailureThreshold int           `yaml:"failureThreshold" envconfig:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"         envconfig:"cooldown"`
}

type IssuanceConfig struct {
	UploadConcurrency int `yaml:"uploadConcurrency" envconfig:"upload_concurrency"`
	MaxBatchSize      int `yaml:"maxBatchSize"      envconfig:"max_batch_size"`
	LandedScanDepth   int `yaml:"landedScanDepth"   envconfig:"landed_scan_depth"`
}

// LegacyConfig points at an optional OCR service. Without one only text
// documents can be verified.
type LegacyConfig struct {
	OCREndpoint      string        `yaml:"ocrEndpoint"      envconfig:"ocr_endpoint"`
	OCRTimeout       time.Duration `yaml:"ocrTimeout"       envconfig:"ocr_timeout"`
	StrictExtraction bool          `yaml:"strictExtraction" envconfig:"strict_extraction"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"  envconfig:"enabled"`
	Stdout   bool   `yaml:"stdout"   envconfig:"stdout"`
	Endpoint string `yaml:"endpoint" envconfig:"endpoint"`
}

// AuthConfig configures principal resolution.
type AuthConfig struct {
	JWTSigningKey     string `yaml:"jwtSigningKey"     envconfig:"jwt_signing_key"`
	JWTIssuer         string `yaml:"jwtIssuer"         envconfig:"jwt_issuer"`
	JWTAudience       string `yaml:"jwtAudience"       envconfig:"jwt_audience"`
	AllowWalletHeader bool   `yaml:"allowWalletHeader" envconfig:"allow_wallet_header"`
}

// Default returns a configuration that runs entirely in memory.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Ledger:  LedgerConfig{Backend: BackendMemory, ConfirmTimeout: 2 * time.Minute},
		Content: ContentConfig{Backend: BackendMemory, Gateway: "https://gateway.pinata.cloud", CacheTTL: 24 * time.Hour},
		Index:   IndexConfig{Backend: BackendMemory, MaxConns: 10},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Backend:       BackendMemory,
			QueueSize:     1024,
			Topic:         "certledger.reconcile",
			ConsumerGroup: "certledger-reconciler",
			Partitions:    3,
			Replication:   1,
		},
		Audit: AuditConfig{
			QueueSize:        256,
			WriteTimeout:     5 * time.Second,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		Issuance: IssuanceConfig{UploadConcurrency: 4, MaxBatchSize: 50, LandedScanDepth: 256},
		Legacy:   LegacyConfig{OCRTimeout: 2 * time.Minute},
		Auth:     AuthConfig{JWTIssuer: "certledger", JWTAudience: "certledger"},
	}
}

// Load reads path (when non-empty) over the defaults and then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if isEncrypted(buf) {
			buf, err = decrypt.Data(buf, "yaml")
			if err != nil {
				return Config{}, fmt.Errorf("error decrypting config file: %w", err)
			}
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// isEncrypted reports whether buf is a SOPS document.
func isEncrypted(buf []byte) bool {
	var probe struct {
		Sops map[string]any `yaml:"sops"`
	}
	if err := yaml.NewDecoder(bytes.NewReader(buf)).Decode(&probe); err != nil {
		return false
	}
	return probe.Sops != nil
}

// Validate checks backend names and the settings each backend needs.
func (c Config) Validate() error {
	var errs []error
	switch c.Ledger.Backend {
	case BackendMemory, BackendBadger:
	case BackendEVM:
		if c.Ledger.RPCURL == "" || c.Ledger.Contract == "" || c.Ledger.PrivateKey == "" {
			errs = append(errs, errors.New("ledger: evm backend requires rpcUrl, contract and privateKey"))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger: unknown backend %q", c.Ledger.Backend))
	}
	switch c.Content.Backend {
	case BackendMemory, BackendBadger:
	case BackendGCS:
		if c.Content.Bucket == "" {
			errs = append(errs, errors.New("content: gcs backend requires bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("content: unknown backend %q", c.Content.Backend))
	}
	switch c.Index.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Index.DSN == "" {
			errs = append(errs, errors.New("index: postgres backend requires dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("index: unknown backend %q", c.Index.Backend))
	}
	switch c.Reconcile.Backend {
	case BackendMemory:
	case BackendKafka:
		if len(c.Reconcile.Brokers) == 0 {
			errs = append(errs, errors.New("reconcile: kafka backend requires brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("reconcile: unknown backend %q", c.Reconcile.Backend))
	}
	if c.Issuance.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("issuance: maxBatchSize must be positive"))
	}
	return errors.Join(errs...)
}

type contextKey struct{}

// WithContext stores cfg on ctx for cobra subcommands.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration stored by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}
