// Package config reads the adapter's settings from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Registry configures the case-management registry client.
type Registry struct {
	BaseURL          string
	Token            string
	MunicipalityCode string
	Timeout          time.Duration
	// ClientCertPEM and ClientKeyPEM enable mutual TLS when both are set.
	ClientCertPEM []byte
	ClientKeyPEM  []byte
	MaxEndDate    string
	Regulation    string
}

// Assertion configures verification of the inbound identity assertion.
type Assertion struct {
	PublicKeyPEM    []byte
	HMACSecret      []byte
	VerifySignature bool
	Issuer          string
	Audience        string
	Leeway          time.Duration
}

type Documents struct {
	Enabled bool
	// EncryptionKey is the base64 key used to obfuscate document ids.
	EncryptionKey string
	RulesFile     string
}

// RedisConfig enables the shared revocation list. Empty URL means in-process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimit caps requests per citizen. Requests <= 0 disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Audit selects where audit events go.
type Audit struct {
	Store        string // memory, postgres or kafka
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string
	BufferSize   int
}

type Config struct {
	Server    Server
	Log       Log
	Registry  Registry
	Assertion Assertion
	Documents Documents
	Redis     RedisConfig
	RateLimit RateLimit
	Audit     Audit
}

const (
	AuditStoreMemory   = "memory"
	AuditStorePostgres = "postgres"
	AuditStoreKafka    = "kafka"
)

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		Server: Server{
			Addr:            getenv("WMONED_ADDR", ":8000"),
			ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 10*time.Second, collect),
		},
		Log: Log{
			Level:  strings.ToLower(getenv("LOG_LEVEL", "error")),
			Format: strings.ToLower(getenv("LOG_FORMAT", "json")),
		},
		Registry: Registry{
			BaseURL:          os.Getenv("ZORGNED_API_URL"),
			Token:            getenv("ZORGNED_API_TOKEN", os.Getenv("WMO_NED_API_TOKEN")),
			MunicipalityCode: getenv("ZORGNED_GEMEENTE_CODE", "0363"),
			Timeout:          duration("ZORGNED_API_TIMEOUT", 30*time.Second, collect),
			MaxEndDate:       getenv("DATE_END_NOT_OLDER_THAN", "2018-01-01"),
			Regulation:       getenv("REGELING_IDENTIFICATIE", "wmo"),
		},
		Assertion: Assertion{
			HMACSecret:      []byte(os.Getenv("ASSERTION_HMAC_SECRET")),
			VerifySignature: boolean("VERIFY_JWT_SIGNATURE", true, collect),
			Issuer:          os.Getenv("ASSERTION_ISSUER"),
			Audience:        os.Getenv("ASSERTION_AUDIENCE"),
			Leeway:          duration("ASSERTION_LEEWAY", 30*time.Second, collect),
		},
		Documents: Documents{
			Enabled:       boolean("ZORGNED_DOCUMENT_ATTACHMENTS_ACTIVE", false, collect),
			EncryptionKey: os.Getenv("DOCUMENT_ID_ENCRYPTION_KEY"),
			RulesFile:     os.Getenv("RULES_FILE"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10, collect),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2, collect),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second, collect),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second, collect),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second, collect),
		},
		RateLimit: RateLimit{
			Requests: integer("RATE_LIMIT_REQUESTS", 60, collect),
			Window:   duration("RATE_LIMIT_WINDOW", time.Minute, collect),
		},
		Audit: Audit{
			Store:        strings.ToLower(getenv("AUDIT_STORE", AuditStoreMemory)),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			KafkaBrokers: list(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:   getenv("AUDIT_TOPIC", "wmoned.audit"),
			BufferSize:   integer("AUDIT_BUFFER_SIZE", 256, collect),
		},
	}

	var err error
	cfg.Registry.ClientCertPEM, err = pemSource("MIJN_DATA_CLIENT_CERT")
	collect(err)
	cfg.Registry.ClientKeyPEM, err = pemSource("MIJN_DATA_CLIENT_KEY")
	collect(err)
	cfg.Assertion.PublicKeyPEM, err = pemSource("TMA_CERTIFICATE")
	collect(err)

	collect(cfg.validate())
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Registry.BaseURL == "" {
		errs = append(errs, errors.New("ZORGNED_API_URL is required"))
	}
	if c.Registry.Token == "" {
		errs = append(errs, errors.New("ZORGNED_API_TOKEN is required"))
	}
	if (len(c.Registry.ClientCertPEM) == 0) != (len(c.Registry.ClientKeyPEM) == 0) {
		errs = append(errs, errors.New("MIJN_DATA_CLIENT_CERT and MIJN_DATA_CLIENT_KEY must be set together"))
	}
	if c.Assertion.VerifySignature && len(c.Assertion.PublicKeyPEM) == 0 && len(c.Assertion.HMACSecret) == 0 {
		errs = append(errs, errors.New("VERIFY_JWT_SIGNATURE needs TMA_CERTIFICATE or ASSERTION_HMAC_SECRET"))
	}
	if c.Documents.Enabled && c.Documents.EncryptionKey == "" {
		errs = append(errs, errors.New("DOCUMENT_ID_ENCRYPTION_KEY is required when documents are enabled"))
	}
	switch c.Audit.Store {
	case AuditStoreMemory:
	case AuditStorePostgres:
		if c.Audit.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres audit store"))
		}
	case AuditStoreKafka:
		if len(c.Audit.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka audit store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUDIT_STORE %q", c.Audit.Store))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration, collect func(error)) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		collect(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func boolean(key string, fallback bool, collect func(error)) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		collect(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func integer(key string, fallback int, collect func(error)) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		collect(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func list(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pemSource reads a PEM value that is either inline, base64 encoded, or a
// path to a file.
func pemSource(key string) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "-----BEGIN") {
		return []byte(v), nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil && strings.Contains(string(decoded), "-----BEGIN") {
		return decoded, nil
	}
	data, err := os.ReadFile(filepath.Clean(v)) // #nosec G304 - path comes from deployment config
	if err != nil {
		return nil, fmt.Errorf("%s: not PEM, base64 PEM or a readable file: %w", key, err)
	}
	return data, nil
}

// Sink configures the audit sink that copies events from Kafka to Postgres.
type Sink struct {
	Log           Log
	KafkaBrokers  []string
	KafkaTopic    string
	ConsumerGroup string
	DatabaseURL   string
	MetricsAddr   string
}

// SinkFromEnv builds the audit sink configuration.
func SinkFromEnv() (Sink, error) {
	cfg := Sink{
		Log: Log{
			Level:  strings.ToLower(getenv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getenv("LOG_FORMAT", "json")),
		},
		KafkaBrokers:  list(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getenv("AUDIT_TOPIC", "wmoned.audit"),
		ConsumerGroup: getenv("AUDIT_CONSUMER_GROUP", "wmoned-audit-sink"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MetricsAddr:   getenv("METRICS_ADDR", ":9090"),
	}
	var errs []error
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(errs) > 0 {
		return Sink{}, errors.Join(errs...)
	}
	return cfg, nil
}
