// Package config holds the configuration shared by the trigger binaries.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogLevel             = "info"
	defaultListenAddr           = ":8080"
	defaultBodyLimit            = 512 << 20
	defaultRequestTimeout       = 2 * time.Minute
	defaultMaxInFlight          = 4
	defaultAdmissionWait        = 5 * time.Second
	defaultKeyCacheSize         = 8
	defaultStorageMB            = 4096
	defaultQueueName            = "evaluations"
	defaultJobTTL               = 24 * time.Hour
	defaultJobWorkers           = 2
	defaultBoundaryRetryTimeout = 10 * time.Second
)

var errInvalidConfig = errors.New("invalid configuration")

// Config is the union of every binary's settings. Each binary reads the
// fields it needs.
type Config struct {
	LogLevel       string        `mapstructure:"log-level" json:"log-level"`
	ListenAddr     string        `mapstructure:"listen-addr" json:"listen-addr"`
	BodyLimit      int64         `mapstructure:"body-limit" json:"body-limit"`
	RequestTimeout time.Duration `mapstructure:"request-timeout" json:"request-timeout"`
	CORSOrigins    []string      `mapstructure:"cors-origins" json:"cors-origins"`

	MaxInFlight   int           `mapstructure:"max-inflight" json:"max-inflight"`
	AdmissionWait time.Duration `mapstructure:"admission-wait" json:"admission-wait"`
	Workers       int           `mapstructure:"workers" json:"workers"`
	KeyCacheSize  int           `mapstructure:"key-cache-size" json:"key-cache-size"`

	// StorageDir selects file storage; empty keeps keys in memory, capped
	// at StorageMB.
	StorageDir  string        `mapstructure:"storage-dir" json:"storage-dir"`
	StorageMB   int64         `mapstructure:"storage-mb" json:"storage-mb"`
	RedisURL    string        `mapstructure:"redis-url" json:"redis-url"`
	QueueName   string        `mapstructure:"queue-name" json:"queue-name"`
	JobTTL      time.Duration `mapstructure:"job-ttl" json:"job-ttl"`
	JobWorkers  int           `mapstructure:"job-workers" json:"job-workers"`
	DatabaseURL string        `mapstructure:"database-url" json:"database-url"`

	BoundaryURL          string        `mapstructure:"boundary-url" json:"boundary-url"`
	BoundaryRetryTimeout time.Duration `mapstructure:"boundary-retry-timeout" json:"boundary-retry-timeout"`
	BoundaryKeyFile      string        `mapstructure:"boundary-key-file" json:"boundary-key-file"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %s: %v", errInvalidConfig, LogLevelKey, err)
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", errInvalidConfig, MaxInFlightKey, c.MaxInFlight)
	}
	if c.AdmissionWait < 0 {
		return fmt.Errorf("%w: %s must not be negative", errInvalidConfig, AdmissionWaitKey)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: %s must not be negative", errInvalidConfig, WorkersKey)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("%w: %s must be positive", errInvalidConfig, BodyLimitKey)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", errInvalidConfig, RequestTimeoutKey)
	}
	if c.JobWorkers < 0 {
		return fmt.Errorf("%w: %s must not be negative", errInvalidConfig, JobWorkersKey)
	}
	if c.BoundaryURL != "" {
		u, err := url.Parse(c.BoundaryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s %q is not an http(s) url", errInvalidConfig, BoundaryURLKey, c.BoundaryURL)
		}
	}
	return nil
}

// Logger builds a production JSON logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
