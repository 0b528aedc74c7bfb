// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/gogama/httpipe/internal/logger"
)

// Options holds the settings from which a client pipeline is built.
type Options struct {
	// Transport selects the transport: "http" for transport.HTTP or
	// "raw" for transport.Raw.
	Transport string `mapstructure:"transport"`
	// ChunkSize bounds each pull of a streamed body, e.g. "16KiB".
	ChunkSize string `mapstructure:"chunk_size"`
	// MaxBufferedBody bounds buffered response bodies, e.g. "64MB".
	// Empty or "0" means unbounded.
	MaxBufferedBody string `mapstructure:"max_buffered_body"`
	// DialTimeout bounds connection setup, e.g. "30s".
	DialTimeout string `mapstructure:"dial_timeout"`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base backoff delay.
	RetryDelay string `mapstructure:"retry_delay"`
	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay string `mapstructure:"max_retry_delay"`
	// AttemptTimeout bounds each attempt. Empty means no bound.
	AttemptTimeout string `mapstructure:"attempt_timeout"`
	// LogLevel is the zap level name.
	LogLevel string `mapstructure:"log_level"`
	// LogRequests adds a request logging policy.
	LogRequests bool `mapstructure:"log_requests"`
	// AllowedHeaders lists extra headers logged unredacted.
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	// Component and ApplicationID feed the User-Agent header.
	Component     string `mapstructure:"component"`
	ApplicationID string `mapstructure:"application_id"`
	// RateLimit is the sustained number of calls per second. Zero
	// disables rate limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the rate limiter's burst size.
	RateBurst int `mapstructure:"rate_burst"`
	// Tracing adds an OpenTelemetry span per attempt, using the global
	// tracer provider and propagator.
	Tracing bool `mapstructure:"tracing"`
	// RecordFile, when set, records every exchange to this YAML file.
	RecordFile string `mapstructure:"record_file"`
	// PlaybackFile, when set, replaces the network with the exchanges
	// recorded in this YAML file.
	PlaybackFile string `mapstructure:"playback_file"`

	// Fields below are derived by Validate.

	ParsedChunkSize       int
	ParsedMaxBufferedBody int64
	ParsedDialTimeout     time.Duration
	ParsedRetryDelay      time.Duration
	ParsedMaxRetryDelay   time.Duration
	ParsedAttemptTimeout  time.Duration
	ParsedLogLevel        zapcore.Level
}

const (
	// EnvPrefix prefixes the environment variables which override
	// file settings, e.g. HTTPIPE_MAX_RETRIES.
	EnvPrefix = "HTTPIPE"

	// TransportHTTP and TransportRaw are the valid Transport values.
	TransportHTTP = "http"
	TransportRaw  = "raw"
)

var (
	// ErrUnknownTransport indicates an unrecognised transport name.
	ErrUnknownTransport = errors.New("unknown transport")
	// ErrInvalidChunkSize indicates a chunk size that is not positive.
	ErrInvalidChunkSize = errors.New("chunk_size must be positive")
	// ErrInvalidDialTimeout indicates a dial timeout that is not positive.
	ErrInvalidDialTimeout = errors.New("dial_timeout must be positive")
	// ErrInvalidMaxRetries indicates a negative retry count.
	ErrInvalidMaxRetries = errors.New("max_retries cannot be negative")
	// ErrInvalidRetryDelay indicates a retry delay that is not positive.
	ErrInvalidRetryDelay = errors.New("retry_delay must be positive")
	// ErrMaxRetryDelayTooLow indicates max_retry_delay < retry_delay.
	ErrMaxRetryDelayTooLow = errors.New("max_retry_delay cannot be less than retry_delay")
	// ErrInvalidAttemptTimeout indicates an attempt timeout that is not positive.
	ErrInvalidAttemptTimeout = errors.New("attempt_timeout must be positive")
	// ErrUnknownLogLevel indicates that the log level is not recognised.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidRate indicates a negative rate limit or a burst below
	// one with rate limiting enabled.
	ErrInvalidRate = errors.New("rate_limit cannot be negative and rate_burst must be at least 1")
	// ErrRecordAndPlayback indicates both record_file and
	// playback_file are set.
	ErrRecordAndPlayback = errors.New("record_file and playback_file are mutually exclusive")
)

var defaults = map[string]interface{}{
	"transport":            TransportHTTP,
	"chunk_size":           "16KiB",
	"max_buffered_body":    "",
	"dial_timeout":         "30s",
	"insecure_skip_verify": false,
	"max_retries":          3,
	"retry_delay":          "800ms",
	"max_retry_delay":      "60s",
	"attempt_timeout":      "",
	"log_level":            "info",
	"log_requests":         false,
	"allowed_headers":      []string{},
	"component":            "pipectl",
	"application_id":       "",
	"rate_limit":           0.0,
	"rate_burst":           1,
	"tracing":              false,
	"record_file":          "",
	"playback_file":        "",
}

// Load reads Options from the named YAML file, if name is not empty,
// with HTTPIPE_* environment variables taking precedence. Unset keys
// take their default values.
func Load(name string) (*Options, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if name != "" {
		v.SetConfigFile(name)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config from file: %w", err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &opts, nil
}

// Validate checks o for validity and sets the derived fields.
func (o *Options) Validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Transport)) {
	case TransportHTTP, TransportRaw:
		o.Transport = strings.ToLower(strings.TrimSpace(o.Transport))
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownTransport, o.Transport)
	}

	chunkSize, err := humanize.ParseBytes(o.ChunkSize)
	if err != nil {
		return fmt.Errorf("failed to parse chunk size: %w", err)
	}
	if chunkSize == 0 || chunkSize > 1<<30 {
		return ErrInvalidChunkSize
	}
	o.ParsedChunkSize = int(chunkSize)

	o.ParsedMaxBufferedBody = 0
	if maxBody := strings.TrimSpace(o.MaxBufferedBody); maxBody != "" && maxBody != "0" {
		n, err := humanize.ParseBytes(maxBody)
		if err != nil {
			return fmt.Errorf("failed to parse max buffered body: %w", err)
		}
		if n > 1<<62 {
			n = 1 << 62
		}
		o.ParsedMaxBufferedBody = int64(n)
	}

	o.ParsedDialTimeout, err = time.ParseDuration(o.DialTimeout)
	if err != nil {
		return fmt.Errorf("failed to parse dial timeout: %w", err)
	}
	if o.ParsedDialTimeout <= 0 {
		return ErrInvalidDialTimeout
	}

	if o.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	o.ParsedRetryDelay, err = time.ParseDuration(o.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to parse retry delay: %w", err)
	}
	if o.ParsedRetryDelay <= 0 {
		return ErrInvalidRetryDelay
	}

	o.ParsedMaxRetryDelay, err = time.ParseDuration(o.MaxRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to parse max retry delay: %w", err)
	}
	if o.ParsedMaxRetryDelay < o.ParsedRetryDelay {
		return ErrMaxRetryDelayTooLow
	}

	o.ParsedAttemptTimeout = 0
	if o.AttemptTimeout != "" {
		o.ParsedAttemptTimeout, err = time.ParseDuration(o.AttemptTimeout)
		if err != nil {
			return fmt.Errorf("failed to parse attempt timeout: %w", err)
		}
		if o.ParsedAttemptTimeout <= 0 {
			return ErrInvalidAttemptTimeout
		}
	}

	lvl, ok := logger.ParseLogLevel(o.LogLevel)
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, o.LogLevel)
	}
	o.ParsedLogLevel = lvl

	if o.RateLimit < 0 || (o.RateLimit > 0 && o.RateBurst < 1) {
		return ErrInvalidRate
	}

	if o.RecordFile != "" && o.PlaybackFile != "" {
		return ErrRecordAndPlayback
	}

	return nil
}
