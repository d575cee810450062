// Package config loads and validates the engine's runtime configuration
// from environment variables, mirroring pkg/consumer's Config/Validate pattern.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable named in the environment-variable contract.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	KafkaBootstrapServers []string
	KafkaTopicPrefix      string
	KafkaConsumerGroup    string
	RequestTopics         []string
	DLQTopic              string

	ProcessingConcurrency int
	MaxPollRecords        int
	MaxRetryAttempts      int
	RetryBackoffBase      time.Duration
	RetryBackoffMax       time.Duration

	CircuitBreakerThreshold         int
	CircuitBreakerTimeout           time.Duration
	CircuitBreakerSuccessThreshold  int
	CircuitBreakerExcludeTimeouts   bool

	HandlerTimeout time.Duration
	RetryMode      string

	AnalyzerURL             string
	AnalyzerTimeout         time.Duration
	EmbedderURL             string
	EmbedderMaxConcurrent   int

	CacheMaxSize     int
	CacheTTLSeconds  time.Duration

	ShutdownTimeout time.Duration
	HealthCheckPort int

	LogLevel  string
	LogFormat string
}

// Default returns a Config populated with the defaults documented in §6 of
// the engine's external-interface contract.
func Default() Config {
	return Config{
		ServiceName:                    "intelligence-engine",
		ServiceVersion:                 "dev",
		Environment:                    "development",
		KafkaTopicPrefix:               "dev.archon-intelligence",
		KafkaConsumerGroup:             "intelligence-engine",
		ProcessingConcurrency:          5,
		MaxPollRecords:                 10,
		MaxRetryAttempts:               3,
		RetryBackoffBase:               2 * time.Second,
		RetryBackoffMax:                60 * time.Second,
		CircuitBreakerThreshold:        5,
		CircuitBreakerTimeout:          60 * time.Second,
		CircuitBreakerSuccessThreshold: 1,
		CircuitBreakerExcludeTimeouts:  true,
		HandlerTimeout:                 30 * time.Second,
		RetryMode:                      "republish",
		AnalyzerTimeout:                10 * time.Second,
		EmbedderMaxConcurrent:          4,
		CacheMaxSize:                   10_000,
		CacheTTLSeconds:                5 * time.Minute,
		ShutdownTimeout:                30 * time.Second,
		HealthCheckPort:                8080,
		LogLevel:                       "info",
		LogFormat:                      "json",
	}
}

// FromEnv overlays environment variables onto the defaults. Unset variables
// keep the default value.
func FromEnv() Config {
	c := Default()

	if v, ok := os.LookupEnv("KAFKA_BOOTSTRAP_SERVERS"); ok {
		c.KafkaBootstrapServers = splitCSV(v)
	}
	if v, ok := os.LookupEnv("KAFKA_TOPIC_PREFIX"); ok {
		c.KafkaTopicPrefix = v
	}
	if v, ok := os.LookupEnv("KAFKA_CONSUMER_GROUP"); ok {
		c.KafkaConsumerGroup = v
	}
	if v, ok := os.LookupEnv("KAFKA_REQUEST_TOPICS"); ok {
		c.RequestTopics = splitCSV(v)
	}
	if v, ok := os.LookupEnv("KAFKA_DLQ_TOPIC"); ok {
		c.DLQTopic = v
	}

	intFromEnv("PROCESSING_CONCURRENCY", &c.ProcessingConcurrency)
	intFromEnv("MAX_POLL_RECORDS", &c.MaxPollRecords)
	intFromEnv("MAX_RETRY_ATTEMPTS", &c.MaxRetryAttempts)
	durationFromEnvSeconds("RETRY_BACKOFF_BASE", &c.RetryBackoffBase)
	durationFromEnvSeconds("RETRY_BACKOFF_MAX", &c.RetryBackoffMax)
	intFromEnv("CIRCUIT_BREAKER_THRESHOLD", &c.CircuitBreakerThreshold)
	durationFromEnvSeconds("CIRCUIT_BREAKER_TIMEOUT", &c.CircuitBreakerTimeout)
	intFromEnv("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", &c.CircuitBreakerSuccessThreshold)
	if v, ok := os.LookupEnv("CIRCUIT_BREAKER_EXCLUDE_TIMEOUTS"); ok {
		c.CircuitBreakerExcludeTimeouts = v != "false"
	}

	durationFromEnvSeconds("HANDLER_TIMEOUT_SECONDS", &c.HandlerTimeout)
	if v, ok := os.LookupEnv("RETRY_MODE"); ok {
		c.RetryMode = v
	}

	if v, ok := os.LookupEnv("ANALYZER_URL"); ok {
		c.AnalyzerURL = v
	}
	durationFromEnvSeconds("ANALYZER_TIMEOUT", &c.AnalyzerTimeout)
	if v, ok := os.LookupEnv("EMBEDDER_URL"); ok {
		c.EmbedderURL = v
	}
	intFromEnv("EMBEDDER_MAX_CONCURRENT", &c.EmbedderMaxConcurrent)

	intFromEnv("CACHE_MAX_SIZE", &c.CacheMaxSize)
	durationFromEnvSeconds("CACHE_TTL_SECONDS", &c.CacheTTLSeconds)
	durationFromEnvSeconds("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	intFromEnv("HEALTH_CHECK_PORT", &c.HealthCheckPort)

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok {
		c.LogFormat = v
	}

	return c
}

// Validate checks required fields and bounds, returning all violations
// joined together so callers see the whole picture in one error.
func (c Config) Validate() error {
	var errs []error

	if c.ServiceName == "" {
		errs = append(errs, errors.New("ServiceName is required"))
	}
	if len(c.KafkaBootstrapServers) == 0 {
		errs = append(errs, errors.New("KafkaBootstrapServers is required"))
	}
	if c.KafkaConsumerGroup == "" {
		errs = append(errs, errors.New("KafkaConsumerGroup is required"))
	}
	if len(c.RequestTopics) == 0 {
		errs = append(errs, errors.New("RequestTopics must contain at least one topic"))
	}
	if c.DLQTopic == "" {
		errs = append(errs, errors.New("KafkaDLQTopic is required"))
	}
	if c.ProcessingConcurrency <= 0 {
		errs = append(errs, errors.New("ProcessingConcurrency must be greater than 0"))
	}
	if c.MaxPollRecords <= 0 {
		errs = append(errs, errors.New("MaxPollRecords must be greater than 0"))
	}
	if c.MaxRetryAttempts < 0 {
		errs = append(errs, errors.New("MaxRetryAttempts must be greater than or equal to 0"))
	}
	if c.RetryBackoffBase <= 0 {
		errs = append(errs, errors.New("RetryBackoffBase must be greater than 0"))
	}
	if c.RetryBackoffMax < c.RetryBackoffBase {
		errs = append(errs, errors.New("RetryBackoffMax must be greater than or equal to RetryBackoffBase"))
	}
	if c.CircuitBreakerThreshold <= 0 {
		errs = append(errs, errors.New("CircuitBreakerThreshold must be greater than 0"))
	}
	if c.CircuitBreakerTimeout <= 0 {
		errs = append(errs, errors.New("CircuitBreakerTimeout must be greater than 0"))
	}
	if c.HandlerTimeout <= 0 {
		errs = append(errs, errors.New("HandlerTimeout must be greater than 0"))
	}
	if c.RetryMode != "republish" && c.RetryMode != "inprocess" {
		errs = append(errs, errors.New("RetryMode must be one of: republish, inprocess"))
	}
	if c.AnalyzerURL == "" {
		errs = append(errs, errors.New("AnalyzerURL is required"))
	}
	if c.AnalyzerTimeout <= 0 {
		errs = append(errs, errors.New("AnalyzerTimeout must be greater than 0"))
	}
	if c.EmbedderMaxConcurrent <= 0 {
		errs = append(errs, errors.New("EmbedderMaxConcurrent must be greater than 0"))
	}
	if c.CacheMaxSize <= 0 {
		errs = append(errs, errors.New("CacheMaxSize must be greater than 0"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("ShutdownTimeout must be greater than 0"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Topic builds a fully-qualified topic name from the configured prefix:
// {environment}.{service}.{domain}.{event}.{version}.
func (c Config) Topic(domain, event, version string) string {
	return fmt.Sprintf("%s.%s.%s.%s.%s", c.KafkaTopicPrefix, c.ServiceName, domain, event, version)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(name string, dst *int) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}

func durationFromEnvSeconds(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = time.Duration(n) * time.Second
}
