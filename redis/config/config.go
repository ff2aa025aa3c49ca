// Package config provides Redis configuration management for the
// integration hub.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds Redis connection and worker parameters.
type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	Workers         int
	RetryInterval   time.Duration
	MaxRetries      int
	UseTLS          bool
	CertFile        string
	KeyFile         string
	CAFile          string
	QueuePriorities map[string]int
}

const (
	defaultHost          = "localhost"
	defaultPort          = 6379
	defaultDB            = 0
	defaultWorkers       = 10
	defaultRetryInterval = 5 * time.Second
	defaultMaxRetries    = 3
	minPort              = 1
	maxPort              = 65535
	minDB                = 0
	maxDB                = 15
	minWorkers           = 1
	maxWorkers           = 100
	minRetryInterval     = time.Second
	maxRetryInterval     = time.Hour
	minMaxRetries        = 1
	maxMaxRetries        = 10
)

// DefaultQueuePriorities defines the default priority settings for task queues.
var DefaultQueuePriorities = map[string]int{
	"critical": 6,
	"default":  3,
	"low":      1,
}

// NewRedisConfig creates a new Redis configuration from environment
// variables. REDIS_URL, when set, wins over the individual parameters.
func NewRedisConfig() (*RedisConfig, error) {
	cfg := &RedisConfig{
		Host:            getEnvOrDefault("REDIS_HOST", defaultHost),
		Password:        os.Getenv("REDIS_PASSWORD"),
		UseTLS:          getEnvBool("REDIS_USE_TLS"),
		CertFile:        os.Getenv("REDIS_CERT_FILE"),
		KeyFile:         os.Getenv("REDIS_KEY_FILE"),
		CAFile:          os.Getenv("REDIS_CA_FILE"),
		QueuePriorities: make(map[string]int),
	}

	for queue, priority := range DefaultQueuePriorities {
		cfg.QueuePriorities[queue] = priority
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		if err := cfg.applyURL(redisURL); err != nil {
			return nil, err
		}

		cfg.Workers = defaultWorkers
		cfg.RetryInterval = defaultRetryInterval
		cfg.MaxRetries = defaultMaxRetries

		return cfg, nil
	}

	port, err := validateRange("port", getEnvOrDefault("REDIS_PORT", strconv.Itoa(defaultPort)), minPort, maxPort)
	if err != nil {
		return nil, err
	}

	cfg.Port = port

	db, err := validateRange("DB", getEnvOrDefault("REDIS_DB", strconv.Itoa(defaultDB)), minDB, maxDB)
	if err != nil {
		return nil, err
	}

	cfg.DB = db

	workers, err := validateRange("workers", getEnvOrDefault("REDIS_WORKERS", strconv.Itoa(defaultWorkers)), minWorkers, maxWorkers)
	if err != nil {
		return nil, err
	}

	cfg.Workers = workers

	retries, err := validateRange("max retries", getEnvOrDefault("REDIS_MAX_RETRIES", strconv.Itoa(defaultMaxRetries)), minMaxRetries, maxMaxRetries)
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries = retries

	interval, err := validateRetryInterval(getEnvOrDefault("REDIS_RETRY_INTERVAL", defaultRetryInterval.String()))
	if err != nil {
		return nil, err
	}

	cfg.RetryInterval = interval

	if cfg.UseTLS && !isTestMode() {
		if err := validateTLSConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid TLS configuration: %w", err)
		}
	}

	return cfg, nil
}

func (c *RedisConfig) applyURL(redisURL string) error {
	parsedURL, err := url.Parse(redisURL)
	if err != nil {
		return fmt.Errorf("invalid Redis URL: %w", err)
	}

	if host := parsedURL.Hostname(); host != "" {
		c.Host = host
	}

	c.Port = defaultPort

	if port := parsedURL.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port in Redis URL: %w", err)
		}

		c.Port = p
	}

	if password, ok := parsedURL.User.Password(); ok {
		c.Password = password
	}

	if path := strings.TrimPrefix(parsedURL.Path, "/"); path != "" {
		db, err := strconv.Atoi(path)
		if err != nil {
			return fmt.Errorf("invalid database number in Redis URL: %w", err)
		}

		c.DB = db
	}

	return nil
}

// GetRedisAddr returns the formatted Redis address.
func (c *RedisConfig) GetRedisAddr() string {
	host := c.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}

	return fmt.Sprintf("%s:%d", host, c.Port)
}

func validateRange(name, value string, minVal, maxVal int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}

	if v < minVal || v > maxVal {
		return 0, fmt.Errorf("%s must be between %d and %d", name, minVal, maxVal)
	}

	return v, nil
}

func validateRetryInterval(interval string) (time.Duration, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %w", err)
	}

	if d < minRetryInterval || d > maxRetryInterval {
		return 0, fmt.Errorf("retry interval must be between %v and %v", minRetryInterval, maxRetryInterval)
	}

	return d, nil
}

func validateTLSConfig(cfg *RedisConfig) error {
	if cfg.CertFile == "" {
		return fmt.Errorf("TLS certificate file is required when TLS is enabled")
	}

	if cfg.KeyFile == "" {
		return fmt.Errorf("TLS key file is required when TLS is enabled")
	}

	for _, path := range []string{cfg.CertFile, cfg.KeyFile, cfg.CAFile} {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file does not exist: %s", path)
			}

			return fmt.Errorf("cannot access file: %s: %w", path, err)
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBool(key string) bool {
	value := strings.ToLower(os.Getenv(key))

	return value == "true" || value == "1" || value == "yes"
}

// isTestMode returns true if the code is running in test mode.
func isTestMode() bool {
	return strings.HasSuffix(os.Args[0], ".test") || os.Getenv("GO_TEST") == "1"
}
