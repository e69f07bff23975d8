package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultPort is used when PORT is not set.
const DefaultPort = 13337

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Host            string        `json:"host" validate:"omitempty,ip|hostname"`
	Port            int           `json:"port" validate:"gte=0,lte=65535"`
	Env             string        `json:"env"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gte=0"`
	MetricsPort     int           `json:"metrics_port" validate:"gte=0,lte=65535"`

	// Static files
	StaticRoot    string        `json:"static_root" validate:"required"`
	IndexFile     string        `json:"index_file" validate:"required,excludesall=/\\"`
	ServeDotfiles bool          `json:"serve_dotfiles"`
	CacheMaxAge   time.Duration `json:"cache_max_age" validate:"gte=0"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint" validate:"omitempty,url"`
	R2Region    string `json:"r2_region"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2Prefix    string `json:"r2_prefix"`

	// Logging
	LogLevel  string `json:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogOutput string `json:"log_output" validate:"required"`
}

// Load reads configuration from the environment (and .env, if present) and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	port, err := getEnvAsInt("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	metricsPort, err := getEnvAsInt("METRICS_PORT", 0)
	if err != nil {
		return nil, err
	}
	serveDotfiles, err := getEnvAsBool("SERVE_DOTFILES", false)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := getEnvAsDuration("HTTP_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cacheMaxAge, err := getEnvAsDuration("CACHE_MAX_AGE", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:            getEnv("HOST", ""),
		Port:            port,
		Env:             getEnv("APP_ENV", "production"),
		HTTPTimeout:     httpTimeout,
		ShutdownTimeout: shutdownTimeout,
		MetricsPort:     metricsPort,

		StaticRoot:    getEnv("STATIC_ROOT", "output/static"),
		IndexFile:     getEnv("INDEX_FILE", "index.html"),
		ServeDotfiles: serveDotfiles,
		CacheMaxAge:   cacheMaxAge,

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2Region:    getEnv("R2_REGION", "auto"),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),
		R2Prefix:    getEnv("R2_PREFIX", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogOutput: getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges. Whether StaticRoot exists is checked when the
// server opens it, not here.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsDevelopment reports whether APP_ENV selects development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) (int, error) {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, valueStr, err)
	}
	return value, nil
}

func getEnvAsBool(name string, defaultVal bool) (bool, error) {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", name, valueStr, err)
	}
	return value, nil
}

func getEnvAsDuration(name string, defaultVal time.Duration) (time.Duration, error) {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, valueStr, err)
	}
	return value, nil
}
