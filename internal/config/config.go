package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SinkLocal = "local"
	SinkAzure = "azure"

	BorderReplicate = "replicate"
	BorderConstant  = "constant"

	CodecStdlib = "stdlib"
	CodecJpegli = "jpegli"
)

type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
	Container   string `yaml:"container"`
}

// Enabled reports whether enough credentials are present to build a blob client
func (a AzureConfig) Enabled() bool {
	return a.AccountName != "" && a.AccountKey != ""
}

type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ImageFetchTimeout  time.Duration `yaml:"image_fetch_timeout"`
	AnalysisTimeout    time.Duration `yaml:"analysis_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`

	// Analysis defaults, overridable per request
	PatchSize           int     `yaml:"patch_size"`
	ThresholdPercentile float64 `yaml:"threshold_percentile"`
	ELAQuality          int     `yaml:"ela_quality"`
	LBPBorder           string  `yaml:"lbp_border"`
	ELACodec            string  `yaml:"ela_codec"`

	// Artifact output
	OutputDir string      `yaml:"output_dir"`
	Sink      string      `yaml:"sink"`
	Azure     AzureConfig `yaml:"azure"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Host:                "0.0.0.0",
		Port:                "8080",
		RequestTimeout:      60 * time.Second,
		ImageFetchTimeout:   15 * time.Second,
		AnalysisTimeout:     45 * time.Second,
		MaxRequestBodySize:  20 * 1024 * 1024, // 20MB
		PatchSize:           8,
		ThresholdPercentile: 70,
		ELAQuality:          90,
		LBPBorder:           BorderReplicate,
		ELACodec:            CodecStdlib,
		OutputDir:           "./output",
		Sink:                SinkLocal,
	}
}

// LoadFromEnv builds the configuration from defaults, an optional YAML file
// named by CONFIG_FILE, and environment variables, in that order of precedence.
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", cfg.ImageFetchTimeout)
	cfg.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.PatchSize = int(parseIntOrDefault("PATCH_SIZE", int64(cfg.PatchSize)))
	cfg.ThresholdPercentile = parseFloatOrDefault("THRESHOLD_PERCENTILE", cfg.ThresholdPercentile)
	cfg.ELAQuality = int(parseIntOrDefault("ELA_QUALITY", int64(cfg.ELAQuality)))
	cfg.LBPBorder = strings.ToLower(getEnvOrDefault("LBP_BORDER", cfg.LBPBorder))
	cfg.ELACodec = strings.ToLower(getEnvOrDefault("ELA_CODEC", cfg.ELACodec))
	cfg.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.Sink = strings.ToLower(getEnvOrDefault("SINK", cfg.Sink))
	cfg.Azure.AccountName = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.Azure.AccountName)
	cfg.Azure.AccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.Azure.AccountKey)
	cfg.Azure.Container = getEnvOrDefault("AZURE_CONTAINER", cfg.Azure.Container)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the server cannot start with
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.PatchSize < 1 {
		return fmt.Errorf("PATCH_SIZE must be >= 1 (got %d)", c.PatchSize)
	}
	if c.ThresholdPercentile < 0 || c.ThresholdPercentile > 100 {
		return fmt.Errorf("THRESHOLD_PERCENTILE must be within [0, 100] (got %g)", c.ThresholdPercentile)
	}
	if c.ELAQuality < 1 || c.ELAQuality > 100 {
		return fmt.Errorf("ELA_QUALITY must be within [1, 100] (got %d)", c.ELAQuality)
	}
	switch c.LBPBorder {
	case BorderReplicate, BorderConstant:
	default:
		return fmt.Errorf("unsupported LBP_BORDER: %q", c.LBPBorder)
	}
	switch c.ELACodec {
	case CodecStdlib, CodecJpegli:
	default:
		return fmt.Errorf("unsupported ELA_CODEC: %q", c.ELACodec)
	}
	switch c.Sink {
	case SinkLocal:
		if strings.TrimSpace(c.OutputDir) == "" {
			return fmt.Errorf("OUTPUT_DIR is required for the local sink")
		}
	case SinkAzure:
		if !c.Azure.Enabled() || c.Azure.Container == "" {
			return fmt.Errorf("azure sink requires AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_CONTAINER")
		}
	default:
		return fmt.Errorf("unsupported SINK: %q", c.Sink)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
