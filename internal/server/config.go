package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/mortgage-compare/internal/config"
	"github.com/iwvelando/mortgage-compare/internal/tracing"
	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables read after the YAML file. The OTLP endpoint only
// applies when the file leaves tracing.endpoint empty.
const (
	EnvAddress       = constants.EnvPrefix + "_SERVER_ADDRESS"
	EnvMaxUploadSize = constants.EnvPrefix + "_SERVER_MAX_UPLOAD_SIZE"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config defines runtime parameters for the comparison server.
type Config struct {
	Address           string               `yaml:"address"`
	MaxUploadSize     string               `yaml:"maxUploadSize"`
	ReadHeaderTimeout time.Duration        `yaml:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration        `yaml:"shutdownTimeout"`
	Logging           config.LoggingConfig `yaml:"logging"`
	Tracing           tracing.Config       `yaml:"tracing"`
	uploadSizeBytes   int64
}

func defaultConfig() *Config {
	return &Config{
		Address:           constants.DefaultServerAddress,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		ShutdownTimeout:   constants.DefaultShutdownTimeout,
		Tracing:           tracing.Config{ServiceName: constants.DefaultServiceName},
		uploadSizeBytes:   constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig loads the server configuration from YAML and applies
// environment overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the largest accepted comparison upload.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

func (c *Config) applyEnv() {
	if address := strings.TrimSpace(os.Getenv(EnvAddress)); address != "" {
		c.Address = address
	}
	if size := strings.TrimSpace(os.Getenv(EnvMaxUploadSize)); size != "" {
		c.MaxUploadSize = size
	}
	if endpoint := strings.TrimSpace(os.Getenv(EnvOTLPEndpoint)); endpoint != "" && c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = endpoint
	}
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = constants.DefaultServerAddress
	}
	if strings.TrimSpace(c.Tracing.ServiceName) == "" {
		c.Tracing.ServiceName = constants.DefaultServiceName
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = constants.DefaultReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid maxUploadSize: %w", err)
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = fmt.Sprintf("%d", size)
	return nil
}

var sizeUnits = map[string]int64{
	"":    1,
	"B":   1,
	"K":   1 << 10,
	"KB":  1 << 10,
	"KIB": 1 << 10,
	"M":   1 << 20,
	"MB":  1 << 20,
	"MIB": 1 << 20,
}

// ParseSize converts a byte count such as "256K" or "1.5M" into bytes,
// truncating any fractional byte. Units are binary and case insensitive.
// The empty string selects the default upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	idx := strings.LastIndexFunc(trimmed, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.'
	}) + 1
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	multiplier, ok := sizeUnits[strings.TrimSpace(trimmed[idx:])]
	if !ok {
		return 0, fmt.Errorf("unsupported size unit %q", strings.TrimSpace(trimmed[idx:]))
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(trimmed[:idx]))
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("size cannot be negative: %s", value)
	}
	return amount.Mul(decimal.NewFromInt(multiplier)).IntPart(), nil
}
