package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/utils"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Storage    StorageConfig    `yaml:"storage"`
	Network    NetworkConfig    `yaml:"network"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	FUSE       FUSEConfig       `yaml:"fuse"`
	Properties Properties       `yaml:"properties"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`
}

// StorageConfig represents backend settings
type StorageConfig struct {
	DefaultScheme string   `yaml:"default_scheme"`
	S3            S3Config `yaml:"s3"`
}

// S3Config represents the S3 backend settings
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
	Disabled     bool   `yaml:"disabled"`

	// Objects of at least UploadThreshold bytes are uploaded in parallel
	// parts when accelerated uploads are enabled.
	AcceleratedUploads bool  `yaml:"accelerated_uploads"`
	UploadThreshold    int64 `yaml:"upload_threshold"`
	UploadConcurrency  int   `yaml:"upload_concurrency"`
}

// NetworkConfig represents network configuration
type NetworkConfig struct {
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig represents retry settings
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// MonitoringConfig represents monitoring settings
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// FUSEConfig represents the FUSE view settings
type FUSEConfig struct {
	AllowOther   bool          `yaml:"allow_other"`
	Debug        bool          `yaml:"debug"`
	EntryTimeout time.Duration `yaml:"entry_timeout"`
	AttrTimeout  time.Duration `yaml:"attr_timeout"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:  "INFO",
			LogFormat: "text",
		},
		Storage: StorageConfig{
			DefaultScheme: "file",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Network: NetworkConfig{
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   100 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled: false,
				Port:    9090,
				Path:    "/metrics",
			},
		},
		FUSE: FUSEConfig{
			EntryTimeout: time.Second,
			AttrTimeout:  time.Second,
		},
		Properties: Properties{},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to read config file").
			WithDetail("file", filename)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to parse config file").
			WithDetail("file", filename)
	}
	if c.Properties == nil {
		c.Properties = Properties{}
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables. Variables
// named MOUNTFS_PROP_<KEY> set namespace properties; the key is lower-cased
// and underscores become dots, so MOUNTFS_PROP_MOUNT_TEST_PERIOD sets
// mount.test.period.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("MOUNTFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("MOUNTFS_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("MOUNTFS_LOG_FORMAT"); val != "" {
		c.Global.LogFormat = val
	}
	if val := os.Getenv("MOUNTFS_METRICS_ENABLED"); val != "" {
		c.Monitoring.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("MOUNTFS_METRICS_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid MOUNTFS_METRICS_PORT")
		}
		c.Monitoring.Metrics.Port = port
	}

	if val := os.Getenv("MOUNTFS_S3_REGION"); val != "" {
		c.Storage.S3.Region = val
	}
	if val := os.Getenv("MOUNTFS_S3_ENDPOINT"); val != "" {
		c.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("MOUNTFS_S3_PATH_STYLE"); val != "" {
		c.Storage.S3.UsePathStyle = strings.ToLower(val) == "true"
	}

	const propPrefix = "MOUNTFS_PROP_"
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, propPrefix) {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, propPrefix), "_", "."))
		if c.Properties == nil {
			c.Properties = Properties{}
		}
		c.Properties[key] = value
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to marshal config")
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to create config directory")
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to write config file")
	}

	return nil
}

// Validate validates the configuration, including every namespace declared
// in Properties.
func (c *Configuration) Validate() error {
	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid log_level")
	}
	if _, err := utils.ParseLogFormat(c.Global.LogFormat); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid log_format")
	}

	if c.Monitoring.Metrics.Enabled && (c.Monitoring.Metrics.Port <= 0 || c.Monitoring.Metrics.Port > 65535) {
		return errors.Newf(errors.ErrCodeConfigValidation, "metrics port out of range: %d", c.Monitoring.Metrics.Port)
	}

	if c.Network.Retry.MaxAttempts <= 0 {
		return errors.NewError(errors.ErrCodeConfigValidation, "retry max_attempts must be greater than 0")
	}

	switch c.Storage.DefaultScheme {
	case "file", "mem", "s3":
	default:
		return errors.Newf(errors.ErrCodeConfigValidation, "unsupported default_scheme: %q", c.Storage.DefaultScheme)
	}

	for _, prefix := range c.Properties.Namespaces() {
		if _, err := NamespaceFromProperties(c.Properties, prefix); err != nil {
			return fmt.Errorf("namespace %s: %w", prefix, err)
		}
	}
	for _, prefix := range c.Properties.Chroots() {
		if _, err := ChrootFromProperties(c.Properties, prefix); err != nil {
			return fmt.Errorf("chroot %s: %w", prefix, err)
		}
	}

	return nil
}
