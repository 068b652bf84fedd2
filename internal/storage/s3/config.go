package s3

import (
	"time"
)

// Config represents S3 backend configuration
type Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ForcePathStyle  bool   `yaml:"force_path_style"`

	// Retry settings for transient failures
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`

	// ListPageSize bounds keys fetched per ListObjectsV2 call.
	ListPageSize int32 `yaml:"list_page_size"`

	// Requests to a bucket fail fast for BreakerTimeout once BreakerThreshold
	// consecutive requests failed transiently.
	BreakerThreshold uint32        `yaml:"breaker_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`

	// Upload acceleration: objects of at least UploadThreshold bytes go
	// through a cargoship transporter with UploadConcurrency parallel parts.
	EnableCargoShipOptimization bool  `yaml:"enable_cargoship_optimization"`
	UploadThreshold             int64 `yaml:"upload_threshold"`
	UploadConcurrency           int   `yaml:"upload_concurrency"`
}

// NewDefaultConfig returns a Config with default values
func NewDefaultConfig() *Config {
	return &Config{
		Region:         "us-east-1",
		MaxRetries:     3,
		RetryBaseDelay: 100 * time.Millisecond,
		RetryMaxDelay:  5 * time.Second,
		ListPageSize:   1000,

		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,

		UploadThreshold:   32 * 1024 * 1024,
		UploadConcurrency: 8,
	}
}

func (c *Config) applyDefaults() {
	d := NewDefaultConfig()
	if c.Region == "" {
		c.Region = d.Region
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = d.RetryMaxDelay
	}
	if c.ListPageSize <= 0 {
		c.ListPageSize = d.ListPageSize
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = d.BreakerThreshold
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = d.BreakerTimeout
	}
	if c.UploadThreshold <= 0 {
		c.UploadThreshold = d.UploadThreshold
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = d.UploadConcurrency
	}
}
