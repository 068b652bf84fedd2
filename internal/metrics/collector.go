package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records mount engine and file system metrics. A nil *Collector
// is valid and records nothing.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry
	logger   *slog.Logger

	resolutions       *prometheus.CounterVec
	reloads           *prometheus.CounterVec
	reloadDuration    *prometheus.HistogramVec
	mountEntries      *prometheus.GaugeVec
	persists          *prometheus.CounterVec
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Internal tracking
	operations map[string]*OperationMetrics
	lastReset  time.Time

	// HTTP server for metrics endpoint
	server *http.Server
	health http.Handler
}

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// OperationMetrics tracks metrics for a specific operation type
type OperationMetrics struct {
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	LastOperation time.Time     `json:"last_operation"`
}

// NewCollector creates a new metrics collector. A disabled configuration
// yields a collector whose Record methods are no-ops.
func NewCollector(config *Config, logger *slog.Logger) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Port:      9090,
			Path:      "/metrics",
			Namespace: "mountfs",
		}
	}
	if config.Namespace == "" {
		config.Namespace = "mountfs"
	}
	if logger == nil {
		logger = slog.Default()
	}

	collector := &Collector{
		config:     config,
		logger:     logger.With("component", "metrics"),
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}
	if !config.Enabled {
		return collector, nil
	}

	collector.registry = prometheus.NewRegistry()
	collector.initMetrics()

	if err := collector.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return collector, nil
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry exposes the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns the HTTP handler serving the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// SetHealthHandler replaces the handler served at /health. It must be
// called before Start.
func (c *Collector) SetHealthHandler(h http.Handler) {
	if c == nil {
		return
	}
	c.health = h
}

// Start starts the metrics HTTP server
func (c *Collector) Start(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, c.Handler())
	if c.health != nil {
		mux.Handle("/health", c.health)
	} else {
		mux.HandleFunc("/health", c.healthHandler)
	}

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server error", "error", err)
		}
	}()

	c.logger.Info("metrics server started", "port", c.config.Port, "path", c.config.Path)
	return nil
}

// Stop stops the metrics HTTP server
func (c *Collector) Stop(ctx context.Context) error {
	if c == nil || c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

// RecordResolution counts a mount lookup by the tier that answered it.
func (c *Collector) RecordResolution(namespace, tier string) {
	if !c.enabled() {
		return
	}
	c.resolutions.With(prometheus.Labels{"namespace": namespace, "tier": tier}).Inc()
}

// RecordReload records one mount table reload attempt.
func (c *Collector) RecordReload(namespace string, duration time.Duration, success bool) {
	if !c.enabled() {
		return
	}
	c.reloads.With(prometheus.Labels{"namespace": namespace, "result": result(success)}).Inc()
	c.reloadDuration.With(prometheus.Labels{"namespace": namespace}).Observe(duration.Seconds())
}

// RecordPersist records the outcome of a mount table write. result is one
// of "success", "error" or "lost".
func (c *Collector) RecordPersist(namespace, result string) {
	if !c.enabled() {
		return
	}
	c.persists.With(prometheus.Labels{"namespace": namespace, "result": result}).Inc()
}

// RecordMountEntries sets the number of entries held by a tier.
func (c *Collector) RecordMountEntries(namespace, tier string, entries int) {
	if !c.enabled() {
		return
	}
	c.mountEntries.With(prometheus.Labels{"namespace": namespace, "tier": tier}).Set(float64(entries))
}

// RecordOperation records a file system operation with its duration
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	m, exists := c.operations[operation]
	if !exists {
		m = &OperationMetrics{}
		c.operations[operation] = m
	}
	m.Count++
	m.TotalDuration += duration
	if !success {
		m.Errors++
	}
	m.LastOperation = time.Now()
	c.mu.Unlock()

	c.operationCounter.With(prometheus.Labels{"operation": operation, "result": result(success)}).Inc()
	c.operationDuration.With(prometheus.Labels{"operation": operation}).Observe(duration.Seconds())
}

// GetOperations returns a copy of the per-operation counters.
func (c *Collector) GetOperations() map[string]OperationMetrics {
	out := make(map[string]OperationMetrics)
	if c == nil {
		return out
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.operations {
		out[k] = *v
	}
	return out
}

// ResetOperations clears the per-operation counters.
func (c *Collector) ResetOperations() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations = make(map[string]*OperationMetrics)
	c.lastReset = time.Now()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (c *Collector) initMetrics() {
	ns := c.config.Namespace

	c.resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "resolutions_total",
			Help:      "Total number of mount resolutions by answering tier",
		},
		[]string{"namespace", "tier"},
	)

	c.reloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "reloads_total",
			Help:      "Total number of mount table reloads",
		},
		[]string{"namespace", "result"},
	)

	c.reloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "reload_duration_seconds",
			Help:      "Duration of mount table reloads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"namespace"},
	)

	c.mountEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "mount_entries",
			Help:      "Number of mount entries per tier",
		},
		[]string{"namespace", "tier"},
	)

	c.persists = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "persists_total",
			Help:      "Total number of mount table writes",
		},
		[]string{"namespace", "result"},
	)

	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "operations_total",
			Help:      "Total number of file system operations",
		},
		[]string{"operation", "result"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "operation_duration_seconds",
			Help:      "Duration of file system operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 18),
		},
		[]string{"operation"},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.resolutions,
		c.reloads,
		c.reloadDuration,
		c.mountEntries,
		c.persists,
		c.operationCounter,
		c.operationDuration,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collector) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy","service":"mountfs-metrics"}`))
}
