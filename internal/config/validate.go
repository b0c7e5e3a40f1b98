package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	backends = []string{BackendPostgres, BackendMongo, BackendRedis, BackendMemory}
	txModes  = []string{"auto", "on", "off"}
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend must be one of %v (got %q)", backends, c.Store.Backend))
	}
	if !slices.Contains(txModes, c.Store.Transactions) {
		errs = append(errs, fmt.Errorf("store.transactions must be one of %v (got %q)", txModes, c.Store.Transactions))
	}
	if c.Store.OperationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("store.operation_timeout must be > 0 (got %s)", c.Store.OperationTimeout))
	}
	if c.Store.TxMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("store.tx_max_retries must be >= 0 (got %d)", c.Store.TxMaxRetries))
	}

	switch c.Store.Backend {
	case BackendPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres backend"))
		}
		if c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns))
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.uri and mongo.database are required for the mongo backend"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis backend"))
		}
	}

	if err := c.TOC.validate(); err != nil {
		errs = append(errs, fmt.Errorf("toc: %w", err))
	}
	if err := c.Retention.validate(); err != nil {
		errs = append(errs, fmt.Errorf("retention: %w", err))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0, 1] (got %v)", c.Telemetry.SampleRatio))
	}

	return errors.Join(errs...)
}

func (t TOCConfig) validate() error {
	if t.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", t.MaxAttempts)
	}
	if t.InitialBackoff <= 0 || t.MaxBackoff < t.InitialBackoff {
		return fmt.Errorf("need 0 < initial_backoff <= max_backoff (got %s, %s)", t.InitialBackoff, t.MaxBackoff)
	}
	if t.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1 (got %v)", t.Multiplier)
	}
	if t.Jitter < 0 || t.Jitter >= 1 {
		return fmt.Errorf("jitter must be within [0, 1) (got %v)", t.Jitter)
	}
	return nil
}

func (r RetentionConfig) validate() error {
	if r.Days < 0 {
		return fmt.Errorf("days must be >= 0 (got %d)", r.Days)
	}
	if r.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be > 0 (got %s)", r.SweepInterval)
	}
	if r.BatchSize < 1 || r.Concurrency < 1 {
		return fmt.Errorf("batch_size and concurrency must be >= 1 (got %d, %d)", r.BatchSize, r.Concurrency)
	}
	return nil
}
