package config

import "time"

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config is the root application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	TOC       TOCConfig       `yaml:"toc"`
	Retention RetentionConfig `yaml:"retention"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Ops       OpsConfig       `yaml:"ops"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig selects the document store and the commit strategy.
// Transactions is auto (use them when the store has them), on (require
// them) or off (always best-effort).
type StoreConfig struct {
	Backend          string        `yaml:"backend"           env:"STORE_BACKEND"           env-default:"postgres"`
	Transactions     string        `yaml:"transactions"      env:"STORE_TRANSACTIONS"      env-default:"auto"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env:"STORE_OPERATION_TIMEOUT" env-default:"5s"`
	TxMaxRetries     int           `yaml:"tx_max_retries"    env:"STORE_TX_MAX_RETRIES"    env-default:"3"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns         int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns         int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	StatementTimeout time.Duration `yaml:"statement_timeout"  env:"DATABASE_STATEMENT_TIMEOUT"  env-default:"10s"`
	ApplicationName  string        `yaml:"application_name"   env:"DATABASE_APPLICATION_NAME"   env-default:"tocd"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string        `yaml:"uri"      env:"MONGO_URI"      env-default:"mongodb://localhost:27017"`
	Database string        `yaml:"database" env:"MONGO_DATABASE" env-default:"auto_author"`
	Timeout  time.Duration `yaml:"timeout"  env:"MONGO_TIMEOUT"  env-default:"10s"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"     env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// TOCConfig tunes the optimistic retry loop.
type TOCConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"    env:"TOC_MAX_ATTEMPTS"    env-default:"5"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"TOC_INITIAL_BACKOFF" env-default:"20ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff"     env:"TOC_MAX_BACKOFF"     env-default:"500ms"`
	Multiplier     float64       `yaml:"multiplier"      env:"TOC_BACKOFF_MULTIPLIER" env-default:"2"`
	Jitter         float64       `yaml:"jitter"          env:"TOC_BACKOFF_JITTER"  env-default:"0.2"`
}

// RetentionConfig controls the hard delete of soft-deleted chapters.
type RetentionConfig struct {
	Days          int           `yaml:"days"           env:"RETENTION_DAYS"           env-default:"30"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"RETENTION_SWEEP_INTERVAL" env-default:"24h"`
	BatchSize     int           `yaml:"batch_size"     env:"RETENTION_BATCH_SIZE"     env-default:"100"`
	Concurrency   int           `yaml:"concurrency"    env:"RETENTION_CONCURRENCY"    env-default:"4"`
}

// EventsConfig holds change event publishing settings. An empty NATSURL
// disables publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"       env:"EVENTS_NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"EVENTS_SUBJECT_PREFIX" env-default:"books"`
	Stream        string `yaml:"stream"         env:"EVENTS_STREAM"         env-default:"TOC_EVENTS"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled" env:"TELEMETRY_TRACING_ENABLED" env-default:"false"`
	ServiceName    string  `yaml:"service_name"    env:"TELEMETRY_SERVICE_NAME"    env-default:"tocd"`
	SampleRatio    float64 `yaml:"sample_ratio"    env:"TELEMETRY_SAMPLE_RATIO"    env-default:"1"`
}

// OpsConfig holds the operational HTTP server settings.
type OpsConfig struct {
	Host            string        `yaml:"host"             env:"OPS_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"OPS_PORT"             env-default:"9090"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"OPS_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"OPS_WRITE_TIMEOUT"    env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"OPS_SHUTDOWN_TIMEOUT" env-default:"10s"`
	SweepTimeout    time.Duration `yaml:"sweep_timeout"    env:"OPS_SWEEP_TIMEOUT"    env-default:"10m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
