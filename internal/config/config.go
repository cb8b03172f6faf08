package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/link-health/infrastructure/config"
)

// Default configuration values.
const (
	defaultServiceName     = "link-health"
	defaultServicePort     = 8097
	defaultVersion         = "0.1.0"
	defaultDiscoveryBudget = 2 * time.Second
	defaultBufferSize      = 1000
	defaultWorkers         = 4
	defaultLoggingLevel    = "info"
	defaultLoggingFmt      = "json"

	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBName         = "link_health"
	defaultDBUser         = "postgres"
	defaultDBSSLMode      = "disable"
	defaultMaxOpenConns   = 25
	defaultMaxIdleConns   = 5
	defaultConnMaxLife    = 5 * time.Minute
	defaultConnectTimeout = 10 * time.Second

	defaultRedisAddress = "localhost:6379"
	defaultDedupTTL     = 10 * time.Minute

	defaultFailureThreshold = 3
	defaultRecheckInterval  = 168 * time.Hour
	defaultClaimTTL         = 15 * time.Minute
	defaultQueueBatch       = 200
	defaultRecheckBatch     = 500
	defaultDueBatch         = 100

	defaultSnapshotPrefix = "snapshots"
	defaultSnapshotRegion = "auto"

	defaultQueueSchedule   = "*/5 * * * *"
	defaultRecheckSchedule = "0 3 * * *"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Checker   CheckerConfig   `yaml:"checker"`
	Snapshots SnapshotConfig  `yaml:"snapshots"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"LINK_HEALTH_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"        yaml:"debug"`
	// ServerHost identifies internal links. Bare host or full server URL.
	ServerHost      string        `env:"LINK_HEALTH_SERVER_HOST" yaml:"server_host"`
	DiscoveryBudget time.Duration `yaml:"discovery_budget"`
	AsyncDiscovery  bool          `env:"LINK_HEALTH_ASYNC_DISCOVERY" yaml:"async_discovery"`
	BufferSize      int           `yaml:"buffer_size"`
	Workers         int           `yaml:"workers"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host            string        `env:"POSTGRES_LINK_HEALTH_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_LINK_HEALTH_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_LINK_HEALTH_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_LINK_HEALTH_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_LINK_HEALTH_DB"       yaml:"database"`
	SSLMode         string        `env:"POSTGRES_LINK_HEALTH_SSLMODE"  yaml:"sslmode"`
	ReplicaHost     string        `env:"POSTGRES_LINK_HEALTH_REPLICA_HOST" yaml:"replica_host"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// DSN returns the PostgreSQL connection string for the primary.
func (d *DatabaseConfig) DSN() string {
	return d.dsnFor(d.Host)
}

// ReplicaDSN returns the read replica connection string, or "" when none is set.
func (d *DatabaseConfig) ReplicaDSN() string {
	if d.ReplicaHost == "" {
		return ""
	}
	return d.dsnFor(d.ReplicaHost)
}

func (d *DatabaseConfig) dsnFor(host string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// URL returns the postgres:// form used by golang-migrate.
func (d *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// RedisConfig configures the optional discovery dedup guard.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string        `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int           `env:"REDIS_DB"       yaml:"db"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// CheckerConfig is the contract shared with the external HTTP checker.
type CheckerConfig struct {
	FailureThreshold int           `env:"LINK_HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold"`
	RecheckInterval  time.Duration `env:"LINK_HEALTH_RECHECK_INTERVAL"  yaml:"recheck_interval"`
	ClaimTTL         time.Duration `yaml:"claim_ttl"`
	QueueBatch       int           `yaml:"queue_batch"`
	RecheckBatch     int           `yaml:"recheck_batch"`
	DueBatch         int           `yaml:"due_batch"`
	// ProcessRate caps queue entries applied per second. Zero means no cap.
	ProcessRate int `yaml:"process_rate"`
}

// SnapshotConfig points at S3-compatible object storage. Snapshots are
// disabled while Bucket is empty.
type SnapshotConfig struct {
	Endpoint  string `env:"R2_ENDPOINT"   yaml:"endpoint"`
	AccessKey string `env:"R2_ACCESS_KEY" yaml:"access_key"`
	SecretKey string `env:"R2_SECRET_KEY" yaml:"secret_key"`
	Bucket    string `env:"R2_BUCKET"     yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
}

// Enabled reports whether snapshot storage is configured.
func (s *SnapshotConfig) Enabled() bool {
	return s.Bucket != ""
}

// SchedulerConfig holds the cron specs for periodic jobs.
type SchedulerConfig struct {
	Enabled         bool   `env:"LINK_HEALTH_SCHEDULER_ENABLED" yaml:"enabled"`
	QueueSchedule   string `yaml:"queue_schedule"`
	RecheckSchedule string `yaml:"recheck_schedule"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setCheckerDefaults(&cfg.Checker)
	setSnapshotDefaults(&cfg.Snapshots)
	setSchedulerDefaults(&cfg.Scheduler)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.DiscoveryBudget == 0 {
		svc.DiscoveryBudget = defaultDiscoveryBudget
	}
	if svc.BufferSize == 0 {
		svc.BufferSize = defaultBufferSize
	}
	if svc.Workers == 0 {
		svc.Workers = defaultWorkers
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = defaultMaxOpenConns
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = defaultMaxIdleConns
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = defaultConnMaxLife
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = defaultConnectTimeout
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.DedupTTL == 0 {
		r.DedupTTL = defaultDedupTTL
	}
}

func setCheckerDefaults(c *CheckerConfig) {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.RecheckInterval == 0 {
		c.RecheckInterval = defaultRecheckInterval
	}
	if c.ClaimTTL == 0 {
		c.ClaimTTL = defaultClaimTTL
	}
	if c.QueueBatch == 0 {
		c.QueueBatch = defaultQueueBatch
	}
	if c.RecheckBatch == 0 {
		c.RecheckBatch = defaultRecheckBatch
	}
	if c.DueBatch == 0 {
		c.DueBatch = defaultDueBatch
	}
}

func setSnapshotDefaults(s *SnapshotConfig) {
	if s.Prefix == "" {
		s.Prefix = defaultSnapshotPrefix
	}
	if s.Region == "" {
		s.Region = defaultSnapshotRegion
	}
}

func setSchedulerDefaults(s *SchedulerConfig) {
	if s.QueueSchedule == "" {
		s.QueueSchedule = defaultQueueSchedule
	}
	if s.RecheckSchedule == "" {
		s.RecheckSchedule = defaultRecheckSchedule
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("service.server_host", c.Service.ServerHost); err != nil {
		return err
	}
	if c.Service.DiscoveryBudget < 0 {
		return &infraconfig.ValidationError{Field: "service.discovery_budget", Message: "must not be negative"}
	}
	if c.Checker.FailureThreshold < 1 {
		return &infraconfig.ValidationError{Field: "checker.failure_threshold", Message: "must be at least 1"}
	}
	if c.Checker.ProcessRate < 0 {
		return &infraconfig.ValidationError{Field: "checker.process_rate", Message: "must not be negative"}
	}
	if c.Checker.RecheckInterval <= 0 {
		return &infraconfig.ValidationError{Field: "checker.recheck_interval", Message: "must be positive"}
	}
	if c.Snapshots.Enabled() {
		if err := infraconfig.ValidateRequired("snapshots.endpoint", c.Snapshots.Endpoint); err != nil {
			return err
		}
	}
	return infraconfig.ValidateLogLevel("logging.level", c.Logging.Level)
}
