package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Realtime     RealtimeConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FIELDOPS_APP_ENV" required:"true"`
	Port         string   `envconfig:"FIELDOPS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"FIELDOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FIELDOPS_LOG_WARN_STACK" default:"false"`
	Timezone     string   `envconfig:"FIELDOPS_APP_TIMEZONE" default:"UTC"`
	CORSOrigins  []string `envconfig:"FIELDOPS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the timezone used for day boundaries and schedule display.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvAppTimezone, name, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"FIELDOPS_SERVICE_KIND" default:"api"`
}

// StoreConfig points at the document database holding jobs, teams, employees,
// time entries and license plates.
type StoreConfig struct {
	MongoURI         string        `envconfig:"FIELDOPS_MONGO_URI"`
	Database         string        `envconfig:"FIELDOPS_MONGO_DATABASE" default:"fieldops"`
	ConnectTimeout   time.Duration `envconfig:"FIELDOPS_MONGO_CONNECT_TIMEOUT" default:"10s"`
	OperationTimeout time.Duration `envconfig:"FIELDOPS_MONGO_OPERATION_TIMEOUT" default:"15s"`
	MaxPoolSize      uint64        `envconfig:"FIELDOPS_MONGO_MAX_POOL_SIZE" default:"50"`

	JobScanLimit     int `envconfig:"FIELDOPS_JOB_SCAN_LIMIT" default:"300"`
	HistoryScanLimit int `envconfig:"FIELDOPS_JOB_HISTORY_SCAN_LIMIT" default:"500"`
}

type DBConfig struct {
	DSN    string `envconfig:"FIELDOPS_DB_DSN"`
	Driver string `envconfig:"FIELDOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FIELDOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"FIELDOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FIELDOPS_DB_USER"`
	LegacyPassword string `envconfig:"FIELDOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FIELDOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FIELDOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIELDOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FIELDOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FIELDOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIELDOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIELDOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FIELDOPS_REDIS_ADDR"`
	Password     string        `envconfig:"FIELDOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIELDOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIELDOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIELDOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIELDOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIELDOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIELDOPS_REDIS_WRITE_TIMEOUT" default:"5s"`

	TeamCacheTTL   time.Duration `envconfig:"FIELDOPS_TEAM_CACHE_TTL" default:"2m"`
	IdempotencyTTL time.Duration `envconfig:"FIELDOPS_IDEMPOTENCY_TTL" default:"24h"`
}

// JWTConfig verifies bearer tokens minted by the identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"FIELDOPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FIELDOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FIELDOPS_JWT_EXPIRATION_MINUTES" default:"720"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"FIELDOPS_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"FIELDOPS_RATE_LIMIT_WRITES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"FIELDOPS_USE_SQLITE" default:"false"`
	UseMemoryStore bool `envconfig:"FIELDOPS_USE_MEMORY_STORE" default:"false"`
	AutoMigrate    bool `envconfig:"FIELDOPS_AUTO_MIGRATE" default:"false"`
	Realtime       bool `envconfig:"FIELDOPS_FEATURE_REALTIME" default:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"FIELDOPS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"FIELDOPS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	JobsTopic      string `envconfig:"FIELDOPS_PUBSUB_JOBS_TOPIC" default:"fieldops-job-events"`
	VehiclesTopic  string `envconfig:"FIELDOPS_PUBSUB_VEHICLES_TOPIC" default:"fieldops-vehicle-events"`
	TimeclockTopic string `envconfig:"FIELDOPS_PUBSUB_TIMECLOCK_TOPIC" default:"fieldops-timeclock-events"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"FIELDOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"FIELDOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int `envconfig:"FIELDOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int `envconfig:"FIELDOPS_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"FIELDOPS_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"FIELDOPS_CRON_INTERVAL" default:"1h"`
	StaleClockAfter time.Duration `envconfig:"FIELDOPS_CRON_STALE_CLOCK_AFTER" default:"16h"`
}

type RealtimeConfig struct {
	WriteTimeout time.Duration `envconfig:"FIELDOPS_WS_WRITE_TIMEOUT" default:"10s"`
	PingInterval time.Duration `envconfig:"FIELDOPS_WS_PING_INTERVAL" default:"30s"`
	SendBuffer   int           `envconfig:"FIELDOPS_WS_SEND_BUFFER" default:"32"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
