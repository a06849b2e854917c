package config

const (
	EnvPrefix = "FIELDOPS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "FIELDOPS_APP_ENV"
	EnvPort        = "FIELDOPS_APP_PORT"
	EnvLogLevel    = "FIELDOPS_LOG_LEVEL"
	EnvAppTimezone = "FIELDOPS_APP_TIMEZONE"

	EnvMongoURI      = "FIELDOPS_MONGO_URI"
	EnvMongoDatabase = "FIELDOPS_MONGO_DATABASE"
	EnvJobScanLimit  = "FIELDOPS_JOB_SCAN_LIMIT"

	EnvDBDSN  = "FIELDOPS_DB_DSN"
	EnvDBHost = "FIELDOPS_DB_HOST"
	EnvDBUser = "FIELDOPS_DB_USER"
	EnvDBName = "FIELDOPS_DB_NAME"

	EnvRedisURL     = "FIELDOPS_REDIS_URL"
	EnvTeamCacheTTL = "FIELDOPS_TEAM_CACHE_TTL"

	EnvJWTSecret = "FIELDOPS_JWT_SECRET"
	EnvJWTIssuer = "FIELDOPS_JWT_ISSUER"

	EnvUseMemoryStore = "FIELDOPS_USE_MEMORY_STORE"
	EnvPubSubJobs     = "FIELDOPS_PUBSUB_JOBS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
