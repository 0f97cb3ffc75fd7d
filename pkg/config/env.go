package config

const (
	EnvStorageDriver = "STORAGE_DRIVER"
	EnvLockBackend   = "LOCK_BACKEND"
	EnvEventsBackend = "EVENTS_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresURL      = "POSTGRES_URL"
	EnvPostgresMaxConns = "POSTGRES_MAX_CONNS"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvNATSURL            = "NATS_URL"
	EnvReservationsTopic  = "RESERVATIONS_TOPIC"
	EnvReservationsDLQ    = "RESERVATIONS_DLQ_TOPIC"
	EnvPoolLockTTL        = "POOL_LOCK_TTL"
	EnvJWTSecret          = "JWT_SECRET"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvMinLeadTime     = "MIN_LEAD_TIME"
	EnvMinStayDuration = "MIN_STAY_DURATION"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
