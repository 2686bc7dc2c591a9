package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "WARELINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "WARELINE_APP_ENV"
	EnvPort   = "WARELINE_APP_PORT"

	EnvDBDSN  = "WARELINE_DB_DSN"
	EnvDBHost = "WARELINE_DB_HOST"
	EnvDBUser = "WARELINE_DB_USER"
	EnvDBName = "WARELINE_DB_NAME"

	EnvRedisURL = "WARELINE_REDIS_URL"

	EnvJWTSecret              = "WARELINE_JWT_SECRET"
	EnvJWTIssuer              = "WARELINE_JWT_ISSUER"
	EnvJWTExpMins             = "WARELINE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "WARELINE_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
