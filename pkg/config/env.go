package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:storefront.db?_foreign_keys=on"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"
	EnvDBPass   = "STOREFRONT_DB_PASSWORD"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvCouponRestriction = "STOREFRONT_COUPON_ENFORCE_PRODUCT_RESTRICTION"

	EnvGCPProjectID        = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAccountsTopic = "STOREFRONT_PUBSUB_ACCOUNTS_TOPIC"
	EnvOutboxMaxAttempts   = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxPollInterval  = "STOREFRONT_OUTBOX_PUBLISH_POLL_MS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
