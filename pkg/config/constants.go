package config

// EnvPrefix is passed to envconfig.Process; individual fields carry the full
// variable name so the prefix is informational only.
const EnvPrefix = "VENDORA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names shared between Load, tests, and tooling.
const (
	EnvAppEnv   = "VENDORA_APP_ENV"
	EnvPort     = "VENDORA_APP_PORT"
	EnvLogLevel = "VENDORA_LOG_LEVEL"

	EnvDBDSN      = "VENDORA_DB_DSN"
	EnvDBHost     = "VENDORA_DB_HOST"
	EnvDBUser     = "VENDORA_DB_USER"
	EnvDBName     = "VENDORA_DB_NAME"
	EnvDBPassword = "VENDORA_DB_PASSWORD"

	EnvRedisURL = "VENDORA_REDIS_URL"

	EnvJWTSecret  = "VENDORA_JWT_SECRET"
	EnvJWTIssuer  = "VENDORA_JWT_ISSUER"
	EnvJWTExpMins = "VENDORA_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "VENDORA_GCP_PROJECT_ID"

	EnvPubSubDomainTopic        = "VENDORA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSubscription = "VENDORA_PUBSUB_DOMAIN_SUBSCRIPTION"

	EnvSettlementHoldFunds        = "VENDORA_SETTLEMENT_HOLD_FUNDS"
	EnvSettlementReturnWindowDays = "VENDORA_SETTLEMENT_RETURN_WINDOW_DAYS"
	EnvSettlementCommissionRate   = "VENDORA_SETTLEMENT_COMMISSION_RATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
