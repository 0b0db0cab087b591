package config

const (
	EnvPrefix = "MARKETSTEAD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MARKETSTEAD_DB_DSN"
	EnvDBHost = "MARKETSTEAD_DB_HOST"
	EnvDBUser = "MARKETSTEAD_DB_USER"
	EnvDBName = "MARKETSTEAD_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
