package config

// EnvPrefix is the envconfig prefix shared by every section.
const EnvPrefix = "exr"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "EXR_DB_DSN"
	EnvDBHost = "EXR_DB_HOST"
	EnvDBUser = "EXR_DB_USER"
	EnvDBName = "EXR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
