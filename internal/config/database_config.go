package config

const (
	databaseURLVar = "DATABASE_URL"
	dbMaxConnsVar  = "DB_MAX_CONNS"
)

type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDBMaxConns() int
}

var _ DatabaseConfig = mainConfig{}

func (c mainConfig) GetDatabaseURL() string {
	return c.v.GetString(databaseURLVar)
}

func (c mainConfig) GetDBMaxConns() int {
	return c.v.GetInt(dbMaxConnsVar)
}
