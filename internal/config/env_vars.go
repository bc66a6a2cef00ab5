package config

import (
	"fmt"
	"strings"
)

const (
	portEnvVar  = "PORT"
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"
	baseURLVar  = "BASE_URL"
)

var _ EnvConfig = mainConfig{}

func (c mainConfig) GetPort() string {
	port := c.v.GetString(portEnvVar)
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (c mainConfig) GetAppName() string {
	return c.v.GetString(appNameVar)
}

func (c mainConfig) GetEnv() string {
	return strings.ToUpper(c.v.GetString(envVar))
}

func (c mainConfig) GetLogLevel() string {
	return c.v.GetString(logLevelVar)
}

// GetBaseURL returns the public base URL of the server (e.g., "https://sso.example.com").
// It is also the default token issuer.
func (c mainConfig) GetBaseURL() string {
	return strings.TrimRight(c.v.GetString(baseURLVar), "/")
}
