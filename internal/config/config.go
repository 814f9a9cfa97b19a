package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	AppEnv      string

	AdminAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DocuSignAuthServer      string
	DocuSignClientID        string
	DocuSignPrivateKey      string
	DocuSignRedirectURI     string
	DocuSignAccountID       string
	DocuSignAPIEndpoint     string
	DocuSignTokenTTLSeconds int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                addr,
		PostgresDSN:             os.Getenv("POSTGRES_DSN"),
		LogLevel:                envDefault("LOG_LEVEL", "info"),
		AppEnv:                  envDefault("APP_ENV", "development"),
		AdminAPIKey:             os.Getenv("ADMIN_API_KEY"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 envIntDefault("REDIS_DB", 0),
		DocuSignAuthServer:      os.Getenv("DOCUSIGN_AUTH_SERVER"),
		DocuSignClientID:        os.Getenv("DOCUSIGN_CLIENT_ID"),
		DocuSignPrivateKey:      os.Getenv("DOCUSIGN_PRIVATE_KEY"),
		DocuSignRedirectURI:     os.Getenv("DOCUSIGN_REDIRECT_URI"),
		DocuSignAccountID:       os.Getenv("DOCUSIGN_ACCOUNT_ID"),
		DocuSignAPIEndpoint:     os.Getenv("DOCUSIGN_API_ENDPOINT"),
		DocuSignTokenTTLSeconds: envIntDefault("DOCUSIGN_TOKEN_TTL_SECONDS", 3600),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) TokenTTL() time.Duration {
	if c.DocuSignTokenTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.DocuSignTokenTTLSeconds) * time.Second
}
