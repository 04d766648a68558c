package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	DatabaseURL   string
	RedisURL      string
	JWTSecret     string
	EncryptionKey string
	FrontendURL   string

	GithubAPIBaseURL string

	LTIIssuer        string
	LTIClientID      string
	LTIAuthEndpoint  string
	LTITokenEndpoint string
	LTIJWKSEndpoint  string

	// ToolPrivateKeyPEM signs client assertions for AGS/NRPS token grants.
	ToolPrivateKeyPEM string

	LaunchTokenTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// LTIConfigured reports whether the Moodle platform registration is complete
// enough to verify launches and push grades.
func (c Config) LTIConfigured() bool {
	return c.LTIIssuer != "" && c.LTIClientID != "" && c.LTIJWKSEndpoint != "" && c.LTITokenEndpoint != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SAE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SAE API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("launch_token.ttl", "1h")

	ttlString := v.GetString("launch_token.ttl")
	if ttlString == "" {
		ttlString = "1h"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid launch token ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		EncryptionKey:     v.GetString("encryption.key"),
		FrontendURL:       strings.TrimRight(v.GetString("frontend.url"), "/"),
		GithubAPIBaseURL:  v.GetString("github.api_base_url"),
		LTIIssuer:         v.GetString("lti.issuer"),
		LTIClientID:       v.GetString("lti.client_id"),
		LTIAuthEndpoint:   v.GetString("lti.auth_endpoint"),
		LTITokenEndpoint:  v.GetString("lti.token_endpoint"),
		LTIJWKSEndpoint:   v.GetString("lti.jwks_endpoint"),
		ToolPrivateKeyPEM: v.GetString("lti.tool_private_key"),
		LaunchTokenTTL:    ttl,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.EncryptionKey == "" {
		return Config{}, fmt.Errorf("encryption key must be provided")
	}

	return cfg, nil
}
