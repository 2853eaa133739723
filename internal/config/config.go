// Package config builds the explicit configuration object the rest of the
// system receives by injection. Credentials and addresses are read here,
// once, at process start; no other component reads the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all settings for the scanner service.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. :3000
	ListenAddr string

	// VTAPIKey is the VirusTotal credential; empty disables the provider
	VTAPIKey string
	// TriageAPIKey is the Triage credential; empty disables the provider
	TriageAPIKey string

	// AIAPIKey is the narrative model credential; empty yields the
	// placeholder narrative
	AIAPIKey string
	// AIModel overrides the default chat model
	AIModel string

	// ProviderTimeout bounds each reputation lookup
	ProviderTimeout time.Duration
	// NarrativeTimeout bounds the narrative model call
	NarrativeTimeout time.Duration

	// MaxUploadBytes caps file submissions
	MaxUploadBytes int64

	// StoreAddress is the Valkey address for the result store; empty
	// selects the in-memory store
	StoreAddress  string
	StoreUsername string
	StorePassword string
	StoreDatabase int
	// ResultTTL bounds how long an unread result is kept
	ResultTTL time.Duration

	// AMQPURL enables the chat bridge when set
	AMQPURL string
}

// Load reads configuration from a .env file (when present) and the
// environment, applying defaults.
func Load() *Config {
	// Best effort: a missing .env file is the normal production case.
	_ = godotenv.Load()

	return &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":3000"),
		VTAPIKey:         os.Getenv("VT_API_KEY"),
		TriageAPIKey:     os.Getenv("TRIAGE_API_KEY"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIModel:          os.Getenv("AI_MODEL"),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
		NarrativeTimeout: getEnvDuration("NARRATIVE_TIMEOUT", 30*time.Second),
		MaxUploadBytes:   getEnvInt64("MAX_UPLOAD_BYTES", 32*1024*1024),
		StoreAddress:     os.Getenv("STORE_ADDRESS"),
		StoreUsername:    os.Getenv("STORE_USERNAME"),
		StorePassword:    os.Getenv("STORE_PASSWORD"),
		StoreDatabase:    getEnvInt("STORE_DATABASE", 0),
		ResultTTL:        getEnvDuration("RESULT_TTL", 10*time.Minute),
		AMQPURL:          os.Getenv("AMQP_URL"),
	}
}

// KeyStatus reports which credentials are present. Presence is the only
// signal consumers get; the keys themselves never leave this package.
func (c *Config) KeyStatus() map[string]bool {
	return map[string]bool{
		"VT_API_KEY":     c.VTAPIKey != "",
		"TRIAGE_API_KEY": c.TriageAPIKey != "",
		"AI_API_KEY":     c.AIAPIKey != "",
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 gets an environment variable as an int64 with a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default
// value. Plain integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
