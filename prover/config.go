package prover

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"single-sign/shared"
)

// Config holds the proving-backend settings. It is passed explicitly into
// the adapters rather than read from ambient state, so the engine and the
// local prover stay usable without any of it.
type Config struct {
	// Endpoint is the ws:// or wss:// URL of the remote proving service.
	Endpoint string
	// Environment names the backend environment the credential belongs to,
	// e.g. "production" or "staging".
	Environment string
	// APIKey is the literal credential. Ignored when APIKeySecretName is set.
	APIKey string
	// APIKeySecretProject / APIKeySecretName locate the credential in GCP
	// Secret Manager instead of carrying it in the environment.
	APIKeySecretProject string
	APIKeySecretName    string
	// RequestTimeout bounds one proving round trip.
	RequestTimeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
}

// LoadConfigFromEnv reads the configuration from environment variables,
// loading a .env file first when one is present.
func LoadConfigFromEnv() Config {
	// Missing .env files are fine; real environments set variables directly.
	_ = godotenv.Load()

	return Config{
		Endpoint:            shared.GetEnvOrDefault("PROVER_ENDPOINT", ""),
		Environment:         shared.GetEnvOrDefault("PROVER_ENVIRONMENT", "production"),
		APIKey:              os.Getenv("PROVER_API_KEY"),
		APIKeySecretProject: os.Getenv("PROVER_API_KEY_SECRET_PROJECT"),
		APIKeySecretName:    os.Getenv("PROVER_API_KEY_SECRET_NAME"),
		RequestTimeout:      shared.GetEnvDurationOrDefault("PROVER_REQUEST_TIMEOUT", 2*time.Minute),
		MaxRetries:          shared.GetEnvIntOrDefault("PROVER_MAX_RETRIES", 3),
	}
}
