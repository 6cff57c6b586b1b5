package config

import (
	"time"
)

// GetBackendURL returns the base URL of the JobCatcher backend
func GetBackendURL() string {
	return GetEnvOrDefault("BACKEND_URL", "http://localhost:8000")
}

// GetBackendTimeout returns the timeout for non-streaming backend calls
// (upload proxying, session teardown). Streaming chat requests are not
// subject to this timeout; they run until the stream ends or the turn
// context is cancelled.
func GetBackendTimeout() time.Duration {
	return time.Duration(parseEnvInt("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second
}
