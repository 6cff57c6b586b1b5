package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"global": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_GLOBAL", 600), // 600 requests per minute globally
			Window:  time.Minute,
		},
		"upload": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_UPLOAD", 20), // 20 uploads per minute
			Window:  time.Minute,
		},
		"ws_connect": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_WS_CONNECT", 60), // 60 connection attempts per minute
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("key", key).Msg("No rate limit config found for key")
	return RateLimitConfig{Enabled: false}
}
