package services

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/infrastructure/backend"
	"github.com/jobcatcher/console/internal/infrastructure/redis"
	"github.com/jobcatcher/console/internal/services/conversation"
	"github.com/jobcatcher/console/internal/services/session"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.Mutex
)

type Services struct {
	backendService      *backend.Service
	conversationService *conversation.Service
	redisService        *redis.Service
	sessionService      *session.Service
	toolsConfig         *config.ToolsConfig
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()
	log.Info().Msg("Initializing Redis service")

	// Initialize backend client (required)
	backendService := backend.NewService()
	log.Info().Str("backend", backendService.BaseURL()).Msg("Initializing backend client")

	// Initialize session service with optional Redis
	sessionService := session.NewService(redisService, backendService)
	log.Info().Msg("Initializing session service")

	// Load the tool presentation table, with an optional file override
	toolsConfig := config.DefaultToolsConfig()
	if path := config.GetToolsConfigPath(); path != "" {
		loaded, err := config.LoadToolsConfig(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Falling back to built-in tools table")
		} else {
			toolsConfig = loaded
			log.Info().Str("path", path).Msg("Loaded tools table override")
		}
	}

	conversationService := conversation.NewService(backendService, sessionService, toolsConfig)
	log.Info().Msg("Initializing conversation service")

	log.Info().Msg("All services initialized successfully")

	return &Services{
		backendService:      backendService,
		conversationService: conversationService,
		redisService:        redisService,
		sessionService:      sessionService,
		toolsConfig:         toolsConfig,
	}, nil
}

// GetBackendService returns the backend client
func (s *Services) GetBackendService() *backend.Service {
	return s.backendService
}

// GetConversationService returns the conversation service
func (s *Services) GetConversationService() *conversation.Service {
	return s.conversationService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetToolsConfig returns the tool presentation table
func (s *Services) GetToolsConfig() *config.ToolsConfig {
	return s.toolsConfig
}

// Shutdown releases long-lived connections.
func (s *Services) Shutdown() {
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
