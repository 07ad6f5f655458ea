package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/drewhoward/gamenight/go/internal/game"
)

// Service is the game gateway: it owns the connection manager, the message
// router, and the WebSocket endpoint.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	router            *Router
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service over the game application.
func NewService(config Config, app *game.App) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	router := NewRouter(app, connectionManager)
	connectionManager.SetHandler(router)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		router:            router,
	}
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	s.connectionManager.Start(ctx)

	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// ConnectionCount reports the number of live connections.
func (s *Service) ConnectionCount() int {
	return s.connectionManager.ConnectionCount()
}
