package api

import "time"

// Config holds server configuration.
type Config struct {
	Port              int
	Version           string
	SourceKind        string          // Verse source reported by /health ("http" or "sqlite")
	RateLimitRequests int             // Requests per minute (0 = disabled)
	RateLimitBurst    int             // Burst size
	AllowedOrigins    []string        // CORS and WebSocket allowed origins (empty = allow all)
	WebSocket         WebSocketConfig // Lookup session limits
	ShutdownTimeout   time.Duration   // Grace period for in-flight requests on shutdown
}

// WebSocketConfig holds limits for /ws lookup sessions.
type WebSocketConfig struct {
	// MaxMessageRate is the maximum number of frames per second per session.
	MaxMessageRate int

	// MaxMessageSize is the maximum frame size in bytes.
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default session limits.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		MaxMessageRate: 10,
		MaxMessageSize: 4096,
	}
}

const (
	defaultRateLimitBurst  = 10
	defaultShutdownTimeout = 10 * time.Second
)

func (cfg Config) withDefaults() Config {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	def := DefaultWebSocketConfig()
	if cfg.WebSocket.MaxMessageRate <= 0 {
		cfg.WebSocket.MaxMessageRate = def.MaxMessageRate
	}
	if cfg.WebSocket.MaxMessageSize <= 0 {
		cfg.WebSocket.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return cfg
}
