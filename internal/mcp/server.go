package mcp

import (
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/nbnotify/internal/mcp/handlers"
	"github.com/btouchard/nbnotify/internal/notify"
)

// Engine is what the MCP tools need from the dispatch engine.
type Engine interface {
	handlers.Registrar
	handlers.Dispatcher
}

// Deps holds shared dependencies injected into MCP handlers.
type Deps struct {
	Engine     Engine
	Pending    *notify.Registry
	Deliveries handlers.DeliveryLog // may be nil
	Version    string

	// MaxThreshold bounds client deadlines; zero means unbounded.
	MaxThreshold time.Duration
}

// NewServer creates and configures the MCP server with all tools registered.
func NewServer(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"nbnotify",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	registerTools(s, deps)

	return s
}
