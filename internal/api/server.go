// Package api exposes the dispatch engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/btouchard/nbnotify/internal/api/middleware"
	"github.com/btouchard/nbnotify/internal/events"
	"github.com/btouchard/nbnotify/internal/notify"
	"github.com/btouchard/nbnotify/internal/store"
)

// Engine is the subset of *notify.Engine used by the handlers.
type Engine interface {
	Register(req notify.Request) error
	TriggerDirect(req notify.Request, o notify.Outcome) error
}

// Publisher accepts execution events from the host.
type Publisher interface {
	Publish(e events.Event) error
}

// DeliveryLister reads the delivery log.
type DeliveryLister interface {
	ListDeliveries(f store.DeliveryFilter) ([]store.DeliveryRecord, error)
}

// Capabilities is reported by GET /notify. It is resolved once at startup.
type Capabilities struct {
	EventsListening bool `json:"nbmodel_installed"`
	ChatConfigured  bool `json:"slack_configured"`
	MailConfigured  bool `json:"email_configured"`
}

// Deps holds what the handlers need. Events and Deliveries may be nil.
type Deps struct {
	Engine       Engine
	Events       Publisher
	Deliveries   DeliveryLister
	Capabilities Capabilities
	// MaxThreshold bounds client-supplied thresholds. Zero means no bound.
	MaxThreshold time.Duration
}

// Server serves the notification endpoints.
type Server struct {
	engine     Engine
	events     Publisher
	deliveries DeliveryLister
	caps       Capabilities
	maxThresh  time.Duration
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	return &Server{
		engine:     deps.Engine,
		events:     deps.Events,
		deliveries: deps.Deliveries,
		caps:       deps.Capabilities,
		maxThresh:  deps.MaxThreshold,
	}
}

// Routes returns the endpoints, relative to the mount point.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/notify", s.handleCapabilities)
	r.Post("/notify", s.handleRegister)
	r.Post("/notify-trigger", s.handleTrigger)
	if s.events != nil {
		r.Post("/events", s.handleEvent)
	}
	if s.deliveries != nil {
		r.Get("/deliveries", s.handleListDeliveries)
	}
	return r
}

// RouterOptions configures the root router.
type RouterOptions struct {
	BasePath          string
	AllowedOrigins    []string
	RequestsPerMinute int
	Burst             int
}

// NewRouter builds the root router: middleware plus s mounted at BasePath.
// Callers add health, metrics and MCP endpoints to the returned router.
func NewRouter(s *Server, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLog)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-XSRFToken"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RequestsPerMinute, opts.Burst))
		base := opts.BasePath
		if base == "" {
			base = "/"
		}
		r.Mount(base, s.Routes())
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
