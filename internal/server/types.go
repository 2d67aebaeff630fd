package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/MeKo-Tech/scangate/internal/pipeline"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine      *gate.Engine
	pipeline    *pipeline.Pipeline
	layout      gate.OverlayLayout
	density     float64
	convention  gate.Convention
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	version     string

	// Hijacked WebSocket connections outlive http.Server.Shutdown, so the
	// server tracks them for Close.
	mu       sync.Mutex
	sessions map[*websocket.Conn]string
	closed   bool
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int

	// Formats is the initial allow-list; empty means every format.
	Formats    []string
	Convention gate.Convention
	Layout     gate.OverlayLayout
	Density    float64
	TryHarder  bool

	// MaxImageSide downscales uploads before decoding (0 = no limit).
	MaxImageSide int

	// Backend decodes uploaded images; nil selects the gozxing backend.
	Backend barcode.Backend

	// Version is reported by the health endpoint.
	Version string
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// SymbologyInfo describes one symbology and its vendor identifiers.
type SymbologyInfo struct {
	Name   string `json:"name"`
	MLKit  int    `json:"mlkit"`
	Vision string `json:"vision,omitempty"`
	ZXing  string `json:"zxing,omitempty"`
}

// FormatsResponse reports the active filter. MLKitMask is the ML Kit format
// mask a scanner using the filter would be configured with.
type FormatsResponse struct {
	Formats      []string        `json:"formats"`
	Unrestricted bool            `json:"unrestricted"`
	MLKitMask    int             `json:"mlkit_mask"`
	Unrecognized []string        `json:"unrecognized,omitempty"`
	Symbologies  []SymbologyInfo `json:"symbologies,omitempty"`
}

// FormatsRequest replaces the active filter.
type FormatsRequest struct {
	Formats []string `json:"formats"`
}

// EvaluateRequest carries one detection or a whole frame.
type EvaluateRequest struct {
	Detection  *DetectionPayload  `json:"detection,omitempty"`
	Detections []DetectionPayload `json:"detections,omitempty"`
	Viewport   ViewportPayload    `json:"viewport"`
}

// EvaluateResponse lists one decision per detection, in request order.
type EvaluateResponse struct {
	Decisions []gate.Decision   `json:"decisions"`
	Event     map[string]string `json:"event,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new scan server instance.
func NewServer(config Config) (*Server, error) {
	filter, unrecognized := gate.NewFormatFilter(config.Formats...)
	if len(unrecognized) > 0 {
		slog.Warn("Ignoring unrecognized barcode formats", "formats", unrecognized)
	}

	density := config.Density
	if !(density > 0) {
		density = 1
	}
	engine := gate.NewEngine(filter)

	p, err := pipeline.NewBuilder().
		WithBackend(config.Backend).
		WithEngine(engine).
		WithLayout(config.Layout).
		WithDensity(density).
		WithTryHarder(config.TryHarder).
		WithMaxImageSide(config.MaxImageSide).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build scan pipeline: %w", err)
	}

	return &Server{
		engine:      engine,
		pipeline:    p,
		layout:      config.Layout,
		density:     density,
		convention:  config.Convention,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		version:     config.Version,
		sessions:    make(map[*websocket.Conn]string),
	}, nil
}

// Engine returns the acceptance engine shared by all endpoints.
func (s *Server) Engine() *gate.Engine {
	return s.engine
}

// Close ends every open scanning session with a going-away close frame.
// Sessions that connect afterwards are refused the same way.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make(map[*websocket.Conn]string, len(s.sessions))
	for conn, id := range s.sessions {
		conns[conn] = id
	}
	s.mu.Unlock()

	var errs []error
	for conn, id := range conns {
		slog.Info("Closing scan session", "session_id", id)
		// A session may end on its own between the snapshot and here.
		if err := closeGoingAway(conn); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// trackSession registers conn and reports false once the server is closed.
func (s *Server) trackSession(conn *websocket.Conn, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.sessions == nil {
		s.sessions = make(map[*websocket.Conn]string)
	}
	s.sessions[conn] = id
	return true
}

func (s *Server) untrackSession(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conn)
}

// closeGoingAway sends a going-away close frame and closes conn. The
// session's reader then fails and the handler returns.
func closeGoingAway(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	return conn.Close()
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/formats", s.corsMiddleware(s.formatsHandler))
	mux.HandleFunc("/evaluate", s.corsMiddleware(s.evaluateHandler))
	mux.HandleFunc("/scan/image", s.corsMiddleware(s.scanImageHandler))
	mux.HandleFunc("/ws/scan", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
