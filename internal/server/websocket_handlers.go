package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Camera hosts connect from apps and local tooling, not browsers.
		return true
	},
}

// WebSocket message types.
const (
	wsTypeSession = "session"
	wsTypeFrame   = "frame"
	wsTypeFormats = "formats"
	wsTypeStop    = "stop"
	wsTypeStopped = "stopped"
	wsTypeBarcode = "barcode"
	wsTypeError   = "error"
)

// WebSocketScanRequest is a message sent by the camera host.
type WebSocketScanRequest struct {
	Type       string             `json:"type"` // "frame", "formats" or "stop"
	Viewport   ViewportPayload    `json:"viewport"`
	Detection  *DetectionPayload  `json:"detection,omitempty"`
	Detections []DetectionPayload `json:"detections,omitempty"`
	Formats    []string           `json:"formats,omitempty"`
}

// WebSocketScanResponse is a message sent to the camera host.
type WebSocketScanResponse struct {
	Type         string            `json:"type"`
	SessionID    string            `json:"session_id"`
	Event        map[string]string `json:"event,omitempty"`
	Formats      []string          `json:"formats,omitempty"`
	Unrecognized []string          `json:"unrecognized,omitempty"`
	Error        string            `json:"error,omitempty"`
	ErrorType    string            `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// scanSession is the per-connection scanning state. Its engine starts from
// the server's filter and is reconfigured only by this session.
type scanSession struct {
	id     string
	engine *gate.Engine
}

func (s *Server) newScanSession() *scanSession {
	return &scanSession{
		id:     uuid.New().String(),
		engine: gate.NewEngine(s.engine.Filter()),
	}
}

// scanWebSocketHandler handles WebSocket connections for live scanning sessions.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	sess := s.newScanSession()
	if !s.trackSession(conn, sess.id) {
		_ = closeGoingAway(conn)
		return
	}
	defer s.untrackSession(conn)

	slog.Info("Scan session started", "session_id", sess.id, "remote_addr", r.RemoteAddr)
	defer slog.Info("Scan session ended", "session_id", sess.id)

	s.handleWebSocketConnection(conn, sess)
}

// handleWebSocketConnection processes messages until the client stops or disconnects.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn, sess *scanSession) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      wsTypeSession,
		SessionID: sess.id,
		Formats:   sess.engine.Filter().Names(),
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "session_id", sess.id, "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType != websocket.TextMessage {
			continue
		}
		if stop := s.handleWebSocketMessage(conn, sess, data); stop {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, wsTypeStopped)
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
			return
		}
	}
}

// handleWebSocketMessage processes one client message and reports whether
// the session should end.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, sess *scanSession, data []byte) bool {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, sess, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return false
	}

	switch req.Type {
	case wsTypeFrame:
		s.processWebSocketFrame(conn, sess, req)
	case wsTypeFormats:
		filter, unrecognized := gate.NewFormatFilter(req.Formats...)
		sess.engine.Reconfigure(filter)
		s.sendWebSocketResponse(conn, WebSocketScanResponse{
			Type:         wsTypeFormats,
			SessionID:    sess.id,
			Formats:      filter.Names(),
			Unrecognized: unrecognized,
		})
	case wsTypeStop:
		s.sendWebSocketResponse(conn, WebSocketScanResponse{Type: wsTypeStopped, SessionID: sess.id})
		return true
	default:
		s.sendWebSocketError(conn, sess, "invalid_request", "Unsupported message type: "+req.Type)
	}
	return false
}

// processWebSocketFrame evaluates one frame's detections and emits a barcode
// event for the first accepted one. Frames without an accepted detection
// produce no message.
func (s *Server) processWebSocketFrame(conn WebSocketConnWriter, sess *scanSession, req WebSocketScanRequest) {
	detections, err := s.detections(req.Detection, req.Detections)
	if err != nil {
		s.sendWebSocketError(conn, sess, "invalid_request", err.Error())
		return
	}

	vp := s.viewport(req.Viewport)
	decisions := make([]gate.Decision, len(detections))
	for i, d := range detections {
		decisions[i] = sess.engine.Supply(d, vp)
	}
	recordDecisions("websocket", decisions)

	first, ok := gate.FirstAccepted(decisions)
	if !ok {
		return
	}
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      wsTypeBarcode,
		SessionID: sess.id,
		Event:     first.Event(),
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket; the session continues.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, sess *scanSession, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      wsTypeError,
		SessionID: sess.id,
		Error:     message,
		ErrorType: errorType,
	})
}
