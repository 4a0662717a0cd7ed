package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"guardian/internal/audit"
	"guardian/internal/invoice"
	"guardian/internal/logging"

	"github.com/gorilla/websocket"
)

// runTrigger is the only message the client protocol defines; anything
// else is ignored so clients can ping freely.
const runTrigger = "run"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The demo dashboard is served from anywhere, including file://.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection and drives one audit session for its
// lifetime. Each "run" text message triggers the next audit; events stream
// back as JSON frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Server("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := s.newSession()
	sink := &wsSink{conn: conn}
	logging.Server("observer connected: session=%s remote=%s", session.ID, conn.RemoteAddr())

	ctx := r.Context()
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Server("observer dropped: session=%s: %v", session.ID, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if strings.TrimSpace(string(payload)) != runTrigger {
			logging.ServerDebug("ignoring message %q: session=%s", payload, session.ID)
			continue
		}

		if _, err := session.RunNext(ctx, sink); err != nil {
			if errors.Is(err, audit.ErrNoData) {
				continue // reported to the observer already; keep the connection
			}
			logging.Server("audit aborted: session=%s: %v", session.ID, err)
			return
		}
	}
}

// wsSink streams audit events to one WebSocket connection. Writes are
// serialized; gorilla connections do not allow concurrent writers.
type wsSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSink) Emit(_ context.Context, ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// EmitInvoice sends the invoice under audit so the dashboard can render it
// before the narrative starts.
func (s *wsSink) EmitInvoice(_ context.Context, inv invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(map[string]any{
		"invoice":     inv,
		"active_node": audit.StageIngest,
	})
}
