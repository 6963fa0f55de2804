package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
	"github.com/quantumauth-io/quantum-credential-client/internal/session"
)

// sessionMessage is one frame on /api/session/events.
type sessionMessage struct {
	Type    string          `json:"type"`
	Session session.Session `json:"session"`
}

type eventStream struct {
	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
}

func newEventStream(allowedOrigins []string) *eventStream {
	s := &eventStream{allowedOrigins: make(map[string]struct{}, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		if o = normalizeOrigin(o); o != "" {
			s.allowedOrigins[o] = struct{}{}
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *eventStream) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := s.allowedOrigins[normalizeOrigin(origin)]
	if !ok {
		log.Warn("http: websocket origin rejected", "origin", origin)
	}
	return ok
}

// GET /api/session/events pushes the session snapshot on connect and after
// every session event.
func (h *Handler) SessionEvents(s *eventStream) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("http: websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		events := make(chan provider.Event, wsSendBuffer)
		sub := h.rt.Subscribe(events)
		defer sub.Unsubscribe()

		closed := make(chan struct{})
		go readUntilClosed(conn, closed)

		if err := writeFrame(conn, sessionMessage{Type: "snapshot", Session: h.rt.Session()}); err != nil {
			return
		}

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case ev := <-events:
				if err := writeFrame(conn, sessionMessage{Type: ev.Kind.String(), Session: h.rt.Session()}); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-sub.Err():
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			case <-closed:
				return
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, msg sessionMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(msg)
}

// readUntilClosed drains control frames so pongs and the peer's close are
// seen.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(4 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("http: websocket closed", "error", err)
			}
			return
		}
	}
}

func normalizeOrigin(in string) string {
	in = strings.TrimRight(strings.ToLower(strings.TrimSpace(in)), "/")
	if !strings.HasPrefix(in, "http://") && !strings.HasPrefix(in, "https://") {
		return ""
	}
	return in
}
