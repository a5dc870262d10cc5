package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/models"
)

// WebSocket message types of the session status stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeStatus = "status"
	MsgTypeError  = "error"
	MsgTypePong   = "pong"
)

const wsWriteWait = 10 * time.Second

// WSMessage is the envelope of every message on the stream
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler pushes session status to WebSocket clients until the session finishes
type WebSocketHandler struct {
	sessionMgr     SessionManager
	upgrader       websocket.Upgrader
	log            *slog.Logger
	interval       time.Duration
	maxMessageSize int64
}

// NewWebSocketHandler creates a status stream handler. interval is the push period;
// maxMessageSize limits client messages in bytes.
func NewWebSocketHandler(sessionMgr SessionManager, log *slog.Logger, interval time.Duration, maxMessageSize int64) *WebSocketHandler {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if maxMessageSize <= 0 {
		maxMessageSize = 64 * 1024
	}
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		log:            log,
		interval:       interval,
		maxMessageSize: maxMessageSize,
	}
}

// HandleStatusStream upgrades the connection and pushes a status message every interval.
// The stream ends with a normal close once the session is complete or failed.
func (wsh *WebSocketHandler) HandleStatusStream(c echo.Context) error {
	id := c.Param("id")
	if _, ok := wsh.sessionMgr.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := wsh.log.With(slog.String("session", id))
	log.Debug("Status stream connected")

	// Only the read loop touches the reader; replies are handed to the writer below.
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	ws.SetReadLimit(wsh.maxMessageSize)
	go func() {
		defer close(closed)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("Status stream read failed", slog.String("error", err.Error()))
				}
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(wsh.interval)
	defer ticker.Stop()

	for {
		sess, ok := wsh.sessionMgr.GetSession(id)
		if !ok {
			wsh.sendError(ws, "session not found", "SESSION_NOT_FOUND")
			wsh.closeNormal(ws, "session gone")
			return nil
		}

		if err := wsh.sendStatus(ws, sess); err != nil {
			log.Debug("Status stream write failed", slog.String("error", err.Error()))
			return nil
		}
		if sessionFinished(sess) {
			wsh.closeNormal(ws, string(sess.Status))
			return nil
		}

		select {
		case <-closed:
			log.Debug("Status stream disconnected")
			return nil
		case <-pings:
			if err := wsh.send(ws, WSMessage{Type: MsgTypePong, ID: id}); err != nil {
				return nil
			}
		case <-ticker.C:
		}
	}
}

func (wsh *WebSocketHandler) sendStatus(ws *websocket.Conn, sess *models.ParseSession) error {
	return wsh.send(ws, WSMessage{Type: MsgTypeStatus, ID: sess.ID, Payload: mustJSON(sess)})
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, message, code string) {
	if err := wsh.send(ws, WSMessage{
		Type:    MsgTypeError,
		Payload: mustJSON(WSErrorResponse{Message: message, Code: code}),
	}); err != nil {
		wsh.log.Debug("Failed to send error message", slog.String("error", err.Error()))
	}
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msg WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	if err := ws.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return ws.WriteJSON(msg)
}

func (wsh *WebSocketHandler) closeNormal(ws *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
