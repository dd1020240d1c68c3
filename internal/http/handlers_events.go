package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// StateStreamHandler pushes a client's auth state to the browser over a WebSocket.
// Each message is a full State snapshot; intermediate states may be skipped.
type StateStreamHandler struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStateStreamHandler creates the /auth/events handler. With no allowed origins
// the upgrader's same-host origin check applies.
func NewStateStreamHandler(allowedOrigins []string, logger *slog.Logger) *StateStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &StateStreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With("component", "state_stream"),
	}
	if len(allowedOrigins) > 0 {
		origins := slices.Clone(allowedOrigins)
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
	return h
}

func (h *StateStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt, ok := RuntimeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// Subscribe before bootstrapping so the Loading to terminal transition is observed.
	states := rt.State.Watch(ctx)
	go func() {
		bctx, bcancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer bcancel()
		rt.Bootstrap(bctx)
	}()

	// The browser sends nothing; reading only surfaces close frames and pongs.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(s); err != nil {
				h.logger.DebugContext(ctx, "websocket write failed", "client_id", rt.ClientID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
