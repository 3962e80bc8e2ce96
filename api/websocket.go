package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/service/i"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 << 10
)

// WebsocketHandler upgrades requests and runs a session on each socket.
type WebsocketHandler struct {
	ctx      context.Context
	sessions i.SessionServer
	logger   i.Logger
	upgrader websocket.Upgrader
}

// NewWebsocketHandler creates the handler. Sessions are bound to ctx rather
// than to the request, so cancelling ctx ends them on shutdown.
func NewWebsocketHandler(ctx context.Context, sessions i.SessionServer, logger i.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		ctx:      ctx,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warning(fmt.Sprintf("upgrading %s: %v", r.RemoteAddr, err))
		return
	}
	ws.SetReadLimit(maxFrameSize)

	if err := h.sessions.Serve(h.ctx, newWSConn(ws)); err != nil {
		h.logger.Info(fmt.Sprintf("websocket session ended: %v", err))
	}
}

// NewMux routes /ws to the session handler and /metrics to the registry.
func NewMux(ws http.Handler, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// wsConn adapts a gorilla socket to i.Conn. Every frame is one binary
// msgpack envelope.
type wsConn struct {
	ws   *websocket.Conn
	once sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Send(m message.Message) error {
	data, err := message.Marshal(m)
	if err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) Recv() (message.Message, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		return message.Unmarshal(data)
	}
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() { err = c.ws.Close() })
	return err
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
