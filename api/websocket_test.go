package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/beka-birhanu/battleship-server/logger"
	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/metrics"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWebsocket(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	metrics.New(reg).GamesStarted.Inc()

	srv := httptest.NewServer(NewMux(NewWebsocketHandler(ctx, echoSessions{}, logger.Nop()), reg))
	t.Cleanup(srv.Close)
	return srv, reg
}

func dialWebsocket(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestWebsocketBinaryFrames(t *testing.T) {
	srv, _ := startWebsocket(t)
	ws := dialWebsocket(t, srv)

	sent := &message.MoveRequest{X: 4, Y: 9}
	data, err := message.Marshal(sent)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, data))

	kind, reply, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	got, err := message.Unmarshal(reply)
	require.NoError(t, err)
	assert.Equal(t, sent, got)
}

func TestWebsocketSkipsTextFrames(t *testing.T) {
	srv, _ := startWebsocket(t)
	ws := dialWebsocket(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hello")))
	data, err := message.Marshal(&message.Chat{Text: "hi"})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, data))

	_, reply, err := ws.ReadMessage()
	require.NoError(t, err)
	got, err := message.Unmarshal(reply)
	require.NoError(t, err)
	assert.Equal(t, &message.Chat{Text: "hi"}, got)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := startWebsocket(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "battleship_games_started_total 1")
}

func TestWebsocketRejectsPlainRequests(t *testing.T) {
	srv, _ := startWebsocket(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
