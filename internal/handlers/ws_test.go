package handlers

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/models"
	"ALZHEIMER_MRI/go-frontend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func dialWS(t *testing.T, client *http.Client, base string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(base)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/ws", header)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (models.WebSocketMessage, map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg models.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	payload, _ := msg.Payload.(map[string]interface{})
	return msg, payload
}

func TestWebSocketStreamsFlowState(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })

	p := &fakePredictor{resp: positive()}
	h, srv, client := newTestServer(t, p)
	getPage(t, client, srv.URL)

	conn := dialWS(t, client, srv.URL)
	defer conn.Close()

	msg, _ := readMessage(t, conn)
	assert.Equal(t, "WELCOME", msg.Type)
	clientID := msg.ClientID
	assert.True(t, strings.HasPrefix(clientID, "client-"))

	msg, payload := readMessage(t, conn)
	assert.Equal(t, "STATE", msg.Type)
	assert.Equal(t, clientID, msg.ClientID)
	assert.Equal(t, string(assessment.StateIdle), payload["state"])

	for i := 0; i < assessment.StepCount-1; i++ {
		postStep(t, client, srv.URL, "next", "2")
	}
	postStep(t, client, srv.URL, "analyze", "2")
	h.wg.Wait()

	_, payload = readMessage(t, conn)
	assert.Equal(t, string(assessment.StatePending), payload["state"])
	assert.Equal(t, true, payload["busy"])

	_, payload = readMessage(t, conn)
	assert.Equal(t, string(assessment.StateSettled), payload["state"])
	result, ok := payload["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "88.5", result["confidence"])

	require.NoError(t, conn.WriteJSON(models.NewWebSocketMessage("PING", "", nil)))
	msg, _ = readMessage(t, conn)
	assert.Equal(t, "PONG", msg.Type)
	assert.Equal(t, 1, h.hub.Count())
}

func TestWebSocketRequiresSession(t *testing.T) {
	_, srv, _ := newTestServer(t, &fakePredictor{resp: positive()})

	header := http.Header{}
	header.Add("Cookie", sessionCookie+"=unknown")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubBroadcastOnlyReachesSession(t *testing.T) {
	_, srv, client := newTestServer(t, &fakePredictor{resp: positive()})
	getPage(t, client, srv.URL)
	conn := dialWS(t, client, srv.URL)
	defer conn.Close()

	readMessage(t, conn) // WELCOME
	readMessage(t, conn) // STATE

	other := &http.Client{Jar: mustJar(t)}
	t.Cleanup(other.CloseIdleConnections)
	getPage(t, other, srv.URL)
	for i := 0; i < assessment.StepCount-1; i++ {
		postStep(t, other, srv.URL, "next", "1")
	}
	postStep(t, other, srv.URL, "analyze", "1")

	require.NoError(t, conn.WriteJSON(models.NewWebSocketMessage("PING", "", nil)))
	msg, _ := readMessage(t, conn)
	assert.Equal(t, "PONG", msg.Type, "another session's state must not arrive here")
}

func mustJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func TestClientEnqueueAfterClose(t *testing.T) {
	metrics := services.NewMetrics()
	hub := NewHub(metrics, zaptest.NewLogger(t))
	c := &wsClient{clientID: "client-test", send: make(chan models.WebSocketMessage, 1)}

	msg := models.NewWebSocketMessage("STATE", "", nil)
	assert.True(t, c.enqueue(msg))
	assert.False(t, c.enqueue(msg), "full buffer must not block")

	c.closeSend()
	assert.NotPanics(t, c.closeSend)
	assert.NotPanics(t, func() { hub.trySend(c, msg) })
	assert.False(t, c.enqueue(msg))
	assert.EqualValues(t, 1, metrics.Snapshot()["websocket_errors"])
}

func TestWebSocketRefusedAfterHubClose(t *testing.T) {
	h, srv, client := newTestServer(t, &fakePredictor{resp: positive()})
	getPage(t, client, srv.URL)
	h.hub.Close()

	conn := dialWS(t, client, srv.URL)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg models.WebSocketMessage
	err := conn.ReadJSON(&msg)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Zero(t, h.hub.Count())
}
