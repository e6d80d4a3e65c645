package chat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred-sheets/backend/pkg/jwt"
)

const wsTestSecret = "ws-test-secret"

func startWSServer(t *testing.T) (*httptest.Server, *Server, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chatServer := newTestServer(nil)
	jwtService := jwt.NewService(wsTestSecret, time.Hour)

	engine := gin.New()
	engine.GET("/ws", ServeWS(chatServer, jwtService))

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, chatServer, jwtService
}

func wsURL(srv *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestServeWSAuthenticatedJoin(t *testing.T) {
	srv, _, jwtService := startWSServer(t)

	token, err := jwtService.GenerateToken(42, "ann@example.com", "Ann", "Rice", "")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_session","characterName":"Lucien"}`)))

	reply := readFrame(t, conn)
	assert.Equal(t, "session_joined", reply["type"])
	assert.Equal(t, "temporary", reply["sessionType"])

	participants := reply["participants"].([]any)
	require.Len(t, participants, 1)
	entry := participants[0].(map[string]any)
	assert.Equal(t, "42", entry["userId"])
	assert.Equal(t, "Ann Rice", entry["userName"])
}

func TestServeWSRejectsInvalidToken(t *testing.T) {
	srv, _, _ := startWSServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "bogus"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, closeUnauthorized))
}

func TestServeWSRejectsMissingToken(t *testing.T) {
	srv, _, _ := startWSServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, closeUnauthorized))
}

func TestServeWSDisconnectLeavesSession(t *testing.T) {
	srv, chatServer, jwtService := startWSServer(t)

	tokenA, err := jwtService.GenerateToken(1, "a@example.com", "", "", "Ann")
	require.NoError(t, err)
	tokenB, err := jwtService.GenerateToken(2, "b@example.com", "", "", "Ben")
	require.NoError(t, err)

	connA, _, err := websocket.DefaultDialer.Dial(wsURL(srv, tokenA), nil)
	require.NoError(t, err)
	defer connA.Close()

	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_session"}`)))
	reply := readFrame(t, connA)
	sessionID := reply["sessionId"].(string)

	connB, _, err := websocket.DefaultDialer.Dial(wsURL(srv, tokenB), nil)
	require.NoError(t, err)
	require.NoError(t, connB.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_session","sessionId":"`+sessionID+`"}`)))
	readFrame(t, connB)

	// Ann hears Ben arrive, then drops her connection
	joined := readFrame(t, connA)
	assert.Equal(t, "user_joined", joined["type"])
	connA.Close()

	left := readFrame(t, connB)
	assert.Equal(t, "user_left", left["type"])
	assert.Equal(t, "1", left["userId"])

	// give the read loop a moment to finish its teardown
	require.Eventually(t, func() bool {
		sess, found := chatServer.registry.Lookup(SessionTemporary, sessionID)
		if !found {
			return false
		}
		_, stillThere := chatServer.registry.Participant(sess, "1")
		return !stillThere
	}, 2*time.Second, 10*time.Millisecond)

	connB.Close()
}
