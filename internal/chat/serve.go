package chat

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"kindred-sheets/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// ServeWS upgrades the connection and authenticates it before any session
// state can be touched. Authentication failure closes the socket with an
// unauthorized close code; no session is ever created for it.
func ServeWS(server *Server, jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if cookie, err := c.Cookie("auth_token"); err == nil {
				token = cookie
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			server.log.Warn("WebSocket upgrade failed", "error", err.Error())
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			message := websocket.FormatCloseMessage(closeUnauthorized, "unauthorized")
			conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
			conn.Close()
			server.log.Warn("Rejected unauthenticated chat connection")
			return
		}

		client := newClient(
			server,
			conn,
			strconv.FormatUint(uint64(claims.UserID), 10),
			displayName(claims),
			server.cfg.SendBuffer,
		)
		server.register(client)

		server.log.Info("Chat connection established", "user_id", client.UserID)

		go client.writePump()
		go client.readPump()
	}
}

// displayName resolves what other participants see: nickname first, then
// first and last name, then a fallback label.
func displayName(claims *jwt.JWTClaims) string {
	if claims.Nickname != "" {
		return claims.Nickname
	}
	full := strings.TrimSpace(strings.TrimSpace(claims.FirstName) + " " + strings.TrimSpace(claims.LastName))
	if full != "" {
		return full
	}
	return "Unknown User"
}
