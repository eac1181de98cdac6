package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Khambazarov/realtime-chat-app/internal/models"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
)

// Client is one realtime connection. Its groups are fixed at connect time;
// joining a new chatroom requires a new connection.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	groups  []string
	removed bool // guarded by the hub mutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve authenticates the handshake against the shared session store, loads
// the caller's chatroom memberships and joins the connection to one group per
// chatroom plus the group keyed by the user's own id. A handshake without a
// valid session is rejected before the upgrade.
func Serve(h *Hub, gdb *gorm.DB, store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(session.CookieName)
		if err != nil || sid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"errorMessage": "Not authenticated"})
			return
		}
		ident, err := store.Get(c.Request.Context(), sid)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"errorMessage": "Not authenticated"})
			return
		}

		var chatroomIDs []string
		if err := gdb.Model(&models.ChatroomMember{}).
			Where("user_id = ?", ident.UserID).
			Pluck("chatroom_id", &chatroomIDs).Error; err != nil {
			log.Error().Err(err).Str("user_id", ident.UserID).Msg("load chatroom memberships")
			c.JSON(http.StatusInternalServerError, gin.H{"errorMessage": "Internal server error"})
			return
		}
		groups := append(chatroomIDs, ident.UserID)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{conn: conn, send: make(chan []byte, 256), userID: ident.UserID, groups: groups}
		h.register(client)
		log.Info().Str("user_id", ident.UserID).Int("chatrooms", len(chatroomIDs)).Msg("client connected")

		go client.writePump()
		client.readPump(h)
	}
}

// readPump only keeps the connection alive; clients mutate state through the
// HTTP API, not the socket.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		log.Info().Str("user_id", c.userID).Msg("client disconnected")
	}()
	c.conn.SetReadLimit(1 << 16)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
