package realtime

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/workconnect/backend/internal/utils"
)

// NotificationSocket returns the /ws/notifications handler. Auth is a JWT in
// the token query parameter, since browsers cannot set headers on websocket
// upgrades.
func NotificationSocket(hub *Hub, jwtSecret string) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		claims, err := utils.ParseJWT(jwtSecret, conn.Query("token"))
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			UserID: userID,
			Send:   make(chan []byte, 64),
		}
		hub.RegisterClient(client)
		defer hub.UnregisterClient(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			// Drain reads so pings/closes are processed; clients never send
			// application data on this socket.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case payload, ok := <-client.Send:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
