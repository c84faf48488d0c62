package websocket

import (
	"ai-chatbot-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection and blocks until the peer goes away.
// onConnect, when set, runs once the client can receive messages.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, onConnect func(uuid.UUID)) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, sendBuffer)}
	if !hub.Register(client) {
		c.Close()
		return
	}

	go client.writePump()
	if onConnect != nil {
		onConnect(userID)
	}
	client.readPump()
}

// Handler upgrades requests that already passed the JWT middleware.
func (h *Hub) Handler(onConnect func(uuid.UUID)) fiber.Handler {
	upgrade := websocket.New(func(c *websocket.Conn) {
		raw, _ := c.Locals(serverutils.LocalUserId).(string)
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.Close()
			return
		}
		ServeWs(h, c, userID, onConnect)
	})

	return func(ctx *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(ctx)
	}
}
