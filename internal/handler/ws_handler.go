package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Grekus14/MeChat/internal/config"
	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/hub"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/service"
)

// WSHandler upgrades connections and dispatches event frames to the chat
// service. Frames from one connection are handled sequentially by the read
// pump, which keeps a sender's messages in order.
type WSHandler struct {
	hub      *hub.Hub
	chat     service.ChatService
	wsConfig config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, chat service.ChatService, wsConfig config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		chat:     chat,
		wsConfig: wsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Token auth happens on the event channel, not at upgrade.
				return true
			},
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.serveWS)
}

func (h *WSHandler) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsConfig)
	h.hub.Register(client)

	// The request context dies when this handler returns; the connection
	// outlives it, so the pumps run on a detached context.
	ctx := log.WithLogger(context.Background(),
		log.L().With().Str(log.FieldClientID, client.ID).Logger())

	go client.WritePump()
	go func() {
		client.ReadPump(func(cl *hub.Client, data []byte) {
			h.dispatch(ctx, cl, data)
		})
		h.chat.HandleDisconnect(ctx, client)
	}()
}

func (h *WSHandler) dispatch(ctx context.Context, client *hub.Client, data []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed message"))
		return
	}

	switch base.Type {
	case domain.MsgTypeAuth:
		var msg domain.AuthMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed auth message"))
			return
		}
		h.chat.HandleAuth(ctx, client, msg.Token)

	case domain.MsgTypeJoin:
		var msg domain.JoinMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed join message"))
			return
		}
		h.chat.HandleJoin(ctx, client, msg.RoomID)

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageWS
		if err := json.Unmarshal(data, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed message"))
			return
		}
		h.chat.HandleSendMessage(ctx, client, msg.Text)

	case domain.MsgTypeLeave:
		h.chat.HandleLeave(ctx, client)

	case domain.MsgTypePing:
		client.SendMessage(&domain.BaseMessage{Type: domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type"))
	}
}
