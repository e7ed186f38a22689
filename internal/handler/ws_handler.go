package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/internal/domain"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/internal/service"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades support-chat connections and decodes their frames.
// It is the hub's FrameHandler, so decoding and dispatch run on the hub goroutine.
type WSHandler struct {
	hub     *hub.Hub
	service service.RelayService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.RelayService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/socket", h.HandleWebSocket)
	r.GET("/chat/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// decode unmarshals the envelope payload into dst. A missing payload leaves
// dst zeroed.
func decode(env *domain.Envelope, dst any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, dst)
}

func (h *WSHandler) reply(c *hub.Client, frame []byte) {
	h.hub.Router().Send(c, frame)
}

func (h *WSHandler) replyError(c *hub.Client, code, message string) {
	h.reply(c, domain.NewErrorFrame(code, message))
}

func (h *WSHandler) HandleFrame(ctx context.Context, c *hub.Client, frame []byte) {
	l := log.Ctx(ctx)

	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		h.replyError(c, domain.ErrCodeBadRequest, "Invalid message format")
		return
	}

	var err error
	switch env.Event {
	case domain.EventJoin:
		var p domain.JoinPayload
		if decode(&env, &p) != nil {
			h.replyError(c, domain.ErrCodeBadRequest, "Invalid join payload")
			return
		}
		err = h.service.HandleJoin(ctx, c, &p)

	case domain.EventAdminJoin:
		err = h.service.HandleAdminJoin(ctx, c)

	case domain.EventAdminSelectSession:
		var p domain.AdminSelectSessionPayload
		if decode(&env, &p) != nil {
			h.replyError(c, domain.ErrCodeBadRequest, "Invalid admin-select-session payload")
			return
		}
		err = h.service.HandleAdminSelectSession(ctx, c, &p)

	case domain.EventAdminTyping:
		var p domain.AdminTypingPayload
		if decode(&env, &p) != nil {
			h.replyError(c, domain.ErrCodeBadRequest, "Invalid admin-typing payload")
			return
		}
		err = h.service.HandleAdminTyping(ctx, c, &p)

	case domain.EventAdminReadMessages:
		var p domain.AdminReadMessagesPayload
		if decode(&env, &p) != nil {
			h.replyError(c, domain.ErrCodeBadRequest, "Invalid admin-read-messages payload")
			return
		}
		err = h.service.HandleAdminReadMessages(ctx, c, &p)

	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if decode(&env, &p) != nil {
			h.replyError(c, domain.ErrCodeBadRequest, "Invalid send-message payload")
			return
		}
		err = h.service.HandleSendMessage(ctx, c, &p)

	case domain.EventPing:
		frame, _ := domain.NewFrame(domain.EventPong, nil)
		h.reply(c, frame)

	default:
		l.Debug().Str(log.FieldEvent, env.Event).Msg("unknown event")
		h.replyError(c, domain.ErrCodeUnknownEvent, "Unknown event: "+env.Event)
		return
	}

	if err == nil {
		return
	}
	switch {
	case errors.Is(err, service.ErrDuplicateIdentity):
		h.replyError(c, domain.ErrCodeDuplicateIdentity, "Connection already joined")
	case errors.Is(err, service.ErrNotAdmin):
		h.replyError(c, domain.ErrCodeForbidden, "Admin only")
	default:
		l.Error().Err(err).Str(log.FieldEvent, env.Event).Msg("failed to handle event")
		h.replyError(c, domain.ErrCodeInternalError, "Failed to handle event")
	}
}

func (h *WSHandler) HandleDisconnect(ctx context.Context, c *hub.Client) {
	if err := h.service.HandleDisconnect(ctx, c); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to handle disconnect")
	}
}
