package service

import (
	"context"
	"fmt"

	"github.com/aviator-hackers/backend-avapk/internal/audit"
	"github.com/aviator-hackers/backend-avapk/internal/domain"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

// Notifier emits presence and typing signals. Nothing is buffered: members
// that join a room later never see earlier signals.
type Notifier struct {
	router *hub.Router
}

func NewNotifier(router *hub.Router) *Notifier {
	return &Notifier{router: router}
}

// NotifyUserJoined tells the admin room that a user session came online.
func (n *Notifier) NotifyUserJoined(ctx context.Context, sessionID, displayName string) error {
	frame, err := domain.NewFrame(domain.EventUserJoined, &domain.UserJoinedPayload{
		SessionID:   sessionID,
		DisplayName: displayName,
	})
	if err != nil {
		return fmt.Errorf("failed to encode user-joined: %w", err)
	}
	delivered := n.router.Emit(hub.AdminRoom, frame)

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldSessionID, sessionID).Int(log.FieldDelivered, delivered).Msg("user-joined sent")
	return nil
}

// NotifyAdminTyping forwards an admin's typing state to one session room.
func (n *Notifier) NotifyAdminTyping(ctx context.Context, targetSessionID string, isTyping bool) error {
	frame, err := domain.NewFrame(domain.EventAdminTyping, &domain.TypingPayload{IsTyping: isTyping})
	if err != nil {
		return fmt.Errorf("failed to encode admin-typing: %w", err)
	}
	delivered := n.router.Emit(hub.SessionRoom(targetSessionID), frame)

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldSessionID, targetSessionID).Bool("is_typing", isTyping).Int(log.FieldDelivered, delivered).Msg("admin-typing sent")
	return nil
}

// NotifyMessagesRead only records the event; there are no read receipts.
func (n *Notifier) NotifyMessagesRead(ctx context.Context, sessionID string) {
	audit.Log(ctx, audit.ActionMessagesRead, sessionID, "admin read messages")
}
