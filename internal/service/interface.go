package service

import (
	"context"
	"errors"

	"github.com/aviator-hackers/backend-avapk/internal/domain"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
)

var (
	// ErrDuplicateIdentity is returned for a second join or admin-join on one
	// connection when duplicates are configured to be rejected.
	ErrDuplicateIdentity = errors.New("connection already identified")
	// ErrNotAdmin is returned for admin-only operations on other connections.
	ErrNotAdmin = errors.New("connection is not an admin")
)

// RelayService applies client events to relay state. Every Handle method must
// be called from the hub goroutine.
type RelayService interface {
	HandleJoin(ctx context.Context, client *hub.Client, p *domain.JoinPayload) error
	HandleAdminJoin(ctx context.Context, client *hub.Client) error
	HandleAdminSelectSession(ctx context.Context, client *hub.Client, p *domain.AdminSelectSessionPayload) error
	HandleAdminTyping(ctx context.Context, client *hub.Client, p *domain.AdminTypingPayload) error
	HandleAdminReadMessages(ctx context.Context, client *hub.Client, p *domain.AdminReadMessagesPayload) error
	HandleSendMessage(ctx context.Context, client *hub.Client, p *domain.SendMessagePayload) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	Start(ctx context.Context) error
	Stop() error
}
