package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aviator-hackers/backend-avapk/internal/audit"
	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/internal/directory"
	"github.com/aviator-hackers/backend-avapk/internal/domain"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/internal/kafka"
	"github.com/aviator-hackers/backend-avapk/internal/registry"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

type relayService struct {
	router      *hub.Router
	registry    *registry.Registry
	notifier    *Notifier
	broadcaster *Broadcaster
	directory   directory.Directory
	producer    kafka.MessageProducer
	cfg         config.RelayConfig
	now         func() time.Time
}

// Option customises a relay service.
type Option func(*relayService)

// WithClock replaces time.Now for join times and message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *relayService) { s.now = now }
}

// WithDirectory mirrors user sessions into dir.
func WithDirectory(dir directory.Directory) Option {
	return func(s *relayService) { s.directory = dir }
}

// WithProducer taps every broadcast record into p.
func WithProducer(p kafka.MessageProducer) Option {
	return func(s *relayService) { s.producer = p }
}

func NewRelayService(router *hub.Router, reg *registry.Registry, cfg config.RelayConfig, opts ...Option) RelayService {
	s := &relayService{
		router:    router,
		registry:  reg,
		directory: directory.Nop{},
		producer:  kafka.NopProducer{},
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.notifier = NewNotifier(router)
	s.broadcaster = NewBroadcaster(router, s.producer, s.now)
	return s
}

// identify handles a repeated join or admin-join. It returns an error when
// duplicates are rejected; otherwise the caller overwrites the entry.
func (s *relayService) identify(ctx context.Context, c *hub.Client, as domain.Role) error {
	prev, ok := s.registry.Get(c.ID)
	if !ok {
		return nil
	}

	l := log.Ctx(ctx)
	if s.cfg.RejectDuplicateIdentity {
		audit.LogWithDetail(ctx, audit.ActionDuplicateIdentity, prev.SessionID, as.String(), "duplicate identity rejected")
		return fmt.Errorf("identify as %s after %s: %w", as, prev.Role, ErrDuplicateIdentity)
	}
	l.Warn().
		Str(log.FieldRole, prev.Role.String()).
		Str(log.FieldSessionID, prev.SessionID).
		Msgf("connection identified again as %s", as)

	if prev.Role == domain.RoleUser {
		s.directory.Withdraw(prev.SessionID)
	}
	return nil
}

func (s *relayService) HandleJoin(ctx context.Context, c *hub.Client, p *domain.JoinPayload) error {
	if err := s.identify(ctx, c, domain.RoleUser); err != nil {
		return err
	}

	s.router.JoinRoom(c, hub.SessionRoom(p.SessionID))
	s.registry.Put(c.ID, domain.Connection{
		Role:        domain.RoleUser,
		SessionID:   p.SessionID,
		DisplayName: p.DisplayName,
		JoinedAt:    s.now(),
	})
	s.directory.Announce(p.SessionID, p.DisplayName)

	audit.LogWithDetail(ctx, audit.ActionJoin, p.SessionID, p.DisplayName, "user joined")

	return s.notifier.NotifyUserJoined(ctx, p.SessionID, p.DisplayName)
}

func (s *relayService) HandleAdminJoin(ctx context.Context, c *hub.Client) error {
	if err := s.identify(ctx, c, domain.RoleAdmin); err != nil {
		return err
	}

	s.router.JoinRoom(c, hub.AdminRoom)
	s.registry.Put(c.ID, domain.Connection{
		Role:     domain.RoleAdmin,
		JoinedAt: s.now(),
	})

	audit.Log(ctx, audit.ActionAdminJoin, "", "admin joined")
	return nil
}

// HandleAdminSelectSession adds a session room to the admin's memberships.
// Earlier selections are kept.
func (s *relayService) HandleAdminSelectSession(ctx context.Context, c *hub.Client, p *domain.AdminSelectSessionPayload) error {
	conn, ok := s.registry.Get(c.ID)
	if !ok || conn.Role != domain.RoleAdmin {
		audit.Log(ctx, audit.ActionForbidden, p.SessionID, "select session refused")
		return fmt.Errorf("select session %q: %w", p.SessionID, ErrNotAdmin)
	}

	s.router.JoinRoom(c, hub.SessionRoom(p.SessionID))

	audit.Log(ctx, audit.ActionSelectSession, p.SessionID, "admin selected session")
	return nil
}

func (s *relayService) HandleAdminTyping(ctx context.Context, c *hub.Client, p *domain.AdminTypingPayload) error {
	return s.notifier.NotifyAdminTyping(ctx, p.TargetSessionID, p.IsTyping)
}

func (s *relayService) HandleAdminReadMessages(ctx context.Context, c *hub.Client, p *domain.AdminReadMessagesPayload) error {
	s.notifier.NotifyMessagesRead(ctx, p.SessionID)
	return nil
}

func (s *relayService) HandleSendMessage(ctx context.Context, c *hub.Client, p *domain.SendMessagePayload) error {
	rec, err := s.broadcaster.SendMessage(ctx, p)
	if err != nil {
		return err
	}
	audit.LogWithDetail(ctx, audit.ActionSendMessage, rec.SessionID, string(rec.SenderRole), "message sent")
	return nil
}

// HandleDisconnect removes the registry entry. Room membership is released
// by the hub right after this returns. It is safe to call for connections
// that never identified.
func (s *relayService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	conn, ok := s.registry.Remove(c.ID)
	if !ok {
		return nil
	}

	if conn.Role == domain.RoleUser {
		s.directory.Withdraw(conn.SessionID)
	}
	audit.LogWithDetail(ctx, audit.ActionDisconnect, conn.SessionID, conn.Role.String(), "connection closed")
	return nil
}

func (s *relayService) Start(ctx context.Context) error {
	if err := s.directory.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session directory: %w", err)
	}
	l := log.L()
	l.Info().Msg("relay service started")
	return nil
}

func (s *relayService) Stop() error {
	l := log.L()
	if err := s.directory.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close session directory")
	}
	if err := s.producer.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close kafka producer")
	}
	return nil
}
