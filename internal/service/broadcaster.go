package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aviator-hackers/backend-avapk/internal/domain"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/internal/kafka"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

// Broadcaster turns send-message events into message records and fans them
// out to the session room and the admin room.
type Broadcaster struct {
	router   *hub.Router
	producer kafka.MessageProducer
	now      func() time.Time
}

func NewBroadcaster(router *hub.Router, producer kafka.MessageProducer, now func() time.Time) *Broadcaster {
	if producer == nil {
		producer = kafka.NopProducer{}
	}
	if now == nil {
		now = time.Now
	}
	return &Broadcaster{router: router, producer: producer, now: now}
}

// SendMessage emits to both rooms separately. A connection that belongs to
// both receives the record twice.
func (b *Broadcaster) SendMessage(ctx context.Context, p *domain.SendMessagePayload) (*domain.MessageRecord, error) {
	rec := domain.NewMessageRecord(p, b.now())

	frame, err := domain.NewFrame(domain.EventMessage, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	toSession := b.router.Emit(hub.SessionRoom(rec.SessionID), frame)
	toAdmin := b.router.Emit(hub.AdminRoom, frame)

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldSessionID, rec.SessionID).
		Str(log.FieldRole, string(rec.SenderRole)).
		Int("to_session", toSession).
		Int("to_admin", toAdmin).
		Msg("message broadcast")

	if err := b.producer.ProduceMessage(ctx, rec); err != nil {
		l.Warn().Err(err).Str(log.FieldSessionID, rec.SessionID).Msg("failed to tap message")
	}

	return rec, nil
}
