package kafka

import (
	"context"

	"github.com/aviator-hackers/backend-avapk/internal/domain"
)

// MessageProducer taps broadcast message records onto a topic. Producing must
// not block the caller; delivery is best effort.
type MessageProducer interface {
	ProduceMessage(ctx context.Context, msg *domain.MessageRecord) error
	Close() error
}

// NopProducer is used when the tap is disabled.
type NopProducer struct{}

func (NopProducer) ProduceMessage(context.Context, *domain.MessageRecord) error { return nil }

func (NopProducer) Close() error { return nil }
