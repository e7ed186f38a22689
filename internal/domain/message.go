package domain

import "time"

// CreatedAtLayout is ISO-8601 UTC with millisecond precision.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// MessageRecord is the canonical broadcast form of a chat message. It is
// built once per send and never stored.
type MessageRecord struct {
	SessionID   string     `json:"session_id"`
	DisplayName string     `json:"display_name"`
	Text        string     `json:"text"`
	ImageURL    *string    `json:"image_url"`
	ImageData   string     `json:"imageData,omitempty"`
	SenderRole  SenderRole `json:"sender_role"`
	CreatedAt   string     `json:"created_at"`
}

// NewMessageRecord normalises an inbound send-message payload. now is the
// server clock; the client never supplies the timestamp.
func NewMessageRecord(p *SendMessagePayload, now time.Time) *MessageRecord {
	rec := &MessageRecord{
		SessionID:   p.SessionID,
		DisplayName: p.DisplayName,
		Text:        p.Text,
		ImageData:   p.ImageData,
		SenderRole:  ParseSenderRole(p.SenderRole),
		CreatedAt:   now.UTC().Format(CreatedAtLayout),
	}
	if p.ImageURL != "" {
		url := p.ImageURL
		rec.ImageURL = &url
	}
	return rec
}
