package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRecordWireShape(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 123_000_000, time.FixedZone("EAT", 3*3600))
	rec := NewMessageRecord(&SendMessagePayload{
		SessionID:   "abc123",
		DisplayName: "Alice",
		Text:        "hello",
		SenderRole:  "user",
	}, now)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "abc123", got["session_id"])
	assert.Equal(t, "Alice", got["display_name"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "user", got["sender_role"])
	assert.Equal(t, "2026-10-15T06:30:00.123Z", got["created_at"])
	assert.Contains(t, got, "image_url")
	assert.Nil(t, got["image_url"])
	assert.NotContains(t, got, "imageData")
}

func TestNewMessageRecordCarriesImages(t *testing.T) {
	rec := NewMessageRecord(&SendMessagePayload{
		SessionID:  "s",
		ImageURL:   "https://cdn.example.com/uploads/a.png",
		ImageData:  "aGVsbG8=",
		SenderRole: "admin",
	}, time.Now())

	require.NotNil(t, rec.ImageURL)
	assert.Equal(t, "https://cdn.example.com/uploads/a.png", *rec.ImageURL)
	assert.Equal(t, "aGVsbG8=", rec.ImageData)
	assert.Equal(t, SenderAdmin, rec.SenderRole)
	assert.Equal(t, "", rec.Text)
}

func TestParseSenderRole(t *testing.T) {
	assert.Equal(t, SenderAdmin, ParseSenderRole("admin"))
	assert.Equal(t, SenderUser, ParseSenderRole("user"))
	assert.Equal(t, SenderUser, ParseSenderRole(""))
	assert.Equal(t, SenderUser, ParseSenderRole("ADMIN"))
}

func TestNewFrameEnvelope(t *testing.T) {
	frame, err := NewFrame(EventAdminTyping, &TypingPayload{IsTyping: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"admin-typing","data":{"isTyping":true}}`, string(frame))

	frame, err = NewFrame(EventPong, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"pong"}`, string(frame))

	assert.JSONEq(t,
		`{"event":"error","data":{"code":"FORBIDDEN","message":"admins only"}}`,
		string(NewErrorFrame(ErrCodeForbidden, "admins only")))
}
