package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/internal/domain"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/internal/registry"
	"github.com/aviator-hackers/backend-avapk/internal/service"
)

var testWSConfig = config.WebSocketConfig{
	PingInterval:   30 * time.Second,
	PongWait:       60 * time.Second,
	WriteWait:      5 * time.Second,
	MaxMessageSize: 1 << 20,
	SendBuffer:     64,
}

type relayServer struct {
	url      string
	hub      *hub.Hub
	registry *registry.Registry
}

func newRelayServer(t *testing.T, relayCfg config.RelayConfig) *relayServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.NewHub(testWSConfig)
	reg := registry.New()
	svc := service.NewRelayService(h.Router(), reg, relayCfg)
	ws := NewWSHandler(h, svc, testWSConfig)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx, ws)

	r := gin.New()
	ws.RegisterRoutes(r)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		<-h.Done()
		srv.Close()
	})

	return &relayServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		hub:      h,
		registry: reg,
	}
}

func (s *relayServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := domain.NewFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func next(t *testing.T, conn *websocket.Conn) domain.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env domain.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// roundTrip round-trips a ping. Frames are handled in order per connection, so
// everything sent before has been applied once the pong arrives, and no
// other frame was queued for conn in between.
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	emit(t, conn, domain.EventPing, nil)
	env := next(t, conn)
	require.Equal(t, domain.EventPong, env.Event, "unexpected frame %s %s", env.Event, env.Data)
}

func messageOf(t *testing.T, env domain.Envelope) map[string]any {
	t.Helper()
	require.Equal(t, domain.EventMessage, env.Event)
	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func errorCode(t *testing.T, env domain.Envelope) string {
	t.Helper()
	require.Equal(t, domain.EventError, env.Event)
	var p domain.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p.Code
}

func TestSupportConversation(t *testing.T) {
	s := newRelayServer(t, config.RelayConfig{})
	admin := s.dial(t, "/socket")
	user := s.dial(t, "/chat/ws")

	emit(t, admin, domain.EventAdminJoin, nil)
	roundTrip(t, admin)

	emit(t, user, domain.EventJoin, &domain.JoinPayload{SessionID: "abc123", DisplayName: "Alice"})
	joined := next(t, admin)
	assert.Equal(t, domain.EventUserJoined, joined.Event)
	assert.JSONEq(t, `{"sessionId":"abc123","displayName":"Alice"}`, string(joined.Data))

	emit(t, user, domain.EventSendMessage, &domain.SendMessagePayload{SessionID: "abc123", DisplayName: "Alice", Text: "hello", SenderRole: "user"})

	for _, conn := range []*websocket.Conn{admin, user} {
		msg := messageOf(t, next(t, conn))
		assert.Equal(t, "abc123", msg["session_id"])
		assert.Equal(t, "Alice", msg["display_name"])
		assert.Equal(t, "hello", msg["text"])
		assert.Equal(t, "user", msg["sender_role"])
		assert.Contains(t, msg, "image_url")
		assert.Nil(t, msg["image_url"])
		assert.NotEmpty(t, msg["created_at"])
	}

	// Selecting the session puts the admin in both rooms.
	emit(t, admin, domain.EventAdminSelectSession, &domain.AdminSelectSessionPayload{SessionID: "abc123"})
	emit(t, admin, domain.EventSendMessage, &domain.SendMessagePayload{SessionID: "abc123", DisplayName: "Support", Text: "how can I help?", SenderRole: "admin"})

	first := messageOf(t, next(t, admin))
	second := messageOf(t, next(t, admin))
	assert.Equal(t, first, second)
	assert.Equal(t, "admin", first["sender_role"])
	roundTrip(t, admin)

	reply := messageOf(t, next(t, user))
	assert.Equal(t, "how can I help?", reply["text"])
	roundTrip(t, user)

	emit(t, admin, domain.EventAdminTyping, &domain.AdminTypingPayload{TargetSessionID: "abc123", IsTyping: true})
	typing := next(t, user)
	assert.Equal(t, domain.EventAdminTyping, typing.Event)
	assert.JSONEq(t, `{"isTyping":true}`, string(typing.Data))
}

func TestUserDisconnectCleansUp(t *testing.T) {
	s := newRelayServer(t, config.RelayConfig{})
	admin := s.dial(t, "/socket")
	user := s.dial(t, "/socket")

	emit(t, admin, domain.EventAdminJoin, nil)
	roundTrip(t, admin)
	emit(t, user, domain.EventJoin, &domain.JoinPayload{SessionID: "abc123", DisplayName: "Alice"})
	roundTrip(t, user)
	require.Len(t, s.registry.Sessions(), 1)
	assert.Equal(t, domain.EventUserJoined, next(t, admin).Event)

	require.NoError(t, user.Close())
	require.Eventually(t, func() bool {
		return len(s.registry.Sessions()) == 0 && s.hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, s.hub.Router().Members(hub.SessionRoom("abc123")))

	// A new connection can still write into the emptied session.
	again := s.dial(t, "/socket")
	emit(t, again, domain.EventSendMessage, &domain.SendMessagePayload{SessionID: "abc123", DisplayName: "Alice", Text: "back again", SenderRole: "user"})

	msg := messageOf(t, next(t, admin))
	assert.Equal(t, "back again", msg["text"])
	roundTrip(t, again)
}

func TestFrameErrors(t *testing.T) {
	s := newRelayServer(t, config.RelayConfig{})
	conn := s.dial(t, "/socket")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, domain.ErrCodeBadRequest, errorCode(t, next(t, conn)))

	emit(t, conn, "dance", nil)
	assert.Equal(t, domain.ErrCodeUnknownEvent, errorCode(t, next(t, conn)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join","data":{"sessionId":5}}`)))
	assert.Equal(t, domain.ErrCodeBadRequest, errorCode(t, next(t, conn)))

	emit(t, conn, domain.EventAdminSelectSession, &domain.AdminSelectSessionPayload{SessionID: "abc123"})
	assert.Equal(t, domain.ErrCodeForbidden, errorCode(t, next(t, conn)))

	// Errors never close the connection.
	roundTrip(t, conn)
	assert.Equal(t, 0, s.registry.Len())
}

func TestJoinWithoutPayloadIsAccepted(t *testing.T) {
	s := newRelayServer(t, config.RelayConfig{})
	conn := s.dial(t, "/socket")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join"}`)))
	roundTrip(t, conn)

	sessions := s.registry.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "", sessions[0].SessionID)
}

func TestDuplicateJoinRejectedWhenConfigured(t *testing.T) {
	s := newRelayServer(t, config.RelayConfig{RejectDuplicateIdentity: true})
	conn := s.dial(t, "/socket")

	emit(t, conn, domain.EventJoin, &domain.JoinPayload{SessionID: "abc123", DisplayName: "Alice"})
	emit(t, conn, domain.EventAdminJoin, nil)
	assert.Equal(t, domain.ErrCodeDuplicateIdentity, errorCode(t, next(t, conn)))

	sessions := s.registry.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "abc123", sessions[0].SessionID)
}
