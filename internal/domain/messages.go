package domain

import "encoding/json"

// Events from client.
const (
	EventJoin               = "join"
	EventAdminJoin          = "admin-join"
	EventAdminSelectSession = "admin-select-session"
	EventAdminTyping        = "admin-typing"
	EventAdminReadMessages  = "admin-read-messages"
	EventSendMessage        = "send-message"
	EventPing               = "ping"
)

// Events to client.
const (
	EventUserJoined = "user-joined"
	EventMessage    = "message"
	EventError      = "error"
	EventPong       = "pong"
)

// Error codes
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnknownEvent      = "UNKNOWN_EVENT"
	ErrCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Envelope is the wire frame in both directions: an event name plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client -> Server payloads

type JoinPayload struct {
	SessionID   string `json:"sessionId"`
	DisplayName string `json:"displayName"`
}

type AdminSelectSessionPayload struct {
	SessionID string `json:"sessionId"`
}

type AdminTypingPayload struct {
	TargetSessionID string `json:"targetSessionId"`
	IsTyping        bool   `json:"isTyping"`
}

type AdminReadMessagesPayload struct {
	SessionID string `json:"sessionId"`
}

type SendMessagePayload struct {
	SessionID   string `json:"sessionId"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageData   string `json:"imageData,omitempty"`
	SenderRole  string `json:"senderRole"`
}

// Server -> Client payloads

type UserJoinedPayload struct {
	SessionID   string `json:"sessionId"`
	DisplayName string `json:"displayName"`
}

type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewFrame marshals data under the given event name.
func NewFrame(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// NewErrorFrame builds an error frame for the origin connection.
func NewErrorFrame(code, message string) []byte {
	// ErrorPayload always marshals.
	frame, _ := NewFrame(EventError, &ErrorPayload{Code: code, Message: message})
	return frame
}
