package domain

import "time"

// Role is what a connection identified itself as.
type Role int

const (
	RoleUnidentified Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unidentified"
	}
}

// Connection is the registry descriptor for one live link.
// SessionID and DisplayName are only set for RoleUser.
type Connection struct {
	ConnectionID string
	Role         Role
	SessionID    string
	DisplayName  string
	JoinedAt     time.Time
}

// SenderRole is the author side of a message record.
type SenderRole string

const (
	SenderUser  SenderRole = "user"
	SenderAdmin SenderRole = "admin"
)

// ParseSenderRole maps the client-supplied role; anything but "admin" is a user.
func ParseSenderRole(s string) SenderRole {
	if s == string(SenderAdmin) {
		return SenderAdmin
	}
	return SenderUser
}
